// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/tomtom215/eventmap/internal/eventcard"
	"github.com/tomtom215/eventmap/internal/validation"
)

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSDK(); err != nil {
		return err
	}
	if err := c.validateMap(); err != nil {
		return err
	}
	if err := c.validateMarkers(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateFallback(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

var validEnvironments = map[string]bool{
	"development": true,
	"staging":     true,
	"production":  true,
}

// validateServer validates HTTP server settings
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.Environment != "" && !validEnvironments[c.Server.Environment] {
		return fmt.Errorf("ENVIRONMENT must be one of: development, staging, production")
	}
	return nil
}

// SDK limit constants
const (
	minSDKLoadTimeout = 100 * time.Millisecond
	maxSDKLoadTimeout = time.Minute
	maxSDKBundleBytes = 64 << 20
)

// validateSDK validates the vendor SDK settings
func (c *Config) validateSDK() error {
	if c.SDK.URL == "" {
		return fmt.Errorf("MAP_SDK_URL is required")
	}
	if err := validateBundleURL(c.SDK.URL, "MAP_SDK_URL"); err != nil {
		return err
	}
	if c.SDK.LoadTimeout < minSDKLoadTimeout || c.SDK.LoadTimeout > maxSDKLoadTimeout {
		return fmt.Errorf("MAP_SDK_LOAD_TIMEOUT must be between %v and %v", minSDKLoadTimeout, maxSDKLoadTimeout)
	}
	if c.SDK.FetchTimeout <= 0 {
		return fmt.Errorf("MAP_SDK_FETCH_TIMEOUT must be positive")
	}
	if c.SDK.MaxBytes <= 0 || c.SDK.MaxBytes > maxSDKBundleBytes {
		return fmt.Errorf("MAP_SDK_MAX_BYTES must be between 1 and %d", maxSDKBundleBytes)
	}
	if c.IsProduction() && containsPlaceholder(c.SDK.APIKey) {
		return fmt.Errorf("MAP_SDK_API_KEY contains a placeholder value")
	}
	return nil
}

// validateMap validates the container and viewport using struct tags.
func (c *Config) validateMap() error {
	if verr := validation.ValidateStruct(&c.Map); verr != nil {
		return fmt.Errorf("map configuration: %w", verr)
	}
	if c.Map.Zoom > c.Map.MaxZoom {
		return fmt.Errorf("MAP_ZOOM must not exceed MAP_MAX_ZOOM")
	}
	return nil
}

// validateMarkers validates the entrance animation timing
func (c *Config) validateMarkers() error {
	m := c.Markers
	if m.BaseDelay < 0 || m.StepDelay < 0 {
		return fmt.Errorf("MARKER_BASE_DELAY and MARKER_STEP_DELAY must not be negative")
	}
	if m.Cycle < 1 {
		return fmt.Errorf("MARKER_CYCLE must be at least 1")
	}
	if m.EntranceDuration <= 0 {
		return fmt.Errorf("MARKER_ENTRANCE_DURATION must be positive")
	}
	if m.EntranceOffset < 0 {
		return fmt.Errorf("MARKER_ENTRANCE_OFFSET must not be negative")
	}
	return nil
}

// validateCatalog validates the catalog source
func (c *Config) validateCatalog() error {
	if strings.ContainsRune(c.Catalog.Path, 0) {
		return fmt.Errorf("CATALOG_PATH contains a NUL byte")
	}
	return nil
}

// validateFallback validates locale, time zone and retry action
func (c *Config) validateFallback() error {
	if c.Fallback.Locale != "" {
		tag, err := language.Parse(c.Fallback.Locale)
		if err != nil {
			return fmt.Errorf("LOCALE is not a valid language tag: %w", err)
		}
		base, _ := tag.Base()
		supported := eventcard.SupportedLocales()
		if !slices.Contains(supported, base.String()) {
			return fmt.Errorf("LOCALE %q has no message catalog (supported: %s)", c.Fallback.Locale, strings.Join(supported, ", "))
		}
	}
	if c.Fallback.Timezone != "" {
		if _, err := time.LoadLocation(c.Fallback.Timezone); err != nil {
			return fmt.Errorf("TIMEZONE is not a known zone: %w", err)
		}
	}
	if c.Fallback.RetryAction != "" && !strings.HasPrefix(c.Fallback.RetryAction, "/") {
		return fmt.Errorf("RETRY_ACTION must be an absolute path")
	}
	return nil
}

// Location returns the display time zone, UTC when unset or unknown.
func (c *Config) Location() *time.Location {
	if c.Fallback.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Fallback.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// validateSecurity validates CORS and rate limiting
func (c *Config) validateSecurity() error {
	if err := c.validateCORS(); err != nil {
		return err
	}
	if err := c.validateRateLimits(); err != nil {
		return err
	}
	if c.Security.RetryPerMinute < 1 {
		return fmt.Errorf("RETRY_PER_MINUTE must be at least 1")
	}
	if c.Security.RetryBurst < 1 {
		return fmt.Errorf("RETRY_BURST must be at least 1")
	}
	return nil
}

// validateCORS rejects wildcard origins in production
func (c *Config) validateCORS() error {
	if c.IsProduction() && c.hasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS must not contain '*' in production")
	}
	return nil
}

// hasWildcardCORS checks if CORS allows all origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS reports whether a wildcard origin is configured
// outside production.
func (c *Config) ShouldWarnAboutCORS() bool {
	return !c.IsProduction() && c.hasWildcardCORS()
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateRateLimits validates rate limiting configuration bounds.
// Skipped when rate limiting is disabled.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns are values that indicate a forgotten setting.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_API_KEY",
	"PLACEHOLDER",
	"TODO",
	"FIXME",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, p := range placeholderPatterns {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}
