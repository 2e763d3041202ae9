// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package eventcard

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys.
const (
	keyFree        = "card.free"
	keyDateUnknown = "card.date_unknown"
	keyPriceFrom   = "card.price_from"
	keyRetry       = "fallback.retry"
	keyMapFailed   = "fallback.map_failed"
	keyNoEvents    = "fallback.no_events"
)

var supportedTags = []language.Tag{
	language.Russian,
	language.English,
}

var tagMatcher = language.NewMatcher(supportedTags)

//nolint:gochecknoinits // message catalog registration
func init() {
	ru := language.Russian
	_ = message.SetString(ru, keyFree, "Бесплатно")
	_ = message.SetString(ru, keyDateUnknown, "Дата уточняется")
	_ = message.SetString(ru, keyPriceFrom, "от %s %s")
	_ = message.SetString(ru, keyRetry, "Попробовать снова")
	_ = message.SetString(ru, keyMapFailed, "Карта недоступна, показываем список событий")
	_ = message.SetString(ru, keyNoEvents, "Событий пока нет")

	en := language.English
	_ = message.SetString(en, keyFree, "Free")
	_ = message.SetString(en, keyDateUnknown, "Date unknown")
	_ = message.SetString(en, keyPriceFrom, "from %s %s")
	_ = message.SetString(en, keyRetry, "Try again")
	_ = message.SetString(en, keyMapFailed, "The map is unavailable, showing the event list instead")
	_ = message.SetString(en, keyNoEvents, "No events yet")
}

// ResolveLocale maps a locale or Accept-Language value to a supported tag.
// Unknown or empty input resolves to Russian, the platform default.
func ResolveLocale(value string) language.Tag {
	value = strings.TrimSpace(value)
	if value == "" {
		return language.Russian
	}
	tags, _, err := language.ParseAcceptLanguage(value)
	if err != nil || len(tags) == 0 {
		return language.Russian
	}
	_, idx, conf := tagMatcher.Match(tags...)
	if conf == language.No {
		return language.Russian
	}
	return supportedTags[idx]
}

// SupportedLocales returns the locales with a message catalog.
func SupportedLocales() []string {
	out := make([]string, len(supportedTags))
	for i, t := range supportedTags {
		out[i] = t.String()
	}
	return out
}
