// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package supervisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// MockService stands in for a catalog watcher or hub in tree tests.
type MockService struct {
	name       string
	startCount atomic.Int32
	stopCount  atomic.Int32
	failCount  atomic.Int32
	maxFails   int32
	err        error
	mu         sync.Mutex
}

func NewMockService(name string) *MockService {
	return &MockService{name: name}
}

// Serve fails maxFails times, then returns err if set, then blocks until
// the context is done.
func (m *MockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)
	defer m.stopCount.Add(1)

	m.mu.Lock()
	err, maxFails := m.err, m.maxFails
	m.mu.Unlock()

	if maxFails > 0 && m.failCount.Add(1) <= maxFails {
		return errors.New("simulated failure")
	}
	if err != nil {
		return err
	}

	<-ctx.Done()
	return ctx.Err()
}

func (m *MockService) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockService) SetFailCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxFails = int32(n)
}

func (m *MockService) StartCount() int32 { return m.startCount.Load() }

func (m *MockService) StopCount() int32 { return m.stopCount.Load() }

func (m *MockService) String() string { return m.name }
