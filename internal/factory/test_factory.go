package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/drawguess/internal/dependencies/mocks"
	"github.com/mcoot/drawguess/internal/gateway"
	"github.com/mcoot/drawguess/internal/services/words"
	"github.com/mcoot/drawguess/internal/storage"
	"github.com/mcoot/drawguess/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies and in-memory storage
func NewTestApp() *TestApp {
	return NewTestAppWithStore(memory.New())
}

// NewTestAppWithStore creates a test App persisting to the given store
func NewTestAppWithStore(store storage.Store) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	app := newWithDependencies(store, mockClock, mockRandom, words.New(mockRandom), true, 0, gateway.DefaultConfig(), logger)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// LoadTestWords loads a small word list for testing
func (t *TestApp) LoadTestWords() error {
	return t.Words.LoadWords([]string{"cat", "dog", "fish", "bird", "tree", "house", "sun"})
}
