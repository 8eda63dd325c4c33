package transcript

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clinical-interview-sim/internal/domain"
)

// MockStore is a testify mock of Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Save(ctx context.Context, t *Transcript) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockStore) Get(ctx context.Context, sessionID string) (*Transcript, error) {
	args := m.Called(ctx, sessionID)
	tr, _ := args.Get(0).(*Transcript)
	return tr, args.Error(1)
}

func (m *MockStore) List(ctx context.Context, limit, offset int) ([]*Transcript, error) {
	args := m.Called(ctx, limit, offset)
	list, _ := args.Get(0).([]*Transcript)
	return list, args.Error(1)
}

func (m *MockStore) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockStore) ExportJSON(ctx context.Context, w io.Writer) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockStore) ImportJSON(ctx context.Context, r io.Reader) (int, int, error) {
	args := m.Called(ctx, r)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func TestBreakerStore_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &MockStore{}
	inner.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))

	cfg := DefaultBreakerConfig("test")
	cfg.FailureThreshold = 3
	store := NewBreakerStore(inner, cfg, quietLogger())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		assert.Error(t, store.Save(ctx, sampleTranscript("s")))
	}
	assert.Equal(t, gobreaker.StateOpen, store.State())

	err := store.Save(ctx, sampleTranscript("s"))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	inner.AssertNumberOfCalls(t, "Save", 3)
}

func TestBreakerStore_NotFoundIsNotAFailure(t *testing.T) {
	inner := &MockStore{}
	inner.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	cfg := DefaultBreakerConfig("test")
	cfg.FailureThreshold = 1
	store := NewBreakerStore(inner, cfg, quietLogger())

	for i := 0; i < 3; i++ {
		_, err := store.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, store.State())
}

func TestBreakerStore_PassesResults(t *testing.T) {
	inner := &MockStore{}
	tr := sampleTranscript("ok")
	inner.On("Get", mock.Anything, "ok").Return(tr, nil)
	inner.On("Count", mock.Anything).Return(int64(7), nil)
	inner.On("List", mock.Anything, 5, 0).Return([]*Transcript{tr}, nil)
	inner.On("Close").Return(nil)

	store := NewBreakerStore(inner, DefaultBreakerConfig("test"), quietLogger())
	ctx := context.Background()

	got, err := store.Get(ctx, "ok")
	require.NoError(t, err)
	assert.Same(t, tr, got)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	list, err := store.List(ctx, 5, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Close())
	inner.AssertExpectations(t)
}

func TestOpen_Drivers(t *testing.T) {
	_, err := Open(domain.StoreConfig{Driver: "none"}, quietLogger())
	assert.ErrorIs(t, err, domain.ErrStoreDisabled)

	_, err = Open(domain.StoreConfig{Driver: "cassandra"}, quietLogger())
	assert.Error(t, err)

	store, err := Open(domain.StoreConfig{Driver: "sqlite", SQLitePath: t.TempDir() + "/t.db"}, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())
}
