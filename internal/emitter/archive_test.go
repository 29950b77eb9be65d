package emitter

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/model"
	"github.com/GabrielNunesIT/logbot/internal/testutil"
)

func TestArchiveEmitter_Start(t *testing.T) {
	cfg := config.ArchiveEmitterConfig{
		Enabled: true,
		Path:    "/tmp/test.log",
	}

	t.Run("success", func(t *testing.T) {
		mockWriter := testutil.NewWriteCloser(t)
		factory := func(c config.ArchiveEmitterConfig) (io.WriteCloser, error) {
			return mockWriter, nil
		}

		e := NewArchiveEmitter(cfg, testutil.NewTestLogger(), WithWriterFactory(factory))
		err := e.Start(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, "archive", e.Name())
	})

	t.Run("factory error", func(t *testing.T) {
		factory := func(c config.ArchiveEmitterConfig) (io.WriteCloser, error) {
			return nil, errors.New("factory error")
		}

		e := NewArchiveEmitter(cfg, testutil.NewTestLogger(), WithWriterFactory(factory))
		err := e.Start(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "factory error")
	})
}

func TestArchiveEmitter_Emit(t *testing.T) {
	cfg := config.ArchiveEmitterConfig{Enabled: true}
	entry := &model.LogEntry{
		Timestamp: time.Date(2026, 3, 7, 9, 4, 5, 0, time.UTC),
		Source:    "test-source",
		Fields:    map[string]any{"action": "join", "nick": "bob"},
	}

	t.Run("success", func(t *testing.T) {
		mockWriter := testutil.NewWriteCloser(t)
		factory := func(c config.ArchiveEmitterConfig) (io.WriteCloser, error) {
			return mockWriter, nil
		}

		want := `Mar 07 09:04:05 {"action":"join","nick":"bob","timestamp":"Mar 07 09:04:05"}` + "\n"
		mockWriter.On("Write", []byte(want)).Return(len(want), nil)

		e := NewArchiveEmitter(cfg, testutil.NewTestLogger(), WithWriterFactory(factory))
		_ = e.Start(context.Background())

		err := e.Emit(context.Background(), entry)
		assert.NoError(t, err)
	})

	t.Run("write error", func(t *testing.T) {
		mockWriter := testutil.NewWriteCloser(t)
		factory := func(c config.ArchiveEmitterConfig) (io.WriteCloser, error) {
			return mockWriter, nil
		}

		mockWriter.On("Write", mock.Anything).Return(0, errors.New("disk full"))

		e := NewArchiveEmitter(cfg, testutil.NewTestLogger(), WithWriterFactory(factory))
		_ = e.Start(context.Background())

		err := e.Emit(context.Background(), entry)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("not started", func(t *testing.T) {
		e := NewArchiveEmitter(cfg, testutil.NewTestLogger())
		assert.ErrorIs(t, e.Emit(context.Background(), entry), ErrNotStarted)
	})
}

func TestArchiveEmitter_Stop(t *testing.T) {
	mockWriter := testutil.NewWriteCloser(t)
	factory := func(c config.ArchiveEmitterConfig) (io.WriteCloser, error) {
		return mockWriter, nil
	}

	mockWriter.On("Close").Return(nil).Once()

	e := NewArchiveEmitter(config.ArchiveEmitterConfig{}, testutil.NewTestLogger(), WithWriterFactory(factory))
	_ = e.Start(context.Background())

	err := e.Stop(context.Background())
	assert.NoError(t, err)

	// A second Stop is a no-op.
	assert.NoError(t, e.Stop(context.Background()))
}

func TestArchiveEmitter_Lumberjack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "irc.log")
	cfg := config.ArchiveEmitterConfig{Enabled: true, Path: path, MaxSizeMB: 1, MaxBackups: 1}

	e := NewArchiveEmitter(cfg, testutil.NewTestLogger())
	require.NoError(t, e.Start(context.Background()))

	entry := &model.LogEntry{
		Timestamp: time.Date(2026, 3, 7, 9, 4, 5, 0, time.UTC),
		Message:   "plain line",
	}
	require.NoError(t, e.Emit(context.Background(), entry))
	require.NoError(t, e.Stop(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Mar 07 09:04:05 plain line\n", string(data))
}
