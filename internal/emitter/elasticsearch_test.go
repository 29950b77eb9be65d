package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/model"
	"github.com/GabrielNunesIT/logbot/internal/testutil"
)

func TestElasticsearchEmitter_Start(t *testing.T) {
	tests := []struct {
		name          string
		cfg           config.ElasticsearchEmitterConfig
		factoryMock   func(*testing.T) IndexerFactory
		expectedError string
	}{
		{
			name: "Success",
			cfg: config.ElasticsearchEmitterConfig{
				Enabled:   true,
				Addresses: []string{"http://localhost:9200"},
				Index:     "irc",
			},
			factoryMock: func(t *testing.T) IndexerFactory {
				mockIndexer := testutil.NewBulkIndexer(t)
				return func(c config.ElasticsearchEmitterConfig) (esutil.BulkIndexer, error) {
					return mockIndexer, nil
				}
			},
			expectedError: "",
		},
		{
			name: "Factory Error",
			cfg:  config.ElasticsearchEmitterConfig{Enabled: true},
			factoryMock: func(t *testing.T) IndexerFactory {
				return func(c config.ElasticsearchEmitterConfig) (esutil.BulkIndexer, error) {
					return nil, errors.New("factory failure")
				}
			},
			expectedError: "factory failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := tt.factoryMock(t)
			e := NewElasticsearchEmitter(tt.cfg, testutil.NewTestLogger(), WithIndexerFactory(factory))
			err := e.Start(context.Background())
			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestElasticsearchEmitter_Emit(t *testing.T) {
	ts := time.Date(2026, 3, 7, 9, 4, 5, 0, time.UTC)
	record := &model.LogEntry{
		Timestamp: ts,
		Source:    "stdin",
		Fields:    map[string]any{"action": "message", "nick": "bob", "text": "hi"},
	}
	text := &model.LogEntry{
		Timestamp: ts,
		Source:    "stdin",
		Message:   "plain line",
	}

	tests := []struct {
		name     string
		entry    *model.LogEntry
		wantBody map[string]any
	}{
		{
			name:  "Record",
			entry: record,
			wantBody: map[string]any{
				"@timestamp": "2026-03-07T09:04:05Z",
				"source":     "stdin",
				"action":     "message",
				"nick":       "bob",
				"text":       "hi",
			},
		},
		{
			name:  "Text",
			entry: text,
			wantBody: map[string]any{
				"@timestamp": "2026-03-07T09:04:05Z",
				"source":     "stdin",
				"message":    "plain line",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockIndexer := testutil.NewBulkIndexer(t)
			mockIndexer.On("Add", mock.Anything, mock.MatchedBy(func(item esutil.BulkIndexerItem) bool {
				return item.Action == "index"
			})).Return(nil).Run(func(args mock.Arguments) {
				item := args.Get(1).(esutil.BulkIndexerItem)
				bodyBytes, _ := io.ReadAll(item.Body)
				var bodyMap map[string]any
				_ = json.Unmarshal(bodyBytes, &bodyMap)
				assert.Equal(t, tt.wantBody, bodyMap)
			})

			factory := func(c config.ElasticsearchEmitterConfig) (esutil.BulkIndexer, error) {
				return mockIndexer, nil
			}

			e := NewElasticsearchEmitter(config.ElasticsearchEmitterConfig{Enabled: true, Index: "irc"}, testutil.NewTestLogger(), WithIndexerFactory(factory))
			_ = e.Start(context.Background())

			assert.NoError(t, e.Emit(context.Background(), tt.entry))
		})
	}
}

func TestElasticsearchEmitter_EmitBeforeStart(t *testing.T) {
	e := NewElasticsearchEmitter(config.ElasticsearchEmitterConfig{Enabled: true}, testutil.NewTestLogger())
	assert.ErrorIs(t, e.Emit(context.Background(), model.NewTextEntry("stdin", "x")), ErrNotStarted)
}

func TestElasticsearchEmitter_Stop(t *testing.T) {
	mockIndexer := testutil.NewBulkIndexer(t)
	mockIndexer.On("Close", mock.Anything).Return(nil)
	mockIndexer.On("Stats").Return(esutil.BulkIndexerStats{NumIndexed: 3})

	factory := func(c config.ElasticsearchEmitterConfig) (esutil.BulkIndexer, error) {
		return mockIndexer, nil
	}

	e := NewElasticsearchEmitter(config.ElasticsearchEmitterConfig{Enabled: true}, testutil.NewTestLogger(), WithIndexerFactory(factory))
	_ = e.Start(context.Background())

	assert.NoError(t, e.Stop(context.Background()))
	assert.NoError(t, e.Stop(context.Background()))
}
