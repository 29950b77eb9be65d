package ingestor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/nxadm/tail"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/logging"
	"github.com/GabrielNunesIT/logbot/internal/model"
)

// TailFunc opens a followed file.
type TailFunc func(path string, cfg tail.Config) (*tail.Tail, error)

// FileOption configures the FileIngestor.
type FileOption func(*FileIngestor)

// WithTailFunc sets a custom tail constructor.
func WithTailFunc(f TailFunc) FileOption {
	return func(fi *FileIngestor) {
		fi.tailFile = f
	}
}

// FileIngestor follows files matching the configured paths, e.g. an IRC client's raw log.
// Rotation and truncation are handled by reopening.
type FileIngestor struct {
	cfg      config.FileIngestorConfig
	name     string
	tailFile TailFunc
	logger   logging.ILogger
}

// NewFileIngestor creates a new file tailing ingestor.
func NewFileIngestor(cfg config.FileIngestorConfig, log logging.ILogger, opts ...FileOption) *FileIngestor {
	f := &FileIngestor{
		cfg:      cfg,
		name:     "file",
		tailFile: tail.TailFile,
		logger:   log.SubLogger("FileIngestor"),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Name returns the ingestor identifier.
func (f *FileIngestor) Name() string {
	return f.name
}

// Start tails every matched file and sends its lines to the output channel.
func (f *FileIngestor) Start(ctx context.Context, out chan<- *model.LogEntry) error {
	defer close(out)

	files, err := f.expand()
	if err != nil {
		return err
	}

	location := &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	if f.cfg.FromStart {
		location = &tail.SeekInfo{Offset: 0, Whence: io.SeekStart}
	}

	tails := make([]*tail.Tail, 0, len(files))
	defer func() {
		for _, t := range tails {
			_ = t.Stop()
			t.Cleanup()
		}
	}()

	for _, path := range files {
		t, err := f.tailFile(path, tail.Config{
			Location:  location,
			ReOpen:    true,
			MustExist: false,
			Follow:    true,
			Poll:      f.cfg.Poll,
			Logger:    tail.DiscardingLogger,
		})
		if err != nil {
			return fmt.Errorf("tailing file %q: %w", path, err)
		}
		tails = append(tails, t)
		f.logger.Infof("tailing %s", path)
	}

	var wg sync.WaitGroup
	for i, t := range tails {
		wg.Add(1)
		go func(path string, t *tail.Tail) {
			defer wg.Done()
			f.follow(ctx, path, t, out)
		}(files[i], t)
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// follow forwards the lines of one file until the context is done.
func (f *FileIngestor) follow(ctx context.Context, path string, t *tail.Tail, out chan<- *model.LogEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-t.Lines:
			if !ok {
				return
			}
			if line == nil {
				continue
			}
			if line.Err != nil {
				f.logger.Warningf("reading %s: %v", path, line.Err)
				continue
			}
			if line.Text == "" {
				continue
			}

			if !send(ctx, out, model.NewTextEntry(f.name, line.Text)) {
				return
			}
		}
	}
}

// expand resolves glob patterns. Paths without a match are tailed anyway so files that do
// not exist yet are picked up once created.
func (f *FileIngestor) expand() ([]string, error) {
	if len(f.cfg.Paths) == 0 {
		return nil, fmt.Errorf("no paths configured")
	}

	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range f.cfg.Paths {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 && !hasMeta(pattern) {
			matches = []string{pattern}
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files matched patterns: %v", f.cfg.Paths)
	}
	return files, nil
}

func hasMeta(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', '\\':
			return true
		}
	}
	return false
}
