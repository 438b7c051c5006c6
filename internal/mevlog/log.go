// =============================
// File: internal/mevlog/log.go
// =============================
package mevlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-mev/internal/metrics"
)

// shutdownMsg is the in-band shutdown variant: the worker drains every
// record enqueued ahead of it, then exits. Records sent concurrently
// with shutdown may race it; that is an accepted limitation.
type shutdownMsg struct{}

// Log is the asynchronous MEV record log. Exactly one background
// goroutine owns the file handle and is the only writer for the
// lifetime of the process, so no file-level locking is necessary.
// Records are written in strict arrival order as newline-delimited
// JSON, appended and flushed per write.
type Log struct {
	Path string

	queue  *queue
	file   *os.File
	logger *zap.Logger
	done   chan struct{}

	shutdownOnce sync.Once
}

// New opens (or creates) the record file in append mode and starts the
// worker goroutine.
func New(path string, logger *zap.Logger) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open MEV log file: %w", err)
	}

	l := &Log{
		Path:   path,
		queue:  newQueue(),
		file:   file,
		logger: logger.Named("mev_log"),
		done:   make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// Send enqueues a record without blocking on the worker. It fails only
// when the worker has already terminated; callers log that locally at
// warning level and carry on.
func (l *Log) Send(record any) error {
	err := l.queue.Push(record)
	metrics.LogQueueDepth.Set(float64(l.queue.Len()))
	return err
}

// Shutdown enqueues the shutdown variant and waits for the worker to
// drain everything sent before it.
func (l *Log) Shutdown() {
	l.shutdownOnce.Do(func() {
		if err := l.queue.Push(shutdownMsg{}); err != nil {
			return
		}
		<-l.done
	})
}

// run is the worker loop: single consumer, strictly FIFO.
func (l *Log) run() {
	defer close(l.done)
	defer func() {
		if err := l.file.Close(); err != nil {
			l.logger.Warn("Failed to close MEV log file", zap.Error(err))
		}
	}()

	for {
		item, ok := l.queue.Pop()
		if !ok {
			return
		}
		metrics.LogQueueDepth.Set(float64(l.queue.Len()))
		if _, isShutdown := item.(shutdownMsg); isShutdown {
			l.queue.Close()
			return
		}
		l.write(item)
	}
}

func (l *Log) write(record any) {
	line, err := json.Marshal(record)
	if err != nil {
		// Records are constructed by us; a marshal failure is a bug,
		// but it must never take the worker down.
		l.logger.Error("Failed to serialize MEV record", zap.Error(err))
		return
	}
	line = append(line, '\n')
	if _, err := l.file.Write(line); err != nil {
		l.logger.Error("Failed to write MEV record", zap.String("file", l.Path), zap.Error(err))
	}
}
