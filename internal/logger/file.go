// internal/logger/file.go
package logger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileWriter is a thread-safe buffered file writer with periodic flush,
// usable as a zapcore.WriteSyncer.
type FileWriter struct {
	mu     sync.Mutex
	writer *bufio.Writer
	file   *os.File
	ticker *time.Ticker
	done   chan struct{}
	closed bool
}

// NewFileWriter opens path in append mode, creating parent directories as
// needed, and starts the flush loop.
func NewFileWriter(path string, flushInterval time.Duration) (*FileWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	fw := &FileWriter{
		writer: bufio.NewWriter(file),
		file:   file,
		ticker: time.NewTicker(flushInterval),
		done:   make(chan struct{}),
	}
	go fw.flushLoop()
	return fw, nil
}

func (fw *FileWriter) Write(data []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.closed {
		return 0, os.ErrClosed
	}
	return fw.writer.Write(data)
}

// Sync flushes buffered data to the file.
func (fw *FileWriter) Sync() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.closed {
		return nil
	}
	if err := fw.writer.Flush(); err != nil {
		return err
	}
	return fw.file.Sync()
}

// Close flushes and closes the file. Further writes fail.
func (fw *FileWriter) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.closed {
		return nil
	}
	fw.closed = true
	fw.ticker.Stop()
	close(fw.done)
	if err := fw.writer.Flush(); err != nil {
		_ = fw.file.Close()
		return err
	}
	return fw.file.Close()
}

func (fw *FileWriter) flushLoop() {
	for {
		select {
		case <-fw.done:
			return
		case <-fw.ticker.C:
			fw.mu.Lock()
			if !fw.closed {
				_ = fw.writer.Flush()
			}
			fw.mu.Unlock()
		}
	}
}
