package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FileStorage is an append-only JSON lines journal of records. The whole
// journal is indexed in memory on open; new records are appended.
type FileStorage struct {
	mu      sync.Mutex
	file    *os.File
	index   map[string]ProxyRecord
	logger  *zap.Logger
	encoder *json.Encoder
}

// NewFileStorage opens or creates the journal at p and loads its records.
func NewFileStorage(p string, logger *zap.Logger) (*FileStorage, error) {
	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(p), 0770); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0660)
	if err != nil {
		return nil, err
	}

	fs := &FileStorage{
		file:    file,
		index:   make(map[string]ProxyRecord),
		logger:  logger,
		encoder: json.NewEncoder(file),
	}

	if err := fs.load(); err != nil {
		_ = file.Close()
		return nil, err
	}

	logger.Info("file storage loaded", zap.String("path", p), zap.Int("records", len(fs.index)))
	return fs, nil
}

func (fs *FileStorage) load() error {
	scanner := bufio.NewScanner(fs.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var r ProxyRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return fmt.Errorf("failed to parse JSON line %d: %w", line, err)
		}
		// first occurrence wins, later duplicates are ignored
		if _, ok := fs.index[r.ID]; !ok {
			fs.index[r.ID] = r
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	return nil
}

func (fs *FileStorage) GetOrCreate(_ context.Context, r ProxyRecord) (ProxyRecord, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if existing, ok := fs.index[r.ID]; ok {
		return existing, false, nil
	}

	if err := fs.encoder.Encode(r); err != nil {
		return ProxyRecord{}, false, fmt.Errorf("append record: %w", err)
	}

	fs.index[r.ID] = r
	return r, true, nil
}

func (fs *FileStorage) FindByID(_ context.Context, id string) (ProxyRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	r, ok := fs.index[id]
	if !ok {
		return ProxyRecord{}, ErrNotFound
	}

	return r, nil
}

func (fs *FileStorage) PingContext(_ context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.file == nil {
		return errors.New("file storage closed")
	}

	_, err := fs.file.Stat()
	return err
}

func (fs *FileStorage) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.file == nil {
		return nil
	}

	err := fs.file.Close()
	fs.file = nil
	return err
}
