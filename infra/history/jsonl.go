package history

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	corehistory "github.com/kilianp07/busdepot/core/history"
	"github.com/kilianp07/busdepot/core/model"
)

// JSONLConfig configures the JSON lines backend. A positive MaxSizeMB enables
// rotation.
type JSONLConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// JSONLStore stores one evaluation per line.
type JSONLStore struct {
	path string
	mu   sync.Mutex
	out  io.WriteCloser
}

// NewJSONLStore opens the history file for appending, creating its
// directory when needed. Path defaults to history.jsonl.
func NewJSONLStore(cfg JSONLConfig) (*JSONLStore, error) {
	if cfg.Path == "" {
		cfg.Path = "history.jsonl"
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	s := &JSONLStore{path: cfg.Path}
	if cfg.MaxSizeMB > 0 {
		s.out = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		return s, nil
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	s.out = f
	return s, nil
}

// Append writes the evaluation as one JSON line.
func (s *JSONLStore) Append(ctx context.Context, ev model.Evaluation) error {
	_ = ctx
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.out.Write(b)
	return err
}

// Query reads the active file and any rotated backups.
func (s *JSONLStore) Query(ctx context.Context, q corehistory.Query) ([]model.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	files, err := s.files()
	if err != nil {
		return nil, err
	}
	var res []model.Evaluation
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		evs, err := readLines(name, q)
		if err != nil {
			return nil, err
		}
		res = append(res, evs...)
	}
	return q.Apply(res), nil
}

// files lists backups (path-<timestamp>.ext) followed by the active file.
func (s *JSONLStore) files() ([]string, error) {
	ext := filepath.Ext(s.path)
	prefix := strings.TrimSuffix(s.path, ext)
	backups, err := filepath.Glob(prefix + "-*" + ext)
	if err != nil {
		return nil, err
	}
	sort.Strings(backups)
	return append(backups, s.path), nil
}

func readLines(name string, q corehistory.Query) ([]model.Evaluation, error) {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var res []model.Evaluation
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var ev model.Evaluation
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		if q.Match(ev) {
			res = append(res, ev)
		}
	}
	return res, scanner.Err()
}

// Close closes the active file.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Close()
}
