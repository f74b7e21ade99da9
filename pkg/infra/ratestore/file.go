package ratestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/NeuralTrust/TrustGuard/pkg/domain/admission"
	"github.com/sirupsen/logrus"
)

// snapshot is the on-disk layout: client key -> admitted request times in
// fractional unix seconds.
type snapshot map[string][]float64

// fileStore mirrors the whole state into one JSON file. It is read once at
// startup and rewritten on every save, so it only fits low traffic single
// process deployments; use the redis backend beyond that.
type fileStore struct {
	mu     sync.Mutex
	path   string
	states map[string]admission.RateWindowState
	logger *logrus.Logger
}

func NewFileStore(path string, logger *logrus.Logger) (admission.RateStore, error) {
	if path == "" {
		return nil, errors.New("file store path is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create rate store directory: %w", err)
	}

	s := &fileStore{
		path:   path,
		states: make(map[string]admission.RateWindowState),
		logger: logger,
	}
	if err := s.restore(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStore) restore() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read rate store snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode rate store snapshot: %w", err)
	}
	for raw, values := range snap {
		if _, err := admission.ParseClientKey(raw); err != nil {
			s.logger.WithField("client_key", raw).Warn("skipping malformed key in rate store snapshot")
			continue
		}
		s.states[raw] = admission.RateWindowStateFromUnixSeconds(values)
	}

	s.logger.WithFields(logrus.Fields{
		"path": s.path,
		"keys": len(s.states),
	}).Info("rate store snapshot loaded")
	return nil
}

func (s *fileStore) Load(ctx context.Context, key admission.ClientKey) (admission.RateWindowState, bool, error) {
	if err := ctx.Err(); err != nil {
		return admission.RateWindowState{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return admission.RateWindowState{}, false, err
	}
	state, ok := s.states[key.String()]
	if !ok {
		return admission.RateWindowState{}, false, nil
	}
	return state.Clone(), true, nil
}

func (s *fileStore) Save(ctx context.Context, key admission.ClientKey, state admission.RateWindowState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	previous, existed := s.states[key.String()]
	if state.Len() == 0 {
		delete(s.states, key.String())
	} else {
		s.states[key.String()] = state.Clone()
	}
	if err := s.flushLocked(); err != nil {
		if existed {
			s.states[key.String()] = previous
		} else {
			delete(s.states, key.String())
		}
		return err
	}
	return nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// flushLocked writes the snapshot to a temp file and renames it over the
// previous one so readers never observe a partial file.
func (s *fileStore) flushLocked() error {
	snap := make(snapshot, len(s.states))
	for key, state := range s.states {
		snap[key] = state.UnixSeconds()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode rate store snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create rate store temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write rate store snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync rate store snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close rate store snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace rate store snapshot: %w", err)
	}
	return nil
}
