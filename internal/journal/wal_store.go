package journal

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"RiskSentinel/internal/model"
)

const (
	DefaultDir   = "./data/journal"
	segmentLimit = 500
	maxSegments  = 10
)

// WALStore persists activity events in a write-ahead log.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens (or creates) the activity journal under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "activity_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init activity WAL")
	}
	return &WALStore{wal: wal}, nil
}

// Record appends one activity event.
func (s *WALStore) Record(evt model.ActivityEvent) error {
	if s == nil || s.wal == nil {
		return errors.New("activity journal is not initialized")
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "marshal activity event")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Write(s.wal.CurrentIndex()+1, string(evt.Kind), payload)
}

// Recent returns up to n of the latest events, newest first.
func (s *WALStore) Recent(n int) ([]model.ActivityEvent, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("activity journal is not initialized")
	}
	if n <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []model.ActivityEvent
	for m := range s.wal.Iterator() {
		var evt model.ActivityEvent
		if err := json.Unmarshal(m.Value, &evt); err != nil {
			return nil, errors.Wrapf(err, "decode activity event %s", m.Key)
		}
		all = append(all, evt)
	}

	out := make([]model.ActivityEvent, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// CurrentIndex returns the index of the latest event.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("activity journal is not initialized")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wal.Close()
}
