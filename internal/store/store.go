// Package store persists loaded paths in BoltDB so the updater can restore
// its route after a restart.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"WaypointUpdater/internal/model"
)

// ErrNoPath is returned when nothing has been saved yet.
var ErrNoPath = errors.New("no stored path")

var pathsBucket = []byte("paths")

// Record is one saved path.
type Record struct {
	RouteID   string           `json:"route_id"`
	SavedAt   time.Time        `json:"saved_at"`
	Waypoints []model.Waypoint `json:"waypoints"`
}

// Store wraps a BoltDB file.
type Store struct {
	DB *bbolt.DB
}

// Open opens or creates the database at path, creating its directory.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("[store] failed to create %s: %w", dir, err)
		}
	}
	db, err := bbolt.Open(path, 0o666, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("[store] failed to open BoltDB: %w", err)
	}
	return &Store{DB: db}, nil
}

// SavePath appends a path record under a monotonically increasing key.
func (s *Store) SavePath(id string, wps []model.Waypoint) error {
	v, err := json.Marshal(Record{RouteID: id, SavedAt: time.Now().UTC(), Waypoints: wps})
	if err != nil {
		return err
	}
	err = s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(pathsBucket)
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, v)
	})
	if err != nil {
		return fmt.Errorf("[store] save path %s: %w", id, err)
	}
	log.Printf("[store] saved route %s (%d waypoints)", id, len(wps))
	return nil
}

// LatestPath returns the most recently saved path.
func (s *Store) LatestPath() (Record, error) {
	var rec Record
	err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(pathsBucket)
		if b == nil {
			return ErrNoPath
		}
		_, v := b.Cursor().Last()
		if v == nil {
			return ErrNoPath
		}
		return json.Unmarshal(v, &rec)
	})
	return rec, err
}

// Count returns the number of saved paths.
func (s *Store) Count() (int, error) {
	n := 0
	err := s.DB.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(pathsBucket); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
