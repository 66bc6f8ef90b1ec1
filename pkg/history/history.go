// On-disk measurement history
//
// Every completed pass is appended to an embedded bolt database so the
// meter's readings survive restarts and can be inspected later.
//
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"lightmeter-go/pkg/engine"
	"lightmeter-go/pkg/log"
)

var readingsBucket = []byte("readings")

// Entry is one stored measurement.
type Entry struct {
	Time           time.Time `json:"time"`
	Mode           string    `json:"mode"`
	ISO            int       `json:"iso"`
	AggregateLux   float64   `json:"aggregate_lux"`
	EV             float64   `json:"ev"`
	Recommendation string    `json:"recommendation"`
}

// Store is an append-only measurement log backed by bolt.
type Store struct {
	db     *bolt.DB
	logger *log.Logger
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("history: unable to open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(readingsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("history: unable to create bucket: %w", err)
	}
	return &Store{db: db, logger: log.GetLogger("history")}, nil
}

// Append stores one measurement. Keys are the bucket sequence number in
// big-endian order, so a cursor walks entries chronologically.
func (s *Store) Append(m *engine.Measurement) error {
	entry := Entry{
		Time:           m.Time,
		Mode:           m.Mode.String(),
		ISO:            m.ISO,
		AggregateLux:   m.AggregateLux,
		EV:             m.EV,
		Recommendation: m.Recommendation.Text,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(readingsBucket)
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], id)
		return b.Put(key[:], data)
	})
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(readingsBucket).Cursor()
		for k, v := c.Last(); k != nil && len(entries) < n; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				s.logger.Warn("skipping corrupt history entry: %v", err)
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Len returns the number of stored entries.
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(readingsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
