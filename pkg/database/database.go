/*
toolscan
Copyright (C) 2023, 2024 Callan Barrett

This file is part of toolscan.

toolscan is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

toolscan is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with toolscan.  If not, see <http://www.gnu.org/licenses/>.
*/

package database

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/toolcrib/toolscan/pkg/config"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketHistory = "history"
	// DefaultHistoryLimit caps GetHistory when no limit is given.
	DefaultHistoryLimit = 25
)

func DbFile(dir string) string {
	return filepath.Join(dir, config.DbFilename)
}

// Check if the db exists on disk.
func DbExists(dir string) bool {
	_, err := os.Stat(DbFile(dir))
	return err == nil
}

// Open the db with the given options. If the database does not exist it
// will be created and the buckets will be initialized.
func open(path string, options *bolt.Options) (*bolt.DB, error) {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, options)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(txn *bolt.Tx) error {
		for _, bucket := range []string{
			BucketHistory,
		} {
			_, err := txn.CreateBucketIfNotExists([]byte(bucket))
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

type Database struct {
	bdb *bolt.DB
}

func Open(dir string) (*Database, error) {
	db, err := open(DbFile(dir), &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	return &Database{bdb: db}, nil
}

func (d *Database) Close() error {
	return d.bdb.Close()
}

// HistoryEntry is one decoded scan. Accepted is false when the text did not
// match any of the configured accept patterns.
type HistoryEntry struct {
	Id       uuid.UUID `json:"id"`
	Time     time.Time `json:"time"`
	Device   string    `json:"device"`
	Text     string    `json:"text"`
	Accepted bool      `json:"accepted"`
}

// Keys are the bucket sequence as big endian, so cursor order is insertion
// order even when two scans share a timestamp.
func historyKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func (d *Database) AddHistory(entry HistoryEntry) (HistoryEntry, error) {
	if entry.Id == uuid.Nil {
		entry.Id = uuid.New()
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}

	err := d.bdb.Update(func(txn *bolt.Tx) error {
		b := txn.Bucket([]byte(BucketHistory))

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}

		return b.Put(historyKey(seq), data)
	})

	return entry, err
}

// GetHistory returns up to maxResults entries, newest first.
func (d *Database) GetHistory(maxResults int) ([]HistoryEntry, error) {
	if maxResults <= 0 {
		maxResults = DefaultHistoryLimit
	}

	entries := make([]HistoryEntry, 0)

	err := d.bdb.View(func(txn *bolt.Tx) error {
		b := txn.Bucket([]byte(BucketHistory))

		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if len(entries) >= maxResults {
				break
			}

			var entry HistoryEntry
			err := json.Unmarshal(v, &entry)
			if err != nil {
				return err
			}

			entries = append(entries, entry)
		}

		return nil
	})

	return entries, err
}

func (d *Database) ClearHistory() error {
	return d.bdb.Update(func(txn *bolt.Tx) error {
		err := txn.DeleteBucket([]byte(BucketHistory))
		if err != nil {
			return err
		}
		_, err = txn.CreateBucket([]byte(BucketHistory))
		return err
	})
}
