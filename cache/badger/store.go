// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package badger is a cache store backed by the badger key/value database
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/medifund/medifund/cache"
)

const keyPrefix = "campaign:"

func init() {
	cache.Register(cache.PluginEntry{
		Name:        "badger",
		Description: "BadgerDB local key/value store",
		NewFunc: func(cfg cache.StoreConfig) (cache.Store, error) {
			return New(cfg.DataDir, cfg.Logger)
		},
	})
}

type StoreBadger struct {
	db     *badger.DB
	logger *slog.Logger
}

// New creates a badger cache store. Data is kept in memory if dataDir is
// empty.
func New(dataDir string, logger *slog.Logger) (*StoreBadger, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	var badgerOpts badger.Options
	if dataDir == "" {
		badgerOpts = badger.DefaultOptions("").
			WithInMemory(true)
	} else {
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, 0o700); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		badgerOpts = badger.DefaultOptions(filepath.Join(dataDir, "cache"))
	}
	badgerOpts = badgerOpts.
		WithLogger(NewBadgerLogger(logger)).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	return &StoreBadger{db: db, logger: logger}, nil
}

func recordKey(localId string) []byte {
	return []byte(keyPrefix + localId)
}

func (s *StoreBadger) Put(_ context.Context, record cache.Record) error {
	val, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(record.LocalId), val)
	})
}

func (s *StoreBadger) Get(_ context.Context, localId string) (*cache.Record, error) {
	var ret cache.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(localId))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ret)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, cache.ErrNotFound
		}
		return nil, err
	}
	return &ret, nil
}

func (s *StoreBadger) List(_ context.Context) ([]cache.Record, error) {
	var ret []cache.Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var tmp cache.Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &tmp)
			})
			if err != nil {
				return err
			}
			ret = append(ret, tmp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(ret, func(a, b cache.Record) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		switch {
		case a.LocalId < b.LocalId:
			return -1
		case a.LocalId > b.LocalId:
			return 1
		}
		return 0
	})
	return ret, nil
}

func (s *StoreBadger) DeleteByTxHash(ctx context.Context, txHash string) (int, error) {
	records, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	var deleted int
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, r := range records {
			if r.TxHash != txHash {
				continue
			}
			if err := txn.Delete(recordKey(r.LocalId)); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *StoreBadger) Clear(_ context.Context) error {
	return s.db.DropPrefix([]byte(keyPrefix))
}

func (s *StoreBadger) Close() error {
	return s.db.Close()
}

// BadgerLogger adapts slog to the badger logger interface
type BadgerLogger struct {
	logger *slog.Logger
}

func NewBadgerLogger(logger *slog.Logger) *BadgerLogger {
	return &BadgerLogger{
		logger: logger.With("component", "cache"),
	}
}

func (b *BadgerLogger) Errorf(msg string, args ...any) {
	b.logger.Error(fmt.Sprintf("badger: "+msg, args...))
}

func (b *BadgerLogger) Warningf(msg string, args ...any) {
	b.logger.Warn(fmt.Sprintf("badger: "+msg, args...))
}

func (b *BadgerLogger) Infof(msg string, args ...any) {
	b.logger.Info(fmt.Sprintf("badger: "+msg, args...))
}

func (b *BadgerLogger) Debugf(msg string, args ...any) {
	b.logger.Debug(fmt.Sprintf("badger: "+msg, args...))
}
