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

// Package sqlite is a cache store backed by SQLite through GORM
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/medifund/medifund/cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

func init() {
	cache.Register(cache.PluginEntry{
		Name:        "sqlite",
		Description: "SQLite relational database",
		NewFunc: func(cfg cache.StoreConfig) (cache.Store, error) {
			return New(cfg.DataDir, cfg.Logger)
		},
	})
}

// CampaignRecord is the table model for cache records
type CampaignRecord struct {
	LocalId     string `gorm:"primaryKey"`
	TxHash      string `gorm:"index"`
	OutputIndex uint32
	CampaignId  uint64 `gorm:"index"`
	Status      string
	Creator     string
	DatumCbor   []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time `gorm:"index"`
}

func (CampaignRecord) TableName() string {
	return "campaign_record"
}

func fromRecord(r cache.Record) CampaignRecord {
	return CampaignRecord{
		LocalId:     r.LocalId,
		TxHash:      r.TxHash,
		OutputIndex: r.OutputIndex,
		CampaignId:  r.CampaignId,
		Status:      r.Status,
		Creator:     r.Creator,
		DatumCbor:   r.DatumCbor,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (c CampaignRecord) record() cache.Record {
	return cache.Record{
		LocalId:     c.LocalId,
		TxHash:      c.TxHash,
		OutputIndex: c.OutputIndex,
		CampaignId:  c.CampaignId,
		Status:      c.Status,
		Creator:     c.Creator,
		DatumCbor:   c.DatumCbor,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type StoreSqlite struct {
	db      *gorm.DB
	logger  *slog.Logger
	dataDir string
}

// New creates a SQLite cache store. Uses an in-memory database if dataDir is
// empty.
func New(dataDir string, logger *slog.Logger) (*StoreSqlite, error) {
	var db *gorm.DB
	var err error
	gormConfig := &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	}
	if dataDir == "" {
		db, err = gorm.Open(
			sqlite.Open("file::memory:?cache=shared"),
			gormConfig,
		)
		if err != nil {
			return nil, err
		}
	} else {
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, 0o700); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		dbPath := filepath.Join(dataDir, "cache.sqlite")
		connOpts := "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		db, err = gorm.Open(
			sqlite.Open(fmt.Sprintf("file:%s?%s", dbPath, connOpts)),
			gormConfig,
		)
		if err != nil {
			return nil, err
		}
	}
	s := &StoreSqlite{
		db:      db,
		logger:  logger,
		dataDir: dataDir,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if err := s.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	s.logger.Debug(
		"creating table",
		"component", "cache",
		"table", CampaignRecord{}.TableName(),
	)
	if err := s.db.AutoMigrate(&CampaignRecord{}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *StoreSqlite) Put(ctx context.Context, record cache.Record) error {
	tmp := fromRecord(record)
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		UpdateAll: true,
	}).Create(&tmp)
	return result.Error
}

func (s *StoreSqlite) Get(ctx context.Context, localId string) (*cache.Record, error) {
	var tmp CampaignRecord
	result := s.db.WithContext(ctx).
		Where("local_id = ?", localId).
		First(&tmp)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, cache.ErrNotFound
		}
		return nil, result.Error
	}
	ret := tmp.record()
	return &ret, nil
}

func (s *StoreSqlite) List(ctx context.Context) ([]cache.Record, error) {
	var tmp []CampaignRecord
	result := s.db.WithContext(ctx).
		Order("updated_at DESC").
		Order("local_id").
		Find(&tmp)
	if result.Error != nil {
		return nil, result.Error
	}
	ret := make([]cache.Record, 0, len(tmp))
	for _, r := range tmp {
		ret = append(ret, r.record())
	}
	return ret, nil
}

func (s *StoreSqlite) DeleteByTxHash(ctx context.Context, txHash string) (int, error) {
	result := s.db.WithContext(ctx).
		Where("tx_hash = ?", txHash).
		Delete(&CampaignRecord{})
	return int(result.RowsAffected), result.Error
}

func (s *StoreSqlite) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&CampaignRecord{}).Error
}

func (s *StoreSqlite) Close() error {
	sqlDb, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}
