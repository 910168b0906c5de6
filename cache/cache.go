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

package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/medifund/medifund/chain"
	"github.com/medifund/medifund/datum"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultPendingTTL is how long an unconfirmed record is kept before it is
// considered dropped
const DefaultPendingTTL = time.Hour

type Config struct {
	Store        Store
	Provider     chain.Provider
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	PendingTTL   time.Duration
	// Now defaults to time.Now
	Now func() time.Time
}

// Cache is a read-through view of campaign outputs that were submitted
// locally but may not be visible on chain yet. It is never authoritative.
type Cache struct {
	config  Config
	metrics cacheMetrics
}

type cacheMetrics struct {
	records     prometheus.Counter
	invalidated prometheus.Counter
}

func New(cfg Config) (*Cache, error) {
	if cfg.Store == nil {
		return nil, errors.New("cache: store not set")
	}
	if cfg.Provider == nil {
		return nil, errors.New("cache: provider not set")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.PendingTTL == 0 {
		cfg.PendingTTL = DefaultPendingTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	c := &Cache{config: cfg}
	factory := promauto.With(cfg.PromRegistry)
	c.metrics.records = factory.NewCounter(prometheus.CounterOpts{
		Name: "medifund_cache_records_total",
		Help: "Total number of campaign records written to the local cache",
	})
	c.metrics.invalidated = factory.NewCounter(prometheus.CounterOpts{
		Name: "medifund_cache_invalidated_total",
		Help: "Total number of campaign records dropped from the local cache",
	})
	return c, nil
}

func (c *Cache) Store() Store {
	return c.config.Store
}

// Record stores the campaign output created by a submitted transaction
func (c *Cache) Record(
	ctx context.Context,
	txHash lcommon.Blake2b256,
	outputIndex uint32,
	campaign *datum.Campaign,
) (*Record, error) {
	datumCbor, err := campaign.Cbor()
	if err != nil {
		return nil, fmt.Errorf("encode campaign datum: %w", err)
	}
	now := c.config.Now()
	rec := Record{
		LocalId:     newLocalId(),
		TxHash:      txHash.String(),
		OutputIndex: outputIndex,
		CampaignId:  campaign.CampaignId,
		Status:      campaign.Status.String(),
		Creator:     campaign.Creator.String(),
		DatumCbor:   datumCbor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.config.Store.Put(ctx, rec); err != nil {
		return nil, err
	}
	c.metrics.records.Inc()
	c.config.Logger.Debug(
		"cached campaign record",
		"component", "cache",
		"local_id", rec.LocalId,
		"tx_hash", rec.TxHash,
		"campaign_id", rec.CampaignId,
	)
	return &rec, nil
}

func (c *Cache) Records(ctx context.Context) ([]Record, error) {
	return c.config.Store.List(ctx)
}

// Invalidate drops records that are confirmed on chain, where the chain copy
// takes over, and records that stayed unknown to the provider for longer
// than the pending TTL. It returns the number of dropped records.
func (c *Cache) Invalidate(ctx context.Context) (int, error) {
	records, err := c.config.Store.List(ctx)
	if err != nil {
		return 0, err
	}
	now := c.config.Now()
	checked := make(map[string]bool)
	var dropped int
	for _, rec := range records {
		drop, ok := checked[rec.TxHash]
		if !ok {
			drop, err = c.superseded(ctx, rec, now)
			if err != nil {
				return dropped, err
			}
			checked[rec.TxHash] = drop
		}
		if !drop {
			continue
		}
		count, err := c.config.Store.DeleteByTxHash(ctx, rec.TxHash)
		if err != nil {
			return dropped, err
		}
		dropped += count
	}
	if dropped > 0 {
		c.metrics.invalidated.Add(float64(dropped))
		c.config.Logger.Debug(
			fmt.Sprintf("invalidated %d cached campaign records", dropped),
			"component", "cache",
		)
	}
	return dropped, nil
}

func (c *Cache) superseded(
	ctx context.Context,
	rec Record,
	now time.Time,
) (bool, error) {
	hashBytes, err := hex.DecodeString(rec.TxHash)
	if err != nil || len(hashBytes) != lcommon.Blake2b256Size {
		// Unusable record
		return true, nil
	}
	info, err := c.config.Provider.FetchTxInfo(
		ctx,
		lcommon.NewBlake2b256(hashBytes),
	)
	if err != nil {
		return false, fmt.Errorf("fetch tx %s: %w", rec.TxHash, err)
	}
	if info != nil {
		return info.Confirmed, nil
	}
	return now.Sub(rec.CreatedAt) > c.config.PendingTTL, nil
}

func newLocalId() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
