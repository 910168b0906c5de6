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
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/medifund/medifund/datum"
	"github.com/prometheus/client_golang/prometheus"
)

var ErrNotFound = errors.New("cache record not found")

// Record is a locally known campaign output. Records bridge the gap between
// submitting a transaction and seeing its outputs on chain.
type Record struct {
	LocalId     string    `json:"localId"`
	TxHash      string    `json:"txHash"`
	OutputIndex uint32    `json:"outputIndex"`
	CampaignId  uint64    `json:"campaignId"`
	Status      string    `json:"status"`
	Creator     string    `json:"creator"`
	DatumCbor   []byte    `json:"datumCbor"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Campaign decodes the stored datum
func (r Record) Campaign() (*datum.Campaign, error) {
	return datum.DecodeCampaign(r.DatumCbor)
}

// Store persists cache records
type Store interface {
	Put(ctx context.Context, record Record) error
	// Get returns ErrNotFound for an unknown id
	Get(ctx context.Context, localId string) (*Record, error)
	// List returns all records, most recently updated first
	List(ctx context.Context) ([]Record, error)
	DeleteByTxHash(ctx context.Context, txHash string) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// StoreConfig is handed to store plugins
type StoreConfig struct {
	// DataDir is the storage location. An empty value selects in-memory
	// storage.
	DataDir      string
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

type PluginEntry struct {
	Name        string
	Description string
	NewFunc     func(StoreConfig) (Store, error)
}

var (
	pluginEntries      []PluginEntry
	pluginEntriesMutex sync.RWMutex
)

// Register makes a store plugin available by name. It is meant to be called
// from a plugin package's init function.
func Register(entry PluginEntry) {
	pluginEntriesMutex.Lock()
	defer pluginEntriesMutex.Unlock()
	idx := slices.IndexFunc(pluginEntries, func(e PluginEntry) bool {
		return e.Name == entry.Name
	})
	if idx >= 0 {
		pluginEntries[idx] = entry
		return
	}
	pluginEntries = append(pluginEntries, entry)
}

// GetPlugins returns the registered plugins
func GetPlugins() []PluginEntry {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	return slices.Clone(pluginEntries)
}

// NewStore creates a store using the named plugin
func NewStore(name string, cfg StoreConfig) (Store, error) {
	pluginEntriesMutex.RLock()
	idx := slices.IndexFunc(pluginEntries, func(e PluginEntry) bool {
		return e.Name == name
	})
	var entry PluginEntry
	if idx >= 0 {
		entry = pluginEntries[idx]
	}
	pluginEntriesMutex.RUnlock()
	if idx < 0 {
		return nil, fmt.Errorf("cache plugin '%s' not found", name)
	}
	store, err := entry.NewFunc(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start cache plugin '%s': %w", name, err)
	}
	return store, nil
}
