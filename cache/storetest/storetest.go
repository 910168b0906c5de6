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

// Package storetest provides a conformance suite for cache store plugins
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/medifund/medifund/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(localId string, txHash string, updated time.Time) cache.Record {
	return cache.Record{
		LocalId:     localId,
		TxHash:      txHash,
		OutputIndex: 0,
		CampaignId:  7,
		Status:      "Active",
		Creator:     "0102",
		DatumCbor:   []byte{0xd8, 0x79, 0x80},
		CreatedAt:   updated.Add(-time.Minute),
		UpdatedAt:   updated,
	}
}

// Run exercises a store created by newStore. Each subtest gets a fresh
// store.
func Run(t *testing.T, newStore func(t *testing.T) cache.Store) {
	ctx := context.Background()
	base := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)

	t.Run("PutGet", func(t *testing.T) {
		store := newStore(t)
		rec := testRecord("a", "tx1", base)
		require.NoError(t, store.Put(ctx, rec))
		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, rec.TxHash, got.TxHash)
		assert.Equal(t, rec.CampaignId, got.CampaignId)
		assert.Equal(t, rec.DatumCbor, got.DatumCbor)
		assert.True(t, rec.UpdatedAt.Equal(got.UpdatedAt))
		_, err = store.Get(ctx, "missing")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("PutReplaces", func(t *testing.T) {
		store := newStore(t)
		rec := testRecord("a", "tx1", base)
		require.NoError(t, store.Put(ctx, rec))
		rec.Status = "Paused"
		rec.UpdatedAt = base.Add(time.Hour)
		require.NoError(t, store.Put(ctx, rec))
		records, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Paused", records[0].Status)
	})

	t.Run("ListOrder", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Put(ctx, testRecord("old", "tx1", base)))
		require.NoError(t, store.Put(ctx, testRecord("new", "tx2", base.Add(time.Hour))))
		records, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "new", records[0].LocalId)
		assert.Equal(t, "old", records[1].LocalId)
	})

	t.Run("DeleteByTxHash", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Put(ctx, testRecord("a", "tx1", base)))
		require.NoError(t, store.Put(ctx, testRecord("b", "tx1", base)))
		require.NoError(t, store.Put(ctx, testRecord("c", "tx2", base)))
		count, err := store.DeleteByTxHash(ctx, "tx1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		records, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "c", records[0].LocalId)
	})

	t.Run("Clear", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Put(ctx, testRecord("a", "tx1", base)))
		require.NoError(t, store.Clear(ctx))
		records, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
