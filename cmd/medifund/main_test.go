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

package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/medifund/medifund/cache"
	"github.com/medifund/medifund/cache/sqlite"
	"github.com/medifund/medifund/chain"
	"github.com/medifund/medifund/datum"
	"github.com/medifund/medifund/internal/config"
	"github.com/medifund/medifund/internal/test/testutil"
	"github.com/medifund/medifund/query"
	"github.com/medifund/medifund/txbuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAda(t *testing.T) {
	lovelace, err := parseAda("12.5")
	require.NoError(t, err)
	assert.Equal(t, uint64(12_500_000), lovelace)

	_, err = parseAda("lots")
	assert.Error(t, err)
	_, err = parseAda("-1")
	assert.Error(t, err)

	assert.Equal(t, "12.500000", formatAda(12_500_000))
	assert.Equal(t, "0.000001", formatAda(1))
}

func TestParseKeyHash(t *testing.T) {
	keyHash := testutil.Hash224(0x0c)
	got, err := parseKeyHash("creator", keyHash.String())
	require.NoError(t, err)
	assert.Equal(t, keyHash, got)

	_, err = parseKeyHash("creator", "abcd")
	assert.ErrorContains(t, err, "creator")
}

func testCampaignUtxo() query.CampaignUtxo {
	claimDate := int64(1_700_000_000_000)
	return query.CampaignUtxo{
		Ref: chain.TxRef{Hash: testutil.Hash256(0x01), Index: 2},
		Campaign: &datum.Campaign{
			CampaignId:   7,
			Title:        "Surgery",
			TotalGoal:    100_000_000,
			CurrentFunds: 50_000_000,
			TotalClaimed: 25_000_000,
			Creator:      testutil.Hash224(0x01),
			Deadline:     1_800_000_000_000,
			Status:       datum.StatusActive,
			Milestones: []datum.Milestone{
				{Percentage: 25, Claimed: true, ClaimDate: &claimDate, AmountClaimed: 25_000_000},
				{Percentage: 100},
			},
		},
	}
}

func TestCampaignView(t *testing.T) {
	now := datum.PosixToTime(1_799_913_600_000)
	view := newCampaignView(testCampaignUtxo(), now)
	assert.Equal(t, uint64(7), view.CampaignId)
	assert.Equal(t, "Active", view.Status)
	assert.InDelta(t, 50.0, view.PercentFunded, 0.001)
	assert.Equal(t, uint64(50_000_000), view.Remaining)
	assert.Equal(t, "1d 0h 0m", view.TimeRemaining)
	require.Len(t, view.Milestones, 2)
	assert.NotEmpty(t, view.Milestones[0].ClaimDate)
	assert.Empty(t, view.Milestones[1].ClaimDate)

	var buf bytes.Buffer
	require.NoError(t, writeCampaignTable(&buf, []query.CampaignUtxo{testCampaignUtxo()}, now))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Surgery")
	assert.Contains(t, lines[1], "50.0%")
	assert.Contains(t, lines[1], "100.000000")
}

func newTestApp(t *testing.T, provider chain.Provider) *app {
	t.Helper()
	store, err := sqlite.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	c, err := cache.New(cache.Config{Store: store, Provider: provider})
	require.NoError(t, err)
	return &app{
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		cache:  c,
	}
}

func testUnsignedTx(t *testing.T) *txbuilder.UnsignedTx {
	t.Helper()
	tx := chain.Tx{Body: []byte{0xa1, 0x02, 0x19, 0x01, 0x00}, Valid: true}
	txCbor, err := tx.Cbor()
	require.NoError(t, err)
	return &txbuilder.UnsignedTx{
		Cbor:       txCbor,
		Hash:       tx.Hash(),
		Fee:        200_000,
		Action:     datum.ActionCreateCampaign.String(),
		CampaignId: 7,
		Campaign:   testCampaignUtxo().Campaign,
	}
}

func TestSignAndSubmitDryRun(t *testing.T) {
	provider := testutil.NewProvider()
	a := newTestApp(t, provider)
	w := &testutil.Wallet{Provider: provider}
	tx := testUnsignedTx(t)

	view, err := a.signAndSubmit(context.Background(), w, tx, true)
	require.NoError(t, err)
	assert.False(t, view.Submitted)
	assert.Equal(t, tx.Hash.String(), view.TxHash)
	signed, err := hex.DecodeString(view.Cbor)
	require.NoError(t, err)
	decoded, err := chain.DecodeTx(signed)
	require.NoError(t, err)
	witnesses, err := decoded.VkeyWitnesses()
	require.NoError(t, err)
	assert.Len(t, witnesses, 1)

	assert.Empty(t, provider.Submitted())
	records, err := a.cache.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSignAndSubmitRecordsCampaign(t *testing.T) {
	provider := testutil.NewProvider()
	a := newTestApp(t, provider)
	w := &testutil.Wallet{Provider: provider}
	tx := testUnsignedTx(t)

	view, err := a.signAndSubmit(context.Background(), w, tx, false)
	require.NoError(t, err)
	assert.True(t, view.Submitted)
	assert.Empty(t, view.Cbor)
	assert.Equal(t, tx.Hash.String(), view.TxHash)
	assert.Len(t, provider.Submitted(), 1)

	records, err := a.cache.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, tx.Hash.String(), records[0].TxHash)
	assert.Equal(t, uint64(7), records[0].CampaignId)

	// Once confirmed the next submission drops the cached copy
	provider.SetTxInfo(chain.TxInfo{Hash: tx.Hash, Confirmed: true, Slot: 10})
	tx.Campaign = nil
	_, err = a.signAndSubmit(context.Background(), w, tx, false)
	require.NoError(t, err)
	records, err = a.cache.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRedacted(t *testing.T) {
	cfg := &config.Config{UtxorpcApiKey: "secret", BlockfrostProjectId: "secret"}
	got := redacted(cfg)
	assert.Equal(t, "<redacted>", got.UtxorpcApiKey)
	assert.Equal(t, "<redacted>", got.BlockfrostProjectId)
	assert.Equal(t, "secret", cfg.UtxorpcApiKey)
}

func TestListCachePlugins(t *testing.T) {
	out := listCachePlugins()
	assert.Contains(t, out, "sqlite")
	assert.Contains(t, out, "badger")
}
