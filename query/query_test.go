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

package query_test

import (
	"math"
	"testing"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/plutigo/data"
	"github.com/medifund/medifund/cache"
	"github.com/medifund/medifund/cache/sqlite"
	"github.com/medifund/medifund/chain"
	"github.com/medifund/medifund/datum"
	"github.com/medifund/medifund/internal/test/testutil"
	"github.com/medifund/medifund/query"
	"github.com/medifund/medifund/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeLocator struct {
	registry *script.Registry
}

func (f fakeLocator) PatientRegistry() (*script.Registry, error) {
	return f.registry, nil
}

func scriptAddress(t *testing.T) lcommon.Address {
	t.Helper()
	addr, err := lcommon.NewAddressFromParts(
		lcommon.AddressTypeScriptNone,
		chain.NetworkIdTestnet,
		testutil.Hash224(0xcc).Bytes(),
		nil,
	)
	require.NoError(t, err)
	return addr
}

func testCampaign(id uint64, status datum.Status, creator byte) *datum.Campaign {
	return &datum.Campaign{
		CampaignId:  id,
		Title:       "Campaign",
		TotalGoal:   100_000_000,
		Creator:     testutil.Hash224(creator),
		Beneficiary: testutil.Hash224(0x10),
		Status:      status,
		Milestones:  []datum.Milestone{{Percentage: 50}, {Percentage: 100}},
		LastUpdated: int64(id),
	}
}

func campaignUtxo(
	t *testing.T,
	addr lcommon.Address,
	txByte byte,
	c *datum.Campaign,
) chain.Utxo {
	t.Helper()
	return campaignUtxoValue(t, addr, txByte, c, 2_000_000)
}

func campaignUtxoValue(
	t *testing.T,
	addr lcommon.Address,
	txByte byte,
	c *datum.Campaign,
	lovelace uint64,
) chain.Utxo {
	t.Helper()
	datumCbor, err := c.Cbor()
	require.NoError(t, err)
	return testutil.Utxo(
		t,
		chain.TxRef{Hash: testutil.Hash256(txByte)},
		chain.Output{Address: addr, Lovelace: lovelace, Datum: datumCbor},
	)
}

type fixture struct {
	provider *testutil.Provider
	scanner  *query.Scanner
	addr     lcommon.Address
}

func newFixture(t *testing.T, c *cache.Cache) fixture {
	t.Helper()
	addr := scriptAddress(t)
	provider := testutil.NewProvider()
	scanner, err := query.NewScanner(query.ScannerConfig{
		Provider: provider,
		Locator:  fakeLocator{registry: &script.Registry{Address: &addr}},
		Cache:    c,
	})
	require.NoError(t, err)
	return fixture{provider: provider, scanner: scanner, addr: addr}
}

func (f fixture) seed(t *testing.T) {
	t.Helper()
	f.provider.AddUtxo(campaignUtxo(t, f.addr, 0x01, testCampaign(1, datum.StatusActive, 0x01)))
	f.provider.AddUtxo(campaignUtxo(t, f.addr, 0x02, testCampaign(2, datum.StatusPaused, 0x01)))
	f.provider.AddUtxo(campaignUtxo(t, f.addr, 0x03, testCampaign(3, datum.StatusActive, 0x02)))
	// Undecodable datum
	f.provider.AddUtxo(testutil.Utxo(
		t,
		chain.TxRef{Hash: testutil.Hash256(0x04)},
		chain.Output{Address: f.addr, Lovelace: 2_000_000, Datum: []byte{0xd8, 0x79, 0x80}},
	))
}

func TestGetAllCampaignsSkipsInvalid(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)
	f.seed(t)
	// Output without any datum
	f.provider.AddUtxo(testutil.Utxo(
		t,
		chain.TxRef{Hash: testutil.Hash256(0x05)},
		chain.Output{Address: f.addr, Lovelace: 5_000_000},
	))
	// Well-formed campaign with an unknown status constructor
	badStatus, ok := testCampaign(8, datum.StatusActive, 0x01).ToPlutusData().(*data.Constr)
	require.True(t, ok)
	badStatus.Fields[11] = data.NewConstr(9)
	badStatusCbor, err := data.Encode(badStatus)
	require.NoError(t, err)
	f.provider.AddUtxo(testutil.Utxo(
		t,
		chain.TxRef{Hash: testutil.Hash256(0x06)},
		chain.Output{Address: f.addr, Lovelace: 2_000_000, Datum: badStatusCbor},
	))
	campaigns, err := f.scanner.GetAllCampaigns(t.Context())
	require.NoError(t, err)
	require.Len(t, campaigns, 3)
	for _, c := range campaigns {
		require.NotNil(t, c.Utxo)
		assert.False(t, c.Pending)
	}
}

func TestGetCampaign(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)
	f.seed(t)
	c, err := f.scanner.GetCampaign(t.Context(), 2)
	require.NoError(t, err)
	assert.Equal(t, datum.StatusPaused, c.Campaign.Status)
	assert.Equal(t, testutil.Hash256(0x02), c.Ref.Hash)
	_, err = f.scanner.GetCampaign(t.Context(), 9)
	require.ErrorIs(t, err, query.ErrCampaignNotFound)
}

func TestGetAllCampaignsWithBlueprint(t *testing.T) {
	defer goleak.VerifyNone(t)
	locator := testutil.Locator(t)
	patient, err := locator.PatientRegistry()
	require.NoError(t, err)
	require.NotNil(t, patient.Address)
	provider := testutil.NewProvider()
	provider.AddUtxo(campaignUtxo(t, *patient.Address, 0x01, testCampaign(1, datum.StatusActive, 0x01)))
	// Same datum at an unrelated script address
	provider.AddUtxo(campaignUtxo(t, scriptAddress(t), 0x02, testCampaign(2, datum.StatusActive, 0x01)))
	scanner, err := query.NewScanner(query.ScannerConfig{
		Provider: provider,
		Locator:  locator,
	})
	require.NoError(t, err)
	addr, err := scanner.ScriptAddress()
	require.NoError(t, err)
	assert.Equal(t, patient.Address.String(), addr.String())
	campaigns, err := scanner.GetAllCampaigns(t.Context())
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, uint64(1), campaigns[0].Campaign.CampaignId)
	assert.Equal(t, testutil.Hash256(0x01), campaigns[0].Ref.Hash)
}

func TestFilters(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)
	f.seed(t)
	active, err := f.scanner.ByStatus(t.Context(), datum.StatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 2)
	byCreator, err := f.scanner.ByCreator(t.Context(), testutil.Hash224(0x02))
	require.NoError(t, err)
	require.Len(t, byCreator, 1)
	assert.Equal(t, uint64(3), byCreator[0].Campaign.CampaignId)
}

func TestIndexDuplicateIdIsAmbiguous(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)
	genuine := testCampaign(1, datum.StatusActive, 0x01)
	forged := testCampaign(1, datum.StatusActive, 0x01)
	forged.Beneficiary = testutil.Hash224(0x66)
	forged.LastUpdated = math.MaxInt64
	f.provider.AddUtxo(campaignUtxo(t, f.addr, 0x0a, genuine))
	f.provider.AddUtxo(campaignUtxo(t, f.addr, 0x0b, forged))
	f.provider.AddUtxo(campaignUtxo(t, f.addr, 0x0c, testCampaign(2, datum.StatusActive, 0x01)))

	index, err := f.scanner.Index(t.Context())
	require.NoError(t, err)
	assert.Len(t, index, 1)
	assert.NotContains(t, index, uint64(1))

	_, err = f.scanner.GetCampaign(t.Context(), 1)
	require.ErrorIs(t, err, query.ErrAmbiguousCampaign)
	assert.NotErrorIs(t, err, query.ErrCampaignNotFound)
	c, err := f.scanner.GetCampaign(t.Context(), 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), c.Campaign.CampaignId)
}

func TestIndexDuplicateIdUnderfunded(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)
	genuine := testCampaign(1, datum.StatusActive, 0x01)
	genuine.CurrentFunds = 10_000_000
	// Claims funds its output does not hold
	forged := testCampaign(1, datum.StatusActive, 0x01)
	forged.CurrentFunds = 50_000_000
	forged.Beneficiary = testutil.Hash224(0x66)
	forged.LastUpdated = math.MaxInt64
	f.provider.AddUtxo(campaignUtxoValue(t, f.addr, 0x0a, genuine, 12_000_000))
	f.provider.AddUtxo(campaignUtxoValue(t, f.addr, 0x0b, forged, 2_000_000))

	c, err := f.scanner.GetCampaign(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, testutil.Hash256(0x0a), c.Ref.Hash)
	assert.Equal(t, testutil.Hash224(0x10), c.Campaign.Beneficiary)
}

func TestMergeWithCache(t *testing.T) {
	store, err := sqlite.New(t.TempDir(), nil)
	require.NoError(t, err)
	defer store.Close()
	provider := testutil.NewProvider()
	c, err := cache.New(cache.Config{Store: store, Provider: provider})
	require.NoError(t, err)
	f := newFixture(t, c)
	f.seed(t)

	// Duplicate of an on-chain output
	_, err = c.Record(t.Context(), testutil.Hash256(0x01), 0, testCampaign(1, datum.StatusActive, 0x01))
	require.NoError(t, err)
	// Not on chain yet
	_, err = c.Record(t.Context(), testutil.Hash256(0x09), 0, testCampaign(9, datum.StatusActive, 0x03))
	require.NoError(t, err)

	merged, err := f.scanner.MergeWithCache(t.Context())
	require.NoError(t, err)
	require.Len(t, merged, 4)
	var pending []query.CampaignUtxo
	for _, m := range merged {
		if m.Pending {
			pending = append(pending, m)
		}
	}
	require.Len(t, pending, 1)
	assert.Equal(t, uint64(9), pending[0].Campaign.CampaignId)
	assert.Nil(t, pending[0].Utxo)
}
