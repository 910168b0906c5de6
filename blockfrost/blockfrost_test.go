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

package blockfrost

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/medifund/medifund/chain"
	"github.com/medifund/medifund/internal/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProjectId = "previewSecret"

// fakeApi serves a fixed UTxO set and transaction index
type fakeApi struct {
	mutex      sync.Mutex
	utxos      []AddressUtxoResponse
	txs        map[string]TxResponse
	params     *ProtocolParamsResponse
	reject     string
	projectIds []string
	pages      []string
	submitted  [][]byte
}

func (f *fakeApi) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v0/addresses/{addr}/utxos", f.handleUtxos)
	mux.HandleFunc("GET /api/v0/txs/{hash}", f.handleTx)
	mux.HandleFunc("POST /api/v0/tx/submit", f.handleSubmit)
	mux.HandleFunc("GET /api/v0/epochs/latest/parameters", f.handleParams)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errStr string, message string) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
	})
}

func (f *fakeApi) handleUtxos(w http.ResponseWriter, r *http.Request) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.projectIds = append(f.projectIds, r.Header.Get(projectIdHeader))
	f.pages = append(f.pages, r.URL.Query().Get("page"))
	if len(f.utxos) == 0 {
		writeError(w, http.StatusNotFound, "Not Found", "The requested component has not been found.")
		return
	}
	count, _ := strconv.Atoi(r.URL.Query().Get("count"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	start := (page - 1) * count
	end := min(start+count, len(f.utxos))
	if start >= len(f.utxos) {
		writeJSON(w, http.StatusOK, []AddressUtxoResponse{})
		return
	}
	writeJSON(w, http.StatusOK, f.utxos[start:end])
}

func (f *fakeApi) handleTx(w http.ResponseWriter, r *http.Request) {
	tx, ok := f.txs[r.PathValue("hash")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found", "The requested component has not been found.")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (f *fakeApi) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/cbor" {
		writeError(w, http.StatusBadRequest, "Bad Request", "wrong content type")
		return
	}
	if f.reject != "" {
		writeError(w, http.StatusBadRequest, "Bad Request", f.reject)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	tx, err := chain.DecodeTx(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	f.mutex.Lock()
	f.submitted = append(f.submitted, body)
	f.mutex.Unlock()
	hash := tx.Hash()
	writeJSON(w, http.StatusOK, hash.String())
}

func (f *fakeApi) handleParams(w http.ResponseWriter, _ *http.Request) {
	if f.params == nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "boom")
		return
	}
	writeJSON(w, http.StatusOK, f.params)
}

func newTestProvider(t *testing.T, api *fakeApi, pageSize int) *Provider {
	t.Helper()
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)
	p, err := NewProvider(ProviderConfig{
		Url:        server.URL + "/api/v0/",
		ProjectId:  testProjectId,
		PageSize:   pageSize,
		HttpClient: server.Client(),
	})
	require.NoError(t, err)
	return p
}

func strPtr(s string) *string {
	return &s
}

func TestFetchAddressUtxos(t *testing.T) {
	addr := testutil.KeyAddress(t, testutil.Hash224(0x01))
	policy := testutil.Hash224(0x02)
	api := &fakeApi{}
	for i := range 5 {
		api.utxos = append(api.utxos, AddressUtxoResponse{
			Address:     addr.String(),
			TxHash:      testutil.Hash256(byte(i + 1)).String(),
			OutputIndex: uint32(i),
			Amount: []AmountResponse{
				{Unit: lovelaceUnit, Quantity: strconv.Itoa((i + 1) * 1_000_000)},
			},
		})
	}
	api.utxos[4].Amount = append(api.utxos[4].Amount, AmountResponse{
		Unit:     policy.String() + hex.EncodeToString([]byte("TOKEN")),
		Quantity: "7",
	})
	api.utxos[4].InlineDatum = strPtr("182a")

	p := newTestProvider(t, api, 2)
	utxos, err := p.FetchAddressUtxos(context.Background(), addr)
	require.NoError(t, err)
	require.Len(t, utxos, 5)
	for i, u := range utxos {
		assert.Equal(t, testutil.Hash256(byte(i+1)), u.Ref.Hash)
		assert.Equal(t, uint32(i), u.Ref.Index)
		assert.Equal(t, uint64(i+1)*1_000_000, u.Lovelace())
	}
	asset := chain.AssetID{Policy: policy, Name: []byte("TOKEN")}
	assert.Equal(t, 0, big.NewInt(7).Cmp(utxos[4].AssetAmount(asset)))
	assert.False(t, utxos[3].HasAsset(asset))
	assert.Equal(t, []byte{0x18, 0x2a}, utxos[4].InlineDatum())
	assert.Nil(t, utxos[0].InlineDatum())

	assert.Equal(t, []string{"1", "2", "3"}, api.pages)
	for _, projectId := range api.projectIds {
		assert.Equal(t, testProjectId, projectId)
	}
}

func TestFetchAddressUtxosUnknownAddress(t *testing.T) {
	p := newTestProvider(t, &fakeApi{}, 0)
	utxos, err := p.FetchAddressUtxos(
		context.Background(),
		testutil.KeyAddress(t, testutil.Hash224(0x01)),
	)
	require.NoError(t, err)
	assert.Empty(t, utxos)
}

func TestFetchAddressUtxosInvalidItem(t *testing.T) {
	addr := testutil.KeyAddress(t, testutil.Hash224(0x01))
	tests := []struct {
		name string
		item AddressUtxoResponse
	}{
		{
			name: "bad hash",
			item: AddressUtxoResponse{Address: addr.String(), TxHash: "zz"},
		},
		{
			name: "bad quantity",
			item: AddressUtxoResponse{
				Address: addr.String(),
				TxHash:  testutil.Hash256(0x01).String(),
				Amount:  []AmountResponse{{Unit: lovelaceUnit, Quantity: "-1"}},
			},
		},
		{
			name: "bad unit",
			item: AddressUtxoResponse{
				Address: addr.String(),
				TxHash:  testutil.Hash256(0x01).String(),
				Amount:  []AmountResponse{{Unit: "abcd", Quantity: "1"}},
			},
		},
		{
			name: "bad datum",
			item: AddressUtxoResponse{
				Address:     addr.String(),
				TxHash:      testutil.Hash256(0x01).String(),
				Amount:      []AmountResponse{{Unit: lovelaceUnit, Quantity: "1000000"}},
				InlineDatum: strPtr("xyz"),
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := newTestProvider(t, &fakeApi{utxos: []AddressUtxoResponse{test.item}}, 0)
			_, err := p.FetchAddressUtxos(context.Background(), addr)
			require.Error(t, err)
			assert.True(
				t,
				errors.Is(err, chain.ErrInvalidOutput) || errors.Is(err, chain.ErrInvalidTxRef),
			)
		})
	}
}

func TestFetchTxInfo(t *testing.T) {
	confirmed := testutil.Hash256(0x10)
	api := &fakeApi{
		txs: map[string]TxResponse{
			confirmed.String(): {
				Hash:  confirmed.String(),
				Block: "abcd",
				Slot:  1234,
			},
		},
	}
	p := newTestProvider(t, api, 0)

	info, err := p.FetchTxInfo(context.Background(), confirmed)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.Confirmed)
	assert.Equal(t, uint64(1234), info.Slot)
	assert.Equal(t, "abcd", info.BlockHash)

	info, err = p.FetchTxInfo(context.Background(), testutil.Hash256(0x12))
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestSubmitTx(t *testing.T) {
	tx := chain.Tx{Body: []byte{0xa1, 0x02, 0x19, 0x01, 0x00}, Valid: true}
	txCbor, err := tx.Cbor()
	require.NoError(t, err)

	api := &fakeApi{}
	p := newTestProvider(t, api, 0)
	hash, err := p.SubmitTx(context.Background(), txCbor)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), hash)
	assert.Equal(t, [][]byte{txCbor}, api.submitted)

	p = newTestProvider(t, &fakeApi{reject: "BadInputsUTxO"}, 0)
	_, err = p.SubmitTx(context.Background(), txCbor)
	var submitErr chain.SubmitError
	require.True(t, errors.As(err, &submitErr))
	assert.Equal(t, "BadInputsUTxO", submitErr.Message)
	assert.Equal(t, providerName, submitErr.Provider)
}

func TestFetchProtocolParams(t *testing.T) {
	coins := "4310"
	priceMem := 0.0577
	priceStep := 0.0000721
	collateral := 150
	api := &fakeApi{
		params: &ProtocolParamsResponse{
			Epoch:             500,
			MinFeeA:           44,
			MinFeeB:           155381,
			MaxTxSize:         16384,
			CoinsPerUtxoSize:  &coins,
			PriceMem:          &priceMem,
			PriceStep:         &priceStep,
			CollateralPercent: &collateral,
			CostModelsRaw: map[string][]int64{
				"PlutusV3": {100788, 420, 1},
			},
		},
	}
	p := newTestProvider(t, api, 0)
	resp, err := p.FetchProtocolParams(context.Background())
	require.NoError(t, err)
	params, err := resp.ProtocolParams()
	require.NoError(t, err)
	assert.Equal(t, uint64(44), params.MinFeeA)
	assert.Equal(t, uint64(155381), params.MinFeeB)
	assert.Equal(t, uint64(4310), params.CoinsPerUtxoByte)
	assert.Equal(t, uint64(150), params.CollateralPercent)
	assert.Equal(t, uint64(16384), params.MaxTxSize)
	assert.Equal(t, 0, big.NewRat(577, 10000).Cmp(params.PriceMem))
	assert.Equal(t, 0, big.NewRat(721, 10000000).Cmp(params.PriceStep))
	assert.Equal(t, []int64{100788, 420, 1}, params.PlutusV3CostModel)

	p = newTestProvider(t, &fakeApi{}, 0)
	_, err = p.FetchProtocolParams(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestProtocolParamsMissingPrices(t *testing.T) {
	coins := "4310"
	_, err := ProtocolParamsResponse{CoinsPerUtxoSize: &coins}.ProtocolParams()
	assert.Error(t, err)
	_, err = ProtocolParamsResponse{}.ProtocolParams()
	assert.Error(t, err)
}

func TestNewProviderRequiresUrl(t *testing.T) {
	_, err := NewProvider(ProviderConfig{})
	assert.Error(t, err)
}
