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

// Package blockfrost implements a chain provider backed by the Blockfrost
// REST API
package blockfrost

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/gouroboros/cbor"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/medifund/medifund/chain"
)

const (
	providerName = "blockfrost"

	// DefaultTimeout bounds each HTTP request
	DefaultTimeout = 30 * time.Second

	projectIdHeader  = "project_id"
	maxResponseBytes = 16 << 20
	lovelaceUnit     = "lovelace"
)

type ProviderConfig struct {
	Logger *slog.Logger
	// Url is the API base, including the /api/v0 path
	Url        string
	ProjectId  string
	PageSize   int
	Timeout    time.Duration
	HttpClient *http.Client
}

type Provider struct {
	config  ProviderConfig
	baseUrl *url.URL
}

func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.Url == "" {
		return nil, errors.New("blockfrost: URL not set")
	}
	baseUrl, err := url.Parse(strings.TrimSuffix(cfg.Url, "/"))
	if err != nil {
		return nil, fmt.Errorf("blockfrost: parse URL: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg.Logger = cfg.Logger.With("component", providerName)
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HttpClient == nil {
		cfg.HttpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Provider{
		config:  cfg,
		baseUrl: baseUrl,
	}, nil
}

// do performs a request and returns the body of a 2xx response. Other
// statuses are returned as *APIError.
func (p *Provider) do(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	contentType string,
	body []byte,
) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()
	reqUrl := p.baseUrl.JoinPath(path)
	if query != nil {
		reqUrl.RawQuery = query.Encode()
	}
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqUrl.String(), reqBody)
	if err != nil {
		return nil, err
	}
	if p.config.ProjectId != "" {
		req.Header.Set(projectIdHeader, p.config.ProjectId)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.config.HttpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Message != "" {
			apiErr.Message = errResp.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return nil, apiErr
	}
	return respBody, nil
}

func (p *Provider) getJSON(
	ctx context.Context,
	path string,
	query url.Values,
	dest any,
) error {
	body, err := p.do(ctx, http.MethodGet, path, query, "", nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// FetchAddressUtxos returns every UTxO at the address, following page
// numbers until a short page. An address the API has never seen yields no
// UTxOs.
func (p *Provider) FetchAddressUtxos(
	ctx context.Context,
	addr lcommon.Address,
) ([]chain.Utxo, error) {
	params, err := NewPagination(p.config.PageSize, DefaultPaginationOrderAsc)
	if err != nil {
		return nil, err
	}
	path := "addresses/" + addr.String() + "/utxos"
	var ret []chain.Utxo
	for {
		var page []AddressUtxoResponse
		if err := p.getJSON(ctx, path, params.Values(), &page); err != nil {
			if isNotFound(err) {
				break
			}
			return nil, fmt.Errorf("fetch UTxOs at %s: %w", addr.String(), err)
		}
		for _, item := range page {
			utxo, err := utxoFromResponse(item)
			if err != nil {
				return nil, err
			}
			ret = append(ret, utxo)
		}
		if params.Last(len(page)) {
			break
		}
		params = params.Next()
	}
	p.config.Logger.Debug(
		"fetched address UTxOs",
		"address", addr.String(),
		"count", len(ret),
	)
	return ret, nil
}

// utxoFromResponse rebuilds the output CBOR from the JSON listing
func utxoFromResponse(item AddressUtxoResponse) (chain.Utxo, error) {
	ref, err := chain.ParseTxRef(item.TxHash + "#" + strconv.FormatUint(uint64(item.OutputIndex), 10))
	if err != nil {
		return chain.Utxo{}, err
	}
	addr, err := lcommon.NewAddress(item.Address)
	if err != nil {
		return chain.Utxo{}, fmt.Errorf("%w %s: address: %w", chain.ErrInvalidOutput, ref, err)
	}
	out := chain.Output{Address: addr}
	assets := map[lcommon.Blake2b224]map[cbor.ByteString]lcommon.MultiAssetTypeOutput{}
	for _, amount := range item.Amount {
		qty, err := strconv.ParseUint(amount.Quantity, 10, 64)
		if err != nil {
			return chain.Utxo{}, fmt.Errorf("%w %s: quantity %q", chain.ErrInvalidOutput, ref, amount.Quantity)
		}
		if amount.Unit == lovelaceUnit {
			out.Lovelace = qty
			continue
		}
		unit, err := hex.DecodeString(amount.Unit)
		if err != nil || len(unit) < lcommon.Blake2b224Size {
			return chain.Utxo{}, fmt.Errorf("%w %s: unit %q", chain.ErrInvalidOutput, ref, amount.Unit)
		}
		policy := lcommon.NewBlake2b224(unit[:lcommon.Blake2b224Size])
		if assets[policy] == nil {
			assets[policy] = map[cbor.ByteString]lcommon.MultiAssetTypeOutput{}
		}
		assets[policy][cbor.NewByteString(unit[lcommon.Blake2b224Size:])] = qty
	}
	if len(assets) > 0 {
		multiAsset := lcommon.NewMultiAsset[lcommon.MultiAssetTypeOutput](assets)
		out.Assets = &multiAsset
	}
	if item.InlineDatum != nil && *item.InlineDatum != "" {
		datumCbor, err := hex.DecodeString(*item.InlineDatum)
		if err != nil {
			return chain.Utxo{}, fmt.Errorf("%w %s: inline datum: %w", chain.ErrInvalidOutput, ref, err)
		}
		out.Datum = datumCbor
	}
	return out.Utxo(ref)
}

// FetchTxInfo returns nil when the API does not know the transaction.
// Blockfrost only indexes transactions once they are in a block.
func (p *Provider) FetchTxInfo(
	ctx context.Context,
	hash lcommon.Blake2b256,
) (*chain.TxInfo, error) {
	var resp TxResponse
	if err := p.getJSON(ctx, "txs/"+hash.String(), nil, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read transaction %s: %w", hash.String(), err)
	}
	return &chain.TxInfo{
		Hash:      hash,
		Confirmed: resp.Block != "",
		Slot:      resp.Slot,
		BlockHash: resp.Block,
	}, nil
}

// SubmitTx submits a signed transaction. Rejections are returned as
// chain.SubmitError carrying the API message.
func (p *Provider) SubmitTx(
	ctx context.Context,
	txCbor []byte,
) (lcommon.Blake2b256, error) {
	body, err := p.do(ctx, http.MethodPost, "tx/submit", nil, "application/cbor", txCbor)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return lcommon.Blake2b256{}, chain.NewSubmitError(providerName, apiErr.Message)
		}
		return lcommon.Blake2b256{}, chain.NewSubmitError(providerName, err.Error())
	}
	var hashHex string
	if err := json.Unmarshal(body, &hashHex); err != nil {
		return lcommon.Blake2b256{}, chain.NewSubmitError(
			providerName,
			"submit response did not include a transaction hash",
		)
	}
	hashBytes, err := hex.DecodeString(hashHex)
	if err != nil || len(hashBytes) != lcommon.Blake2b256Size {
		return lcommon.Blake2b256{}, chain.NewSubmitError(
			providerName,
			"submit response included a malformed transaction hash",
		)
	}
	hash := lcommon.NewBlake2b256(hashBytes)
	p.config.Logger.Info("submitted transaction", "tx_hash", hash.String())
	return hash, nil
}

// FetchProtocolParams returns the parameters of the current epoch
func (p *Provider) FetchProtocolParams(
	ctx context.Context,
) (ProtocolParamsResponse, error) {
	var resp ProtocolParamsResponse
	if err := p.getJSON(ctx, "epochs/latest/parameters", nil, &resp); err != nil {
		return ProtocolParamsResponse{}, fmt.Errorf("fetch protocol parameters: %w", err)
	}
	return resp, nil
}

var _ chain.Provider = (*Provider)(nil)
