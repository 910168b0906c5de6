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

// Package utxorpc implements a chain provider backed by a UTxO RPC
// endpoint
package utxorpc

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/medifund/medifund/chain"
	cardano "github.com/utxorpc/go-codegen/utxorpc/v1alpha/cardano"
	query "github.com/utxorpc/go-codegen/utxorpc/v1alpha/query"
	"github.com/utxorpc/go-codegen/utxorpc/v1alpha/query/queryconnect"
	submit "github.com/utxorpc/go-codegen/utxorpc/v1alpha/submit"
	"github.com/utxorpc/go-codegen/utxorpc/v1alpha/submit/submitconnect"
	"golang.org/x/net/http2"
)

const (
	providerName = "utxorpc"

	// DefaultPageSize is the number of UTxOs requested per search page
	DefaultPageSize = 100
	// DefaultTimeout bounds each RPC call
	DefaultTimeout = 30 * time.Second

	apiKeyHeader = "dmtr-api-key"
)

type ProviderConfig struct {
	Logger *slog.Logger
	Url    string
	ApiKey string
	// Grpc selects the gRPC protocol over HTTP/2 instead of the Connect
	// protocol
	Grpc       bool
	PageSize   int32
	Timeout    time.Duration
	HttpClient *http.Client
}

type Provider struct {
	config ProviderConfig
	query  queryconnect.QueryServiceClient
	submit submitconnect.SubmitServiceClient
}

func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.Url == "" {
		return nil, errors.New("utxorpc: URL not set")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg.Logger = cfg.Logger.With("component", providerName)
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HttpClient == nil {
		cfg.HttpClient = newHttpClient(cfg.Grpc)
	}
	opts := []connect.ClientOption{
		connect.WithInterceptors(apiKeyInterceptor(cfg.ApiKey)),
	}
	if cfg.Grpc {
		opts = append(opts, connect.WithGRPC())
	}
	return &Provider{
		config: cfg,
		query:  queryconnect.NewQueryServiceClient(cfg.HttpClient, cfg.Url, opts...),
		submit: submitconnect.NewSubmitServiceClient(cfg.HttpClient, cfg.Url, opts...),
	}, nil
}

// newHttpClient returns a client that speaks HTTP/2, including cleartext
// HTTP/2 for plain http:// endpoints when gRPC is used
func newHttpClient(grpc bool) *http.Client {
	if !grpc {
		return http.DefaultClient
	}
	return &http.Client{
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, cfg *tls.Config) (net.Conn, error) {
				if cfg == nil {
					var d net.Dialer
					return d.DialContext(ctx, network, addr)
				}
				return (&tls.Dialer{Config: cfg}).DialContext(ctx, network, addr)
			},
		},
	}
}

func apiKeyInterceptor(apiKey string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if apiKey != "" && req.Spec().IsClient {
				req.Header().Set(apiKeyHeader, apiKey)
			}
			return next(ctx, req)
		}
	}
}

// FetchAddressUtxos returns every UTxO at the address, following search
// pagination
func (p *Provider) FetchAddressUtxos(
	ctx context.Context,
	addr lcommon.Address,
) ([]chain.Utxo, error) {
	addrBytes, err := addr.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode address: %w", err)
	}
	predicate := &query.UtxoPredicate{
		Match: &query.AnyUtxoPattern{
			UtxoPattern: &query.AnyUtxoPattern_Cardano{
				Cardano: &cardano.TxOutputPattern{
					Address: &cardano.AddressPattern{
						ExactAddress: addrBytes,
					},
				},
			},
		},
	}
	var ret []chain.Utxo
	var startToken string
	for {
		resp, err := p.searchPage(ctx, predicate, startToken)
		if err != nil {
			return nil, fmt.Errorf("search UTxOs at %s: %w", addr.String(), err)
		}
		for _, item := range resp.GetItems() {
			utxo, err := utxoFromItem(item)
			if err != nil {
				return nil, err
			}
			ret = append(ret, utxo)
		}
		startToken = resp.GetNextToken()
		if startToken == "" || len(resp.GetItems()) == 0 {
			break
		}
	}
	p.config.Logger.Debug(
		"fetched address UTxOs",
		"address", addr.String(),
		"count", len(ret),
	)
	return ret, nil
}

func (p *Provider) searchPage(
	ctx context.Context,
	predicate *query.UtxoPredicate,
	startToken string,
) (*query.SearchUtxosResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()
	resp, err := p.query.SearchUtxos(
		ctx,
		connect.NewRequest(&query.SearchUtxosRequest{
			Predicate:  predicate,
			StartToken: startToken,
			MaxItems:   p.config.PageSize,
		}),
	)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func utxoFromItem(item *query.AnyUtxoData) (chain.Utxo, error) {
	ref := item.GetTxoRef()
	if ref == nil || len(ref.GetHash()) != lcommon.Blake2b256Size {
		return chain.Utxo{}, fmt.Errorf("%w: missing or malformed reference", chain.ErrInvalidOutput)
	}
	if len(item.GetNativeBytes()) == 0 {
		return chain.Utxo{}, fmt.Errorf("%w: missing native bytes", chain.ErrInvalidOutput)
	}
	return chain.NewUtxo(
		chain.TxRef{
			Hash:  lcommon.NewBlake2b256(ref.GetHash()),
			Index: ref.GetIndex(),
		},
		item.GetNativeBytes(),
	)
}

// FetchTxInfo returns nil when the endpoint does not know the transaction
func (p *Provider) FetchTxInfo(
	ctx context.Context,
	hash lcommon.Blake2b256,
) (*chain.TxInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()
	resp, err := p.query.ReadTx(
		ctx,
		connect.NewRequest(&query.ReadTxRequest{Hash: hash.Bytes()}),
	)
	if err != nil {
		if connect.CodeOf(err) == connect.CodeNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("read transaction %s: %w", hash.String(), err)
	}
	tx := resp.Msg.GetTx()
	if tx == nil {
		return nil, nil
	}
	ret := &chain.TxInfo{Hash: hash}
	if blockRef := tx.GetBlockRef(); blockRef != nil {
		ret.Confirmed = true
		ret.Slot = blockRef.GetSlot()
		ret.BlockHash = hex.EncodeToString(blockRef.GetHash())
	}
	return ret, nil
}

// SubmitTx submits a signed transaction. Rejections are returned as
// chain.SubmitError carrying the endpoint message.
func (p *Provider) SubmitTx(
	ctx context.Context,
	txCbor []byte,
) (lcommon.Blake2b256, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()
	resp, err := p.submit.SubmitTx(
		ctx,
		connect.NewRequest(&submit.SubmitTxRequest{
			Tx: []*submit.AnyChainTx{
				{Type: &submit.AnyChainTx_Raw{Raw: txCbor}},
			},
		}),
	)
	if err != nil {
		var connectErr *connect.Error
		if errors.As(err, &connectErr) {
			return lcommon.Blake2b256{}, chain.NewSubmitError(providerName, connectErr.Message())
		}
		return lcommon.Blake2b256{}, chain.NewSubmitError(providerName, err.Error())
	}
	refs := resp.Msg.GetRef()
	if len(refs) == 0 || len(refs[0]) != lcommon.Blake2b256Size {
		return lcommon.Blake2b256{}, chain.NewSubmitError(
			providerName,
			"submit response did not include a transaction reference",
		)
	}
	hash := lcommon.NewBlake2b256(refs[0])
	p.config.Logger.Info("submitted transaction", "tx_hash", hash.String())
	return hash, nil
}

var _ chain.Provider = (*Provider)(nil)
