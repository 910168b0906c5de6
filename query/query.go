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

// Package query scans the campaign script address and decodes campaign
// datums. Every call reads live chain state.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/medifund/medifund/cache"
	"github.com/medifund/medifund/chain"
	"github.com/medifund/medifund/datum"
	"github.com/medifund/medifund/script"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/medifund/medifund/query"

var (
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrAmbiguousCampaign = errors.New("campaign id held by more than one output")
)

// Locator resolves the campaign script
type Locator interface {
	PatientRegistry() (*script.Registry, error)
}

// CampaignUtxo is a campaign datum along with the output holding it
type CampaignUtxo struct {
	Ref chain.TxRef
	// Utxo is nil for pending entries from the local cache
	Utxo     *chain.Utxo
	Campaign *datum.Campaign
	Pending  bool
}

type ScannerConfig struct {
	Provider     chain.Provider
	Locator      Locator
	Cache        *cache.Cache
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

type Scanner struct {
	config  ScannerConfig
	metrics scannerMetrics
}

func NewScanner(cfg ScannerConfig) (*Scanner, error) {
	if cfg.Provider == nil {
		return nil, errors.New("scanner: provider not set")
	}
	if cfg.Locator == nil {
		return nil, errors.New("scanner: locator not set")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Scanner{config: cfg}
	s.metrics.init(cfg.PromRegistry)
	return s, nil
}

// ScriptAddress returns the address holding campaign outputs
func (s *Scanner) ScriptAddress() (lcommon.Address, error) {
	reg, err := s.config.Locator.PatientRegistry()
	if err != nil {
		return lcommon.Address{}, err
	}
	if reg.Address == nil {
		return lcommon.Address{}, errors.New("campaign validator has no address")
	}
	return *reg.Address, nil
}

// GetAllCampaigns decodes every output at the script address. Outputs
// without a well-formed campaign datum are skipped.
func (s *Scanner) GetAllCampaigns(ctx context.Context) ([]CampaignUtxo, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "query.GetAllCampaigns")
	defer span.End()
	addr, err := s.ScriptAddress()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve script address")
		return nil, err
	}
	utxos, err := s.config.Provider.FetchAddressUtxos(ctx, addr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch script utxos")
		return nil, fmt.Errorf("fetch campaign outputs: %w", err)
	}
	s.metrics.scans.Inc()
	ret := make([]CampaignUtxo, 0, len(utxos))
	for i := range utxos {
		utxo := utxos[i]
		datumCbor := utxo.InlineDatum()
		if datumCbor == nil {
			s.skip(utxo.Ref, errors.New("no inline datum"))
			continue
		}
		campaign, err := datum.DecodeCampaign(datumCbor)
		if err != nil {
			s.skip(utxo.Ref, err)
			continue
		}
		ret = append(ret, CampaignUtxo{
			Ref:      utxo.Ref,
			Utxo:     &utxo,
			Campaign: campaign,
		})
	}
	span.SetAttributes(
		attribute.Int("outputs", len(utxos)),
		attribute.Int("campaigns", len(ret)),
	)
	return ret, nil
}

func (s *Scanner) skip(ref chain.TxRef, err error) {
	s.metrics.skipped.Inc()
	s.config.Logger.Warn(
		"skipping campaign output",
		"component", "query",
		"utxo", ref.String(),
		"error", err.Error(),
	)
}

// GetCampaign returns the live output of the campaign with the given id
func (s *Scanner) GetCampaign(ctx context.Context, id uint64) (*CampaignUtxo, error) {
	index, ambiguous, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	if refs, ok := ambiguous[id]; ok {
		return nil, fmt.Errorf("%w: %d at %v", ErrAmbiguousCampaign, id, refs)
	}
	ret, ok := index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrCampaignNotFound, id)
	}
	return &ret, nil
}

// ByStatus returns the campaigns in the given state
func (s *Scanner) ByStatus(ctx context.Context, status datum.Status) ([]CampaignUtxo, error) {
	return s.filter(ctx, func(c *datum.Campaign) bool {
		return c.Status == status
	})
}

// ByCreator returns the campaigns created by the given key hash
func (s *Scanner) ByCreator(
	ctx context.Context,
	creator lcommon.Blake2b224,
) ([]CampaignUtxo, error) {
	return s.filter(ctx, func(c *datum.Campaign) bool {
		return c.Creator == creator
	})
}

func (s *Scanner) filter(
	ctx context.Context,
	keep func(*datum.Campaign) bool,
) ([]CampaignUtxo, error) {
	all, err := s.GetAllCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(c CampaignUtxo) bool {
		return !keep(c.Campaign)
	}), nil
}

// Index returns the campaigns keyed by id. An id held by more than one
// output is resolved to the only one whose value covers the unclaimed funds
// its datum reports, and left out when that does not single one out.
func (s *Scanner) Index(ctx context.Context) (map[uint64]CampaignUtxo, error) {
	ret, _, err := s.index(ctx)
	return ret, err
}

func (s *Scanner) index(
	ctx context.Context,
) (map[uint64]CampaignUtxo, map[uint64][]chain.TxRef, error) {
	all, err := s.GetAllCampaigns(ctx)
	if err != nil {
		return nil, nil, err
	}
	byId := make(map[uint64][]CampaignUtxo, len(all))
	for _, c := range all {
		byId[c.Campaign.CampaignId] = append(byId[c.Campaign.CampaignId], c)
	}
	ret := make(map[uint64]CampaignUtxo, len(byId))
	ambiguous := make(map[uint64][]chain.TxRef)
	for id, candidates := range byId {
		if len(candidates) == 1 {
			ret[id] = candidates[0]
			continue
		}
		funded := slices.DeleteFunc(
			slices.Clone(candidates),
			func(c CampaignUtxo) bool { return !holdsFunds(c) },
		)
		if len(funded) == 1 {
			s.config.Logger.Warn(
				"ignoring underfunded duplicate campaign outputs",
				"component", "query",
				"campaign_id", id,
				"utxo", funded[0].Ref.String(),
				"duplicates", len(candidates)-1,
			)
			ret[id] = funded[0]
			continue
		}
		refs := make([]chain.TxRef, 0, len(candidates))
		for _, c := range candidates {
			refs = append(refs, c.Ref)
		}
		slices.SortFunc(refs, chain.TxRef.Compare)
		s.config.Logger.Warn(
			"campaign id held by multiple outputs",
			"component", "query",
			"campaign_id", id,
			"outputs", len(refs),
		)
		ambiguous[id] = refs
	}
	return ret, ambiguous, nil
}

// holdsFunds reports whether the output value covers the funds its datum
// reports as unclaimed
func holdsFunds(c CampaignUtxo) bool {
	return c.Utxo != nil && c.Utxo.Lovelace() >= c.Campaign.Available()
}

// MergeWithCache returns the on-chain campaigns plus any locally cached
// campaign outputs whose transaction is not visible on chain yet. Entries
// are deduplicated by transaction hash and the chain copy wins.
func (s *Scanner) MergeWithCache(ctx context.Context) ([]CampaignUtxo, error) {
	onChain, err := s.GetAllCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	if s.config.Cache == nil {
		return onChain, nil
	}
	records, err := s.config.Cache.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("read campaign cache: %w", err)
	}
	seen := make(map[string]struct{}, len(onChain))
	for _, c := range onChain {
		seen[c.Ref.Hash.String()] = struct{}{}
	}
	ret := onChain
	for _, rec := range records {
		if _, ok := seen[rec.TxHash]; ok {
			continue
		}
		campaign, err := rec.Campaign()
		if err != nil {
			s.config.Logger.Warn(
				"skipping cached campaign record",
				"component", "query",
				"local_id", rec.LocalId,
				"error", err.Error(),
			)
			continue
		}
		ref, err := chain.ParseTxRef(fmt.Sprintf("%s#%d", rec.TxHash, rec.OutputIndex))
		if err != nil {
			continue
		}
		seen[rec.TxHash] = struct{}{}
		ret = append(ret, CampaignUtxo{
			Ref:      ref,
			Campaign: campaign,
			Pending:  true,
		})
	}
	return ret, nil
}
