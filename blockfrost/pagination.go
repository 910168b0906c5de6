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
	"errors"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPaginationCount    = 100
	MaxPaginationCount        = 100
	DefaultPaginationPage     = 1
	DefaultPaginationOrderAsc = "asc"
	PaginationOrderDesc       = "desc"
)

var ErrInvalidPaginationParameters = errors.New(
	"invalid pagination parameters",
)

// PaginationParams holds the page selection sent with list requests.
type PaginationParams struct {
	Count int
	Page  int
	Order string
}

// NewPagination returns the first page with the given page size, applying
// defaults and bounds clamping.
func NewPagination(count int, order string) (PaginationParams, error) {
	params := PaginationParams{
		Count: count,
		Page:  DefaultPaginationPage,
		Order: DefaultPaginationOrderAsc,
	}
	if order != "" {
		convertedOrder := strings.ToLower(order)
		switch convertedOrder {
		case DefaultPaginationOrderAsc, PaginationOrderDesc:
			params.Order = convertedOrder
		default:
			return PaginationParams{},
				ErrInvalidPaginationParameters
		}
	}
	if params.Count <= 0 {
		params.Count = DefaultPaginationCount
	}
	if params.Count > MaxPaginationCount {
		params.Count = MaxPaginationCount
	}
	return params, nil
}

// Values encodes the params as query values
func (p PaginationParams) Values() url.Values {
	ret := url.Values{}
	ret.Set("count", strconv.Itoa(p.Count))
	ret.Set("page", strconv.Itoa(p.Page))
	ret.Set("order", p.Order)
	return ret
}

// Next returns the params for the following page
func (p PaginationParams) Next() PaginationParams {
	p.Page++
	return p
}

// Last reports whether a page holding n items is the final one
func (p PaginationParams) Last(n int) bool {
	return n < p.Count
}
