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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaginationDefaultValues(t *testing.T) {
	params, err := NewPagination(0, "")
	require.NoError(t, err)

	assert.Equal(t, DefaultPaginationCount, params.Count)
	assert.Equal(t, DefaultPaginationPage, params.Page)
	assert.Equal(t, DefaultPaginationOrderAsc, params.Order)
}

func TestNewPaginationValid(t *testing.T) {
	params, err := NewPagination(25, "DESC")
	require.NoError(t, err)

	assert.Equal(t, 25, params.Count)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, PaginationOrderDesc, params.Order)
}

func TestNewPaginationClampBounds(t *testing.T) {
	params, err := NewPagination(999, "asc")
	require.NoError(t, err)
	assert.Equal(t, MaxPaginationCount, params.Count)
}

func TestNewPaginationInvalidOrder(t *testing.T) {
	params, err := NewPagination(10, "sideways")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPaginationParameters))
	assert.Equal(t, PaginationParams{}, params)
}

func TestPaginationValuesAndNext(t *testing.T) {
	params, err := NewPagination(50, "")
	require.NoError(t, err)

	next := params.Next()
	assert.Equal(t, 2, next.Page)
	assert.Equal(t, 1, params.Page)

	values := next.Values()
	assert.Equal(t, "50", values.Get("count"))
	assert.Equal(t, "2", values.Get("page"))
	assert.Equal(t, "asc", values.Get("order"))

	assert.False(t, next.Last(50))
	assert.True(t, next.Last(49))
	assert.True(t, next.Last(0))
}
