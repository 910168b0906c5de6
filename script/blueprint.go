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

package script

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrValidatorNotFound = errors.New("validator not found in blueprint")

// Blueprint is a CIP-57 Plutus blueprint
type Blueprint struct {
	Preamble   BlueprintPreamble    `json:"preamble"`
	Validators []BlueprintValidator `json:"validators"`
}

type BlueprintPreamble struct {
	Title         string `json:"title"`
	Version       string `json:"version"`
	PlutusVersion string `json:"plutusVersion"`
}

type BlueprintValidator struct {
	Title        string `json:"title"`
	CompiledCode string `json:"compiledCode"`
	Hash         string `json:"hash"`
}

// ParseBlueprint parses plutus.json contents
func ParseBlueprint(data []byte) (*Blueprint, error) {
	var ret Blueprint
	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("parse blueprint: %w", err)
	}
	if len(ret.Validators) == 0 {
		return nil, errors.New("parse blueprint: no validators")
	}
	return &ret, nil
}

// Validator returns the validator with the given title
func (b *Blueprint) Validator(title string) (*BlueprintValidator, error) {
	for i := range b.Validators {
		if b.Validators[i].Title == title {
			return &b.Validators[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrValidatorNotFound, title)
}

// CompiledCode returns the decoded compiled code of the validator with the
// given title
func (b *Blueprint) CompiledCode(title string) ([]byte, error) {
	v, err := b.Validator(title)
	if err != nil {
		return nil, err
	}
	ret, err := hex.DecodeString(v.CompiledCode)
	if err != nil {
		return nil, fmt.Errorf("validator %s: decode compiled code: %w", title, err)
	}
	return ret, nil
}

// LoadBlueprint loads a blueprint from a local path, a gcs://bucket/object
// URI or an s3://bucket/key URI
func LoadBlueprint(
	ctx context.Context,
	uri string,
	opts ...SourceOptionFunc,
) (*Blueprint, error) {
	var src sourceOptions
	for _, opt := range opts {
		opt(&src)
	}
	var data []byte
	var err error
	switch {
	case strings.HasPrefix(uri, gcsPrefix):
		data, err = readGcs(ctx, uri, src)
	case strings.HasPrefix(uri, s3Prefix):
		data, err = readS3(ctx, uri, src)
	default:
		data, err = os.ReadFile(uri)
	}
	if err != nil {
		return nil, fmt.Errorf("load blueprint %s: %w", uri, err)
	}
	return ParseBlueprint(data)
}
