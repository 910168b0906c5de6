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

package chain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTxRef   = errors.New("invalid transaction reference")
	ErrInvalidOutput  = errors.New("invalid transaction output")
	ErrUnknownNetwork = errors.New("unknown network")
)

// SubmitError wraps a rejection reported by the chain provider. The
// provider message is passed through unmodified.
type SubmitError struct {
	Provider string
	Message  string
}

func NewSubmitError(provider string, message string) SubmitError {
	return SubmitError{
		Provider: provider,
		Message:  message,
	}
}

func (e SubmitError) Error() string {
	return fmt.Sprintf("%s: transaction rejected: %s", e.Provider, e.Message)
}
