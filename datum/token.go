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

package datum

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// TokenKind selects which authorization policy a token belongs to
type TokenKind uint

const (
	TokenKindHospital TokenKind = iota
	TokenKindPatient
)

func (k TokenKind) String() string {
	switch k {
	case TokenKindHospital:
		return "hospital"
	case TokenKindPatient:
		return "patient"
	default:
		return fmt.Sprintf("TokenKind(%d)", uint(k))
	}
}

// suffix is appended to the entity name to form the asset name
func (k TokenKind) suffix() string {
	return strings.ToUpper(k.String())
}

func ParseTokenKind(s string) (TokenKind, error) {
	switch strings.ToLower(s) {
	case "hospital":
		return TokenKindHospital, nil
	case "patient":
		return TokenKindPatient, nil
	}
	return 0, fmt.Errorf("unknown token kind %q", s)
}

// TokenName returns the asset name for an entity, e.g. "StJudeHOSPITAL"
func TokenName(entity string, kind TokenKind) []byte {
	return []byte(entity + kind.suffix())
}

// TokenNameHex returns the hex form of TokenName
func TokenNameHex(entity string, kind TokenKind) string {
	return hex.EncodeToString(TokenName(entity, kind))
}
