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
	"fmt"
	"strings"

	"github.com/blinklabs-io/plutigo/data"
)

// Status is the campaign lifecycle state. Values are the on-chain
// constructor ordinals and must not be reordered.
type Status uint

const (
	StatusActive Status = iota
	StatusPaused
	StatusCompleted
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusActive:    "Active",
	StatusPaused:    "Paused",
	StatusCompleted: "Completed",
	StatusCancelled: "Cancelled",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", uint(s))
}

// Valid returns true if the status is one of the known states
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsTerminal returns true for states with no outgoing transitions
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) ToPlutusData() data.PlutusData {
	return data.NewConstr(uint(s))
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status: %d", uint(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	tmp, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = tmp
	return nil
}

// ParseStatus parses a status name, ignoring case
func ParseStatus(name string) (Status, error) {
	for status, statusName := range statusNames {
		if strings.EqualFold(name, statusName) {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown campaign status: %q", name)
}

func decodeStatus(pd data.PlutusData) (Status, error) {
	c, ok := pd.(*data.Constr)
	if !ok {
		return 0, fmt.Errorf("expected status constructor, got %T", pd)
	}
	if len(c.Fields) != 0 {
		return 0, fmt.Errorf(
			"status constructor %d has %d fields",
			c.Tag,
			len(c.Fields),
		)
	}
	s := Status(c.Tag)
	if !s.Valid() {
		return 0, fmt.Errorf("unknown status constructor %d", c.Tag)
	}
	return s, nil
}
