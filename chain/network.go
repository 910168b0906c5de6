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
	"fmt"
	"strings"
	"time"
)

// Network is a named Cardano network
type Network struct {
	Name       string
	NetworkId  uint8
	SlotConfig SlotConfig
}

// SlotConfig maps between wall clock time and slots
type SlotConfig struct {
	// ZeroTime is the POSIX time in milliseconds of ZeroSlot
	ZeroTime   int64
	ZeroSlot   uint64
	SlotLength time.Duration
}

// Address network ids
const (
	NetworkIdTestnet uint8 = 0
	NetworkIdMainnet uint8 = 1
)

var (
	NetworkMainnet = Network{
		Name:      "mainnet",
		NetworkId: NetworkIdMainnet,
		SlotConfig: SlotConfig{
			ZeroTime:   1596059091000,
			ZeroSlot:   4492800,
			SlotLength: time.Second,
		},
	}
	NetworkPreprod = Network{
		Name:      "preprod",
		NetworkId: NetworkIdTestnet,
		SlotConfig: SlotConfig{
			ZeroTime:   1655769600000,
			ZeroSlot:   86400,
			SlotLength: time.Second,
		},
	}
	NetworkPreview = Network{
		Name:      "preview",
		NetworkId: NetworkIdTestnet,
		SlotConfig: SlotConfig{
			ZeroTime:   1666656000000,
			ZeroSlot:   0,
			SlotLength: time.Second,
		},
	}
)

var networks = []Network{
	NetworkMainnet,
	NetworkPreprod,
	NetworkPreview,
}

// NetworkByName looks up a network by name, ignoring case
func NetworkByName(name string) (Network, error) {
	for _, n := range networks {
		if strings.EqualFold(n.Name, name) {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
}

// TimeToSlot returns the slot containing t. Times before the zero slot map
// to ZeroSlot.
func (s SlotConfig) TimeToSlot(t time.Time) uint64 {
	elapsed := t.UnixMilli() - s.ZeroTime
	if elapsed <= 0 || s.SlotLength <= 0 {
		return s.ZeroSlot
	}
	return s.ZeroSlot + uint64(elapsed/s.SlotLength.Milliseconds())
}

// SlotToTime returns the start time of the slot
func (s SlotConfig) SlotToTime(slot uint64) time.Time {
	if slot < s.ZeroSlot {
		return time.UnixMilli(s.ZeroTime)
	}
	// #nosec G115
	offset := int64(slot-s.ZeroSlot) * s.SlotLength.Milliseconds()
	return time.UnixMilli(s.ZeroTime + offset)
}
