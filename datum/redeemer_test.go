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
	"testing"

	"github.com/blinklabs-io/plutigo/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedeemerRoundTrip(t *testing.T) {
	redeemers := []Redeemer{
		CreateCampaign{},
		ContributeFunds{Amount: 5_000_000, Contributor: testHash(0x0a)},
		ClaimMilestoneFunds{Percentage: 75},
		RefundContributor{Contributor: testHash(0x0b), Amount: 7},
		PauseCampaign{},
		ResumeCampaign{},
		CancelCampaign{},
		CompleteCampaign{},
	}
	for idx, r := range redeemers {
		t.Run(r.Action().String(), func(t *testing.T) {
			pd := EncodeRedeemer(99, r)
			constr, ok := pd.(*data.Constr)
			require.True(t, ok)
			assert.Equal(t, uint(idx), constr.Tag)
			// Round trip through CBOR
			cborData, err := data.Encode(pd)
			require.NoError(t, err)
			decodedData, err := data.Decode(cborData)
			require.NoError(t, err)
			campaignId, decoded, err := DecodeRedeemer(decodedData)
			require.NoError(t, err)
			assert.Equal(t, uint64(99), campaignId)
			assert.Equal(t, r, decoded)
		})
	}
}

func TestDecodeRedeemerUnknown(t *testing.T) {
	_, _, err := DecodeRedeemer(data.NewConstr(8, uintData(1)))
	require.ErrorIs(t, err, ErrUnknownAction)
	_, _, err = DecodeRedeemer(data.NewConstr(2, uintData(1)))
	require.Error(t, err)
}

func TestParseAction(t *testing.T) {
	args := ActionArgs{
		Amount:      10,
		Contributor: testHash(0x0c),
		Percentage:  50,
	}
	testDefs := []struct {
		name     string
		expected Redeemer
	}{
		{"CreateCampaign", CreateCampaign{}},
		{"donate", ContributeFunds{Amount: 10, Contributor: testHash(0x0c)}},
		{"contribute_funds", ContributeFunds{Amount: 10, Contributor: testHash(0x0c)}},
		{"ClaimMilestoneFunds", ClaimMilestoneFunds{Percentage: 50}},
		{"refund", RefundContributor{Contributor: testHash(0x0c), Amount: 10}},
		{"pause", PauseCampaign{}},
		{"Resume", ResumeCampaign{}},
		{"cancel-campaign", CancelCampaign{}},
		{"COMPLETE", CompleteCampaign{}},
	}
	for _, testDef := range testDefs {
		r, err := ParseAction(testDef.name, args)
		require.NoError(t, err, testDef.name)
		assert.Equal(t, testDef.expected, r, testDef.name)
	}
}

func TestParseActionUnknown(t *testing.T) {
	r, err := ParseAction("withdraw", ActionArgs{})
	require.ErrorIs(t, err, ErrUnknownAction)
	assert.Nil(t, r)
}

func TestMintRedeemer(t *testing.T) {
	mint, ok := MintToken.ToPlutusData().(*data.Constr)
	require.True(t, ok)
	assert.Equal(t, uint(0), mint.Tag)
	assert.Empty(t, mint.Fields)
	burn, ok := BurnToken.ToPlutusData().(*data.Constr)
	require.True(t, ok)
	assert.Equal(t, uint(1), burn.Tag)
	assert.Empty(t, burn.Fields)
}

func TestTokenName(t *testing.T) {
	assert.Equal(t, []byte("StJudeHOSPITAL"), TokenName("StJude", TokenKindHospital))
	assert.Equal(t, "4a6f6850415449454e54", TokenNameHex("Joh", TokenKindPatient))
	kind, err := ParseTokenKind("Patient")
	require.NoError(t, err)
	assert.Equal(t, TokenKindPatient, kind)
	_, err = ParseTokenKind("clinic")
	require.Error(t, err)
}

func TestStatus(t *testing.T) {
	s, err := ParseStatus("paused")
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, s)
	assert.False(t, s.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	_, err = ParseStatus("archived")
	require.Error(t, err)
	text, err := StatusCompleted.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Completed", string(text))
	assert.False(t, Status(7).Valid())
}
