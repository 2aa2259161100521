package events

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	round := uint64(4)

	cases := []struct {
		name    string
		data    string
		want    Inbound
		wantErr error
	}{
		{name: "select team", data: `{"type":"select-team","team":"MI"}`, want: SelectTeam{Team: "MI"}},
		{name: "bid", data: `{"type":"placeBid","bidAmount":500}`, want: PlaceBid{Amount: 500}},
		{name: "timer ended", data: `{"type":"timerEnded"}`, want: TimerEnded{}},
		{name: "timer ended with round", data: `{"type":"timerEnded","round":4}`, want: TimerEnded{Round: &round}},
		{name: "not json", data: `{"type":`, wantErr: ErrMalformed},
		{name: "missing type", data: `{"team":"MI"}`, wantErr: ErrMalformed},
		{name: "unknown type", data: `{"type":"cheat"}`, wantErr: ErrUnknownType},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tc.data))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeInbound_NonNumericBidIsNaN(t *testing.T) {
	for _, data := range []string{
		`{"type":"placeBid","bidAmount":"lots"}`,
		`{"type":"placeBid","bidAmount":null}`,
		`{"type":"placeBid"}`,
	} {
		got, err := DecodeInbound([]byte(data))
		require.NoError(t, err, data)
		bid, ok := got.(PlaceBid)
		require.True(t, ok)
		assert.True(t, math.IsNaN(bid.Amount), data)
	}
}

func TestEncode_CarriesType(t *testing.T) {
	data, err := Encode(NewPlayerSold(Player{Name: "Kohli", BasePrice: 200, Category: "Batsmen"}, "MI", 900,
		map[string][]Purchase{"MI": {{Name: "Kohli", Price: 900}}}))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "playerSold", got["type"])
	assert.Equal(t, "MI", got["team"])
	assert.EqualValues(t, 900, got["bidAmount"])
	assert.Equal(t, "Batsmen", got["player"].(map[string]any)["category"])
}

func TestEncode_AuctionCompleteHasOnlyType(t *testing.T) {
	data, err := Encode(NewAuctionComplete())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"auctionComplete"}`, string(data))
}
