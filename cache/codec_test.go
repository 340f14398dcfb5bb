package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fare struct {
	TripID int     `json:"tripId"`
	Amount float64 `json:"amount"`
	Note   string  `json:"note,omitempty"`
}

func TestCodecs(t *testing.T) {
	in := []fare{{TripID: 1, Amount: 12.5}, {TripID: 2, Amount: 8, Note: "night"}}

	for name, codec := range map[string]Codec{"json": JSONCodec{}, "msgpack": MsgpackCodec{}} {
		t.Run(name, func(t *testing.T) {
			data, err := codec.Marshal(in)
			require.NoError(t, err)

			var out []fare
			require.NoError(t, codec.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestMsgpackCodec_UsesJSONNames(t *testing.T) {
	data, err := MsgpackCodec{}.Marshal(fare{TripID: 3})
	require.NoError(t, err)

	var loose map[string]any
	require.NoError(t, MsgpackCodec{}.Unmarshal(data, &loose))
	assert.Contains(t, loose, "tripId")
	assert.NotContains(t, loose, "note")
}

func TestCodecFuncs(t *testing.T) {
	boom := errors.New("boom")
	codec := CodecFuncs{
		MarshalFunc:   func(v any) ([]byte, error) { return []byte("x"), nil },
		UnmarshalFunc: func(data []byte, v any) error { return boom },
	}

	data, err := codec.Marshal(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
	assert.ErrorIs(t, codec.Unmarshal(data, new(int)), boom)
}
