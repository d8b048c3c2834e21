package rnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestDecode(t *testing.T) {
	b, err := Encode(Msg{Kind: KindOver, Name: "attic", Time: 1700000000000})
	require.NoError(t, err)
	m, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, Msg{Kind: KindOver, Name: "attic", Time: 1700000000000}, m)

	_, err = Decode([]byte{0xc1})
	assert.Error(t, err)

	bad, err := msgpack.Marshal(&Msg{Kind: 9})
	require.NoError(t, err)
	_, err = Decode(bad)
	assert.ErrorContains(t, err, "unknown message kind")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "reading", KindReading.String())
	assert.Equal(t, "ping", KindPing.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
