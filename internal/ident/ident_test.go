package ident

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratedWidths(t *testing.T) {
	key, err := AccountKey()
	require.NoError(t, err)
	require.True(t, ValidAccountKey(key))

	tok, err := Token()
	require.NoError(t, err)
	require.True(t, ValidToken(tok))

	dev, err := DeviceID()
	require.NoError(t, err)
	require.True(t, ValidDeviceID(dev))

	sec, err := DeviceSecret()
	require.NoError(t, err)
	require.Len(t, sec, 64)
}

func TestFlockIDReservesLowByte(t *testing.T) {
	for i := 0; i < 32; i++ {
		id, err := FlockID()
		require.NoError(t, err)
		require.True(t, ValidFlockID(id))
		require.True(t, strings.HasSuffix(id, "00"))
	}
}

func TestValidators(t *testing.T) {
	require.False(t, ValidAccountKey(""))
	require.False(t, ValidAccountKey(strings.Repeat("g", 64))) // not hex
	require.False(t, ValidAccountKey(strings.Repeat("A", 64))) // uppercase rejected
	require.True(t, ValidAccountKey(strings.Repeat("a1", 32)))

	require.False(t, ValidToken(strings.Repeat("a", 31)))
	require.True(t, ValidToken(strings.Repeat("0", 32)))

	// well-formed but without the reserved low byte still validates
	require.True(t, ValidFlockID("aabbccddeeff0011"))
	require.False(t, ValidFlockID("aabbccddeeff00"))

	require.True(t, ValidDeviceID("00ff00ff"))
	require.False(t, ValidDeviceID("00ff00f"))
}
