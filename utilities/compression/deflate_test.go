package compression_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	c "github.com/Swizzzer/tinyfs/utilities/compression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeflateRoundTrip__Text(t *testing.T) {
	original := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 64)
	runDeflateRoundTripTestCase(t, original)
}

func TestDeflateRoundTrip__Random(t *testing.T) {
	original := make([]byte, 10000)
	rand.Read(original)
	runDeflateRoundTripTestCase(t, original)
}

func TestDeflateRoundTrip__Empty(t *testing.T) {
	runDeflateRoundTripTestCase(t, []byte{})
}

func TestDeflateCompress__HighlyRepetitiveShrinks(t *testing.T) {
	original := bytes.Repeat([]byte{0}, 65536)

	compressed := bytes.Buffer{}
	n, err := c.CompressDeflate(bytes.NewReader(original), &compressed)
	require.NoError(t, err)
	assert.EqualValues(t, compressed.Len(), n)
	assert.Less(t, compressed.Len(), len(original)/100)
}

func TestDeflateDecompress__RejectsGarbage(t *testing.T) {
	garbage := []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03}

	output := bytes.Buffer{}
	_, err := c.DecompressDeflate(bytes.NewReader(garbage), &output)
	assert.Error(t, err, "malformed stream should be rejected")
}

func runDeflateRoundTripTestCase(t *testing.T, originalData []byte) {
	compressed := bytes.Buffer{}
	n, err := c.CompressDeflate(bytes.NewReader(originalData), &compressed)
	require.NoError(t, err, "unexpected error while compressing")
	require.EqualValues(t, compressed.Len(), n)

	decompressed := bytes.Buffer{}
	n, err = c.DecompressDeflate(bytes.NewReader(compressed.Bytes()), &decompressed)
	require.NoError(t, err, "unexpected error while decompressing")
	assert.EqualValues(t, len(originalData), n)
	assert.True(
		t,
		bytes.Equal(originalData, decompressed.Bytes()),
		"decompressed data doesn't match original data",
	)
}
