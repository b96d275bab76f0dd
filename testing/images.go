// Package testing provides helpers for building memory-backed MINIFAT
// volumes in unit tests, so no test has to touch the real filesystem.
package testing

import (
	"io"
	"testing"

	"github.com/Swizzzer/tinyfs/minifat"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// NewImageStream returns an in-memory stream of exactly one volume's size.
//
//   - The stream's size is fixed; attempting to write past the end of the
//     buffer will trigger an error, just like a fixed-size host file.
//   - The underlying buffer is shared between every handle mounted on the
//     stream, which is what makes remount-and-compare tests possible.
func NewImageStream() io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(make([]byte, minifat.TotalImageBytes))
}

// FormatVolume formats a fresh memory-backed volume and returns it along with
// its backing stream, for tests that want to remount the same image later.
func FormatVolume(t *testing.T) (*minifat.Volume, io.ReadWriteSeeker) {
	stream := NewImageStream()
	volume, err := minifat.FormatStream(stream)
	require.NoError(t, err, "formatting an in-memory volume failed")
	return volume, stream
}
