package compression

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// CompressRLE reads bytes from the input and writes (count, value) pairs to
// the output until the input is exhausted. Runs longer than 255 bytes are
// split into multiple pairs. The return value is the number of bytes written,
// only valid if no error occurred.
func CompressRLE(input io.Reader, output io.Writer) (int64, error) {
	source := bufio.NewReader(input)
	totalBytesWritten := int64(0)

	currentByte, err := source.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			// Empty input compresses to empty output.
			return 0, nil
		}
		return 0, fmt.Errorf("error reading input: %w", err)
	}

	runLength := 1
	for {
		nextByte, err := source.ReadByte()
		if err != nil && !errors.Is(err, io.EOF) {
			return totalBytesWritten, fmt.Errorf("error reading input: %w", err)
		}
		hitEOF := err != nil

		if !hitEOF && nextByte == currentByte && runLength < 255 {
			runLength++
			continue
		}

		n, writeErr := output.Write([]byte{byte(runLength), currentByte})
		totalBytesWritten += int64(n)
		if writeErr != nil {
			return totalBytesWritten, fmt.Errorf("failed to write to output: %w", writeErr)
		}
		if hitEOF {
			return totalBytesWritten, nil
		}

		// The byte that ended the run starts the next one. This is also how a
		// run of 256+ gets split: the 256th byte no longer matches the length
		// test above even though its value is the same.
		currentByte = nextByte
		runLength = 1
	}
}

// DecompressRLE reads (count, value) pairs from the input and writes the
// expanded runs to the output. A trailing lone byte with no partner is
// ignored. The return value is the number of bytes written, only valid if no
// error occurred.
func DecompressRLE(input io.Reader, output io.Writer) (int64, error) {
	source := bufio.NewReader(input)
	totalBytesWritten := int64(0)

	for {
		count, err := source.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return totalBytesWritten, nil
			}
			return totalBytesWritten, fmt.Errorf("error reading input: %w", err)
		}

		value, err := source.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Odd-length input; the dangling count byte is discarded.
				return totalBytesWritten, nil
			}
			return totalBytesWritten, fmt.Errorf("error reading input: %w", err)
		}

		n, err := output.Write(bytes.Repeat([]byte{value}, int(count)))
		totalBytesWritten += int64(n)
		if err != nil {
			return totalBytesWritten, fmt.Errorf("failed to write to output: %w", err)
		}
	}
}
