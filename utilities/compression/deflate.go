package compression

import (
	"compress/flate"
	"fmt"
	"io"
)

// CompressDeflate compresses the input as a raw DEFLATE stream.
//
// The returned int64 gives the number of bytes written to the output stream.
// If an error occurred, this value is undefined and should not be used.
func CompressDeflate(input io.Reader, output io.Writer) (int64, error) {
	// Because we have no way of getting the number of bytes written to the
	// output stream from an io.Writer, we need to keep track of it ourselves.
	writer := countingWriter{Writer: output}

	// Use the highest compression available. Payloads are at most a couple of
	// megabytes on these volumes, so we won't notice much of a speed
	// difference between the default and highest levels.
	flateWriter, err := flate.NewWriter(&writer, flate.BestCompression)
	if err != nil {
		return 0, fmt.Errorf("failed to create deflate writer: %w", err)
	}

	_, err = io.Copy(flateWriter, input)
	closeErr := flateWriter.Close()
	if err != nil {
		err = fmt.Errorf("deflate compression error: %w", err)
	} else if closeErr != nil {
		err = fmt.Errorf("deflate compression error: %w", closeErr)
	}
	return writer.BytesWritten, err
}

// DecompressDeflate takes a raw DEFLATE stream and decompresses it to the
// original data. Malformed streams are rejected with an error.
//
// The returned int64 gives the number of bytes written to the output (i.e.
// the decompressed size of the data). If an error occurred, the value is
// undefined and should not be used.
func DecompressDeflate(input io.Reader, output io.Writer) (int64, error) {
	flateReader := flate.NewReader(input)
	defer flateReader.Close()

	n, err := io.Copy(output, flateReader)
	if err != nil {
		return n, fmt.Errorf("deflate decompression error: %w", err)
	}
	return n, nil
}

// countingWriter is a wrapper around [io.Writer] streams that keeps track of
// how many bytes are successfully written to the stream.
type countingWriter struct {
	// Writer is the [io.Writer] that this intercepts the writes to.
	Writer io.Writer

	// BytesWritten is the total number of bytes successfully written to [Writer].
	BytesWritten int64
}

// Write writes bytes to the underlying stream.
func (w *countingWriter) Write(b []byte) (int, error) {
	n, err := w.Writer.Write(b)
	if err == nil {
		w.BytesWritten += int64(n)
	}
	return n, err
}
