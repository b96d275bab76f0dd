package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/Swizzzer/tinyfs"
)

// Method identifies one of the compression schemes a volume can apply to a
// file payload. The numeric values are stored on disk in directory entries
// and must never change.
type Method uint8

const (
	// MethodNone stores bytes unmodified.
	MethodNone = Method(0)
	// MethodRLE run-length encodes the payload as (count, value) pairs.
	MethodRLE = Method(1)
	// MethodDeflate compresses the payload as a raw DEFLATE stream.
	MethodDeflate = Method(2)
)

// IsValid tells whether this is a method the codec knows how to apply.
func (method Method) IsValid() bool {
	return method <= MethodDeflate
}

// Label returns the human-readable name of the method.
func (method Method) Label() string {
	switch method {
	case MethodNone:
		return "none"
	case MethodRLE:
		return "rle"
	case MethodDeflate:
		return "deflate"
	}
	return "unknown"
}

// MethodFromLabel is the inverse of [Method.Label].
func MethodFromLabel(label string) (Method, error) {
	switch label {
	case "none":
		return MethodNone, nil
	case "rle":
		return MethodRLE, nil
	case "deflate":
		return MethodDeflate, nil
	}
	return 0, tinyfs.ErrInvalidArgument.WithMessage(
		fmt.Sprintf("unknown compression method %q", label))
}

// Compress encodes the input with the given method and writes the result to
// the output. The return value is the number of bytes written, only valid if
// no error occurred.
func Compress(method Method, input io.Reader, output io.Writer) (int64, error) {
	switch method {
	case MethodNone:
		return io.Copy(output, input)
	case MethodRLE:
		return CompressRLE(input, output)
	case MethodDeflate:
		return CompressDeflate(input, output)
	}
	return 0, tinyfs.ErrInvalidArgument.WithMessage(
		fmt.Sprintf("unknown compression method %d", method))
}

// Decompress decodes a stream previously produced by [Compress] with the same
// method.
func Decompress(method Method, input io.Reader, output io.Writer) (int64, error) {
	switch method {
	case MethodNone:
		return io.Copy(output, input)
	case MethodRLE:
		return DecompressRLE(input, output)
	case MethodDeflate:
		return DecompressDeflate(input, output)
	}
	return 0, tinyfs.ErrInvalidArgument.WithMessage(
		fmt.Sprintf("unknown compression method %d", method))
}

// CompressToBytes is a convenience wrapper around [Compress] operating on
// byte slices instead of streams.
func CompressToBytes(method Method, data []byte) ([]byte, error) {
	buffer := bytes.Buffer{}
	_, err := Compress(method, bytes.NewReader(data), &buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// DecompressToBytes is a convenience wrapper around [Decompress] operating on
// byte slices instead of streams.
func DecompressToBytes(method Method, data []byte) ([]byte, error) {
	buffer := bytes.Buffer{}
	_, err := Decompress(method, bytes.NewReader(data), &buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
