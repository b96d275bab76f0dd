// Package compression provides the codecs a MINIFAT volume can apply to file
// payloads before they're written to clusters.
//
// Three methods exist, selected by a byte tag that is stored in the file's
// directory entry: 0 stores bytes unmodified, 1 run-length encodes them, and
// 2 uses raw DEFLATE at the highest compression level.
//
// The run-length encoding here is the simplest possible one: each run of a
// repeated byte is written as a (count, value) pair, with runs longer than
// 255 bytes split into multiple pairs. Note that the encoding is not
// self-delimiting -- a pair produced from a literal byte is indistinguishable
// from a pair produced from a run of one -- so the decoder cannot recover the
// original length from the stream alone. The volume recovers it from the
// directory entry's recorded sizes instead. Do not try to decode by EOF.
//
// All codecs are pure stream transformations; nothing in this package touches
// the disk image or carries state between calls.

package compression
