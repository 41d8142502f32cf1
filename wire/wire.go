// Package wire decodes and encodes the fixed-layout binary records
// exchanged with the device over the transport connection. Every record
// is read or written field by field against little-endian byte order,
// mirroring the way the pack's UDP packet parsers walk a fixed layout
// rather than leaning on reflection or a generic serialization library.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// MessageKind tags the body of a framed request or response.
type MessageKind uint8

// Known message kinds. The set is intentionally small: the transport
// layer multiplexes on these plus a caller-supplied opaque payload.
const (
	KindRequest MessageKind = iota + 1
	KindResponse
	KindStreamEvent
)

// maxBodyBytes bounds a single frame body, guarding against a corrupt
// length prefix turning into an unbounded allocation.
const maxBodyBytes = 64 << 20

// WriteFrame writes a length-prefixed frame: a 4-byte little-endian
// uint32 body length, a 1-byte kind tag, then body.
func WriteFrame(w io.Writer, kind MessageKind, body []byte) error {
	header := make([]byte, 5)
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(body)))
	header[4] = byte(kind)
	if _, err := w.Write(header); err != nil {
		return errors.Wrap(err, "wire: writing frame header")
	}
	if len(body) == 0 {
		return nil
	}
	if _, err := w.Write(body); err != nil {
		return errors.Wrap(err, "wire: writing frame body")
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r.
func ReadFrame(r io.Reader) (MessageKind, []byte, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, errors.Wrap(err, "wire: reading frame header")
	}
	bodyLen := binary.LittleEndian.Uint32(header[0:4])
	if bodyLen > maxBodyBytes {
		return 0, nil, errors.Errorf("wire: frame body length %d exceeds limit", bodyLen)
	}
	kind := MessageKind(header[4])
	if bodyLen == 0 {
		return kind, nil, nil
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, errors.Wrap(err, "wire: reading frame body")
	}
	return kind, body, nil
}

// readString reads a fixed-width, NUL-padded byte field and trims the
// trailing padding, matching the device's fixed-width string fields.
func readString(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

// putString writes s into a fixed-width NUL-padded field, truncating if
// s is longer than the field.
func putString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	n := copy(dst, s)
	_ = n
}
