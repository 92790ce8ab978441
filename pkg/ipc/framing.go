// Package ipc implements C12: the local IPC server that exposes the
// agent's control surface to unprivileged client processes over a UNIX
// domain socket. The length-prefixed wire shape is grounded on mutagen's
// framing.Encoder/Decoder (framing/framing.go), but the length prefix is
// fixed at 4 bytes little-endian and the payload is UTF-8 JSON rather
// than a varint-prefixed protobuf message, per this agent's wire format.
package ipc

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// MaxFrameSize bounds the body of any single frame. Oversized frames are
// discarded and the connection is closed.
const MaxFrameSize = 2 * 1024 * 1024

// WriteFrame writes a single length-prefixed frame containing body.
func WriteFrame(w io.Writer, body []byte) error {
	if len(body) > MaxFrameSize {
		return errors.New("frame body exceeds maximum size")
	}
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return errors.Wrap(err, "unable to write frame header")
	}
	if _, err := w.Write(body); err != nil {
		return errors.Wrap(err, "unable to write frame body")
	}
	return nil
}

// ReadFrame reads a single length-prefixed frame, returning its body. It
// returns an error (and the connection should be closed) if the declared
// length exceeds MaxFrameSize.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, errors.New("frame exceeds maximum size")
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.Wrap(err, "unable to read frame body")
	}
	return body, nil
}
