// Package wire implements the fixed-layout little-endian records exchanged
// between the remote listener and the remote connector. There is
// no length prefix: each side reads exactly sizeof(record) bytes per
// transaction, and peer credentials never travel over the wire.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/trustbrokerd/trustbroker/internal/request"
)

// RequestRecordSize is the encoded size of a Request in bytes:
// app_uid(4) + app_pid(4) + feature(8) + app_start_time(8).
const RequestRecordSize = 4 + 4 + 8 + 8

// AnswerRecordSize is the encoded size of an Answer in bytes.
const AnswerRecordSize = 1

// Request is the connector→listener record.
type Request struct {
	AppUID       request.UID
	AppPID       request.PID
	Feature      request.Feature
	AppStartTime int64
}

// Encode writes r's fixed-layout little-endian encoding to w.
func (r Request) Encode(w io.Writer) error {
	var buf [RequestRecordSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.AppUID))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(r.AppPID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.Feature))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(r.AppStartTime))
	_, err := w.Write(buf[:])
	return err
}

// DecodeRequest reads exactly RequestRecordSize bytes from r and decodes
// them into a Request. A short read is reported as io.ErrUnexpectedEOF via
// io.ReadFull.
func DecodeRequest(r io.Reader) (Request, error) {
	var buf [RequestRecordSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Request{}, fmt.Errorf("wire: decode request: %w", err)
	}
	return Request{
		AppUID:       request.UID(binary.LittleEndian.Uint32(buf[0:4])),
		AppPID:       request.PID(binary.LittleEndian.Uint32(buf[4:8])),
		Feature:      request.Feature(binary.LittleEndian.Uint64(buf[8:16])),
		AppStartTime: int64(binary.LittleEndian.Uint64(buf[16:24])),
	}, nil
}

// Answer is the listener→connector record: a single byte, 0 = denied,
// 1 = granted.
type Answer request.Answer

// Encode writes a's single-byte encoding to w.
func (a Answer) Encode(w io.Writer) error {
	var b byte
	if a {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

// DecodeAnswer reads exactly AnswerRecordSize bytes from r and decodes them
// into an Answer.
func DecodeAnswer(r io.Reader) (Answer, error) {
	var buf [AnswerRecordSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return false, fmt.Errorf("wire: decode answer: %w", err)
	}
	return Answer(buf[0] != 0), nil
}
