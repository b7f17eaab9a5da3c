package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame is the on-wire unit:
//
//	magic:u16 | status:u8 | sessionId:u64 | ivLen:u8 | iv:ivLen |
//	payloadLen:u32 | payload:payloadLen
//
// All integers are big-endian. The IV is present (16 bytes) only on
// Active frames; everywhere else ivLen is 0.
type Frame struct {
	Status    Status
	SessionID uint64
	IV        []byte
	Payload   []byte
}

// Status is the frame-level status code.
type Status uint8

const (
	StatusHello          Status = 1
	StatusNewSession     Status = 2
	StatusPending        Status = 3
	StatusActivated      Status = 4
	StatusActive         Status = 5
	StatusInactive       Status = 6
	StatusError          Status = 7
	StatusInvalidRequest Status = 8
)

const (
	// FrameMagic identifies the protocol; a mismatch closes the connection.
	FrameMagic uint16 = 0x474B

	// MaxPayloadLen caps the payload of a single frame. Oversize frames
	// close the connection without a reply.
	MaxPayloadLen = 1 << 20

	// IVLen is the nonce length on Active frames.
	IVLen = 16

	frameHeaderLen = 2 + 1 + 8 + 1 // magic + status + sessionId + ivLen
)

var (
	ErrBadMagic      = errors.New("bad frame magic")
	ErrFrameTooLarge = errors.New("frame payload exceeds limit")
	ErrShortFrame    = errors.New("incomplete frame")
)

// Encode serialises the frame.
func (f *Frame) Encode() []byte {
	buf := make([]byte, 0, frameHeaderLen+len(f.IV)+4+len(f.Payload))
	buf = binary.BigEndian.AppendUint16(buf, FrameMagic)
	buf = append(buf, byte(f.Status))
	buf = binary.BigEndian.AppendUint64(buf, f.SessionID)
	buf = append(buf, byte(len(f.IV)))
	buf = append(buf, f.IV...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(f.Payload)))
	buf = append(buf, f.Payload...)
	return buf
}

// DecodeFrame tries to decode one frame from the front of buf.
// It returns the frame and the number of bytes consumed. A nil frame with
// n == 0 and a nil error means buf does not yet hold a complete frame;
// the caller should read more input.
//
// ErrBadMagic and ErrFrameTooLarge are fatal for the connection.
func DecodeFrame(buf []byte) (*Frame, int, error) {
	if len(buf) < frameHeaderLen {
		return nil, 0, nil
	}

	if binary.BigEndian.Uint16(buf[0:2]) != FrameMagic {
		return nil, 0, ErrBadMagic
	}

	status := Status(buf[2])
	sessionID := binary.BigEndian.Uint64(buf[3:11])
	ivLen := int(buf[11])

	need := frameHeaderLen + ivLen + 4
	if len(buf) < need {
		return nil, 0, nil
	}

	iv := buf[frameHeaderLen : frameHeaderLen+ivLen]
	payloadLen := int(binary.BigEndian.Uint32(buf[frameHeaderLen+ivLen : need]))
	if payloadLen > MaxPayloadLen {
		return nil, 0, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, payloadLen)
	}

	total := need + payloadLen
	if len(buf) < total {
		return nil, 0, nil
	}

	f := &Frame{
		Status:    status,
		SessionID: sessionID,
	}
	if ivLen > 0 {
		f.IV = append([]byte(nil), iv...)
	}
	if payloadLen > 0 {
		f.Payload = append([]byte(nil), buf[need:total]...)
	}
	return f, total, nil
}
