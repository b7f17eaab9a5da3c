package protocol

import (
	"encoding/binary"
	"fmt"
	"sort"
	"unicode/utf8"
)

// Packet is the application message riding inside an Active frame:
//
//	msgType:u16 | paramCount:u16 | param*
//
// Each param:
//
//	nameLen:u16 | name | valueTag:u8 | value
//
// The tag set is closed; the decoder rejects unknown tags.
type Packet struct {
	SessionID uint64 // not on the wire; the frame carries it
	Type      MsgType
	params    map[string]Value
}

// Value is the tagged variant a parameter carries.
type Value struct {
	Tag Tag

	b   bool
	u32 uint32
	u64 uint64
	i32 int32
	str string
}

// Tag identifies the wire encoding of a parameter value.
type Tag uint8

const (
	TagBool   Tag = 1
	TagU32    Tag = 2
	TagU64    Tag = 3
	TagI32    Tag = 4
	TagString Tag = 5
)

// NewPacket creates an empty packet addressed to (or from) the session.
func NewPacket(sessionID uint64, t MsgType) *Packet {
	return &Packet{SessionID: sessionID, Type: t, params: make(map[string]Value)}
}

func (p *Packet) SetBool(name string, v bool)     { p.params[name] = Value{Tag: TagBool, b: v} }
func (p *Packet) SetU32(name string, v uint32)    { p.params[name] = Value{Tag: TagU32, u32: v} }
func (p *Packet) SetU64(name string, v uint64)    { p.params[name] = Value{Tag: TagU64, u64: v} }
func (p *Packet) SetI32(name string, v int32)     { p.params[name] = Value{Tag: TagI32, i32: v} }
func (p *Packet) SetString(name string, v string) { p.params[name] = Value{Tag: TagString, str: v} }

// Bool returns the named bool parameter; ok is false when the parameter is
// absent or has a different tag. The other accessors follow the same shape.
func (p *Packet) Bool(name string) (bool, bool) {
	v, ok := p.params[name]
	if !ok || v.Tag != TagBool {
		return false, false
	}
	return v.b, true
}

func (p *Packet) U32(name string) (uint32, bool) {
	v, ok := p.params[name]
	if !ok || v.Tag != TagU32 {
		return 0, false
	}
	return v.u32, true
}

func (p *Packet) U64(name string) (uint64, bool) {
	v, ok := p.params[name]
	if !ok || v.Tag != TagU64 {
		return 0, false
	}
	return v.u64, true
}

func (p *Packet) I32(name string) (int32, bool) {
	v, ok := p.params[name]
	if !ok || v.Tag != TagI32 {
		return 0, false
	}
	return v.i32, true
}

func (p *Packet) String(name string) (string, bool) {
	v, ok := p.params[name]
	if !ok || v.Tag != TagString {
		return "", false
	}
	return v.str, true
}

// Len returns the number of parameters.
func (p *Packet) Len() int {
	return len(p.params)
}

// Names returns the parameter names in sorted order. Sorting makes the
// encoded form deterministic, which the round-trip tests rely on.
func (p *Packet) Names() []string {
	names := make([]string, 0, len(p.params))
	for name := range p.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encode serialises the packet body (the Active-frame payload).
func (p *Packet) Encode() []byte {
	buf := make([]byte, 0, 64)
	buf = binary.BigEndian.AppendUint16(buf, uint16(p.Type))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(p.params)))

	for _, name := range p.Names() {
		v := p.params[name]
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(name)))
		buf = append(buf, name...)
		buf = append(buf, byte(v.Tag))
		switch v.Tag {
		case TagBool:
			if v.b {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		case TagU32:
			buf = binary.BigEndian.AppendUint32(buf, v.u32)
		case TagU64:
			buf = binary.BigEndian.AppendUint64(buf, v.u64)
		case TagI32:
			buf = binary.BigEndian.AppendUint32(buf, uint32(v.i32))
		case TagString:
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(v.str)))
			buf = append(buf, v.str...)
		}
	}
	return buf
}

// DecodePacket parses an Active-frame payload into a Packet owned by the
// given session.
func DecodePacket(sessionID uint64, data []byte) (*Packet, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("packet too short: %d bytes", len(data))
	}

	p := NewPacket(sessionID, MsgType(binary.BigEndian.Uint16(data[0:2])))
	count := int(binary.BigEndian.Uint16(data[2:4]))
	off := 4

	for i := 0; i < count; i++ {
		if len(data)-off < 2 {
			return nil, fmt.Errorf("param %d: truncated name length", i)
		}
		nameLen := int(binary.BigEndian.Uint16(data[off : off+2]))
		off += 2
		if len(data)-off < nameLen+1 {
			return nil, fmt.Errorf("param %d: truncated name", i)
		}
		name := string(data[off : off+nameLen])
		off += nameLen

		tag := Tag(data[off])
		off++

		switch tag {
		case TagBool:
			if len(data)-off < 1 {
				return nil, fmt.Errorf("param %q: truncated bool", name)
			}
			p.SetBool(name, data[off] != 0)
			off++
		case TagU32:
			if len(data)-off < 4 {
				return nil, fmt.Errorf("param %q: truncated u32", name)
			}
			p.SetU32(name, binary.BigEndian.Uint32(data[off:off+4]))
			off += 4
		case TagU64:
			if len(data)-off < 8 {
				return nil, fmt.Errorf("param %q: truncated u64", name)
			}
			p.SetU64(name, binary.BigEndian.Uint64(data[off:off+8]))
			off += 8
		case TagI32:
			if len(data)-off < 4 {
				return nil, fmt.Errorf("param %q: truncated i32", name)
			}
			p.SetI32(name, int32(binary.BigEndian.Uint32(data[off:off+4])))
			off += 4
		case TagString:
			if len(data)-off < 4 {
				return nil, fmt.Errorf("param %q: truncated string length", name)
			}
			strLen := int(binary.BigEndian.Uint32(data[off : off+4]))
			off += 4
			if len(data)-off < strLen {
				return nil, fmt.Errorf("param %q: truncated string", name)
			}
			s := data[off : off+strLen]
			if !utf8.Valid(s) {
				return nil, fmt.Errorf("param %q: invalid UTF-8", name)
			}
			p.SetString(name, string(s))
			off += strLen
		default:
			return nil, fmt.Errorf("param %q: unknown value tag %d", name, tag)
		}
	}

	if off != len(data) {
		return nil, fmt.Errorf("trailing %d bytes after packet", len(data)-off)
	}
	return p, nil
}
