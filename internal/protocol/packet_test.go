package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketRoundTrip(t *testing.T) {
	p := NewPacket(99, MsgMakeMove)
	p.SetBool("success", true)
	p.SetU32("x", 7)
	p.SetU64("roomId", 1<<40)
	p.SetI32("lastX", -1)
	p.SetString("username", "mørk") // non-ASCII survives

	got, err := DecodePacket(99, p.Encode())
	require.NoError(t, err)
	assert.Equal(t, MsgMakeMove, got.Type)
	assert.Equal(t, uint64(99), got.SessionID)
	assert.Equal(t, p.Len(), got.Len())

	b, ok := got.Bool("success")
	require.True(t, ok)
	assert.True(t, b)

	x, ok := got.U32("x")
	require.True(t, ok)
	assert.Equal(t, uint32(7), x)

	room, ok := got.U64("roomId")
	require.True(t, ok)
	assert.Equal(t, uint64(1<<40), room)

	lastX, ok := got.I32("lastX")
	require.True(t, ok)
	assert.Equal(t, int32(-1), lastX)

	name, ok := got.String("username")
	require.True(t, ok)
	assert.Equal(t, "mørk", name)
}

func TestPacketAccessorTagMismatch(t *testing.T) {
	p := NewPacket(1, MsgLogin)
	p.SetString("username", "a")

	_, ok := p.U32("username")
	assert.False(t, ok)
	_, ok = p.Bool("username")
	assert.False(t, ok)
	_, ok = p.String("missing")
	assert.False(t, ok)
}

func TestDecodePacketUnknownTag(t *testing.T) {
	p := NewPacket(1, MsgLogin)
	p.SetBool("v", true)
	buf := p.Encode()
	buf[len(buf)-2] = 99 // overwrite the value tag

	_, err := DecodePacket(1, buf)
	assert.ErrorContains(t, err, "unknown value tag")
}

func TestDecodePacketTruncated(t *testing.T) {
	p := NewPacket(1, MsgLogin)
	p.SetString("username", "gomoku")
	buf := p.Encode()

	for i := 5; i < len(buf); i++ {
		_, err := DecodePacket(1, buf[:i])
		assert.Error(t, err, "prefix %d", i)
	}
}

func TestDecodePacketTrailingBytes(t *testing.T) {
	p := NewPacket(1, MsgHeartbeat)
	buf := append(p.Encode(), 0x00)

	_, err := DecodePacket(1, buf)
	assert.ErrorContains(t, err, "trailing")
}

func TestDecodePacketInvalidUTF8(t *testing.T) {
	p := NewPacket(1, MsgChatMessage)
	p.SetString("message", "ok")
	buf := p.Encode()
	buf[len(buf)-1] = 0xFF

	_, err := DecodePacket(1, buf)
	assert.ErrorContains(t, err, "invalid UTF-8")
}

func TestMsgTypeFamily(t *testing.T) {
	assert.Equal(t, FamilyAuth, MsgLogin.Family())
	assert.Equal(t, FamilyAuth, MsgLogOut.Family())
	assert.Equal(t, FamilyLobby, MsgQuickMatch.Family())
	assert.Equal(t, FamilyRoom, MsgExitRoom.Family())
	assert.Equal(t, FamilyGame, MsgSyncGame.Family())
	assert.Equal(t, 0, MsgHeartbeat.Family())
	assert.Equal(t, 99, MsgError.Family())
}
