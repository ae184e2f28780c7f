package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFormatRoundTrip(t *testing.T) {
	require := require.New(t)

	tests := []struct {
		description string
		frame       string
		expected    Message
	}{
		{"read MAIN connected_device", "100000", Message{Base: 1, Offset: 0x00, RW: Read, Data: 0x00}},
		{"write ACTUATOR LED", "310180", Message{Base: 3, Offset: 0x10, RW: Write, Data: 0x80}},
		{"heater masked write request", "330155", Message{Base: 3, Offset: 0x30, RW: Write, Data: 0x55}},
		{"control read", "4FB000", Message{Base: 4, Offset: 0xFB, RW: Read, Data: 0x00}},
		{"lowercase hex", "3a0f1f", Message{Base: 3, Offset: 0xA0, RW: 15, Data: 0x1F}},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			msg, err := Parse(tc.frame)
			require.NoError(err)
			require.Equal(tc.expected, msg)

			formatted := Format(msg)
			reParsed, err := Parse(formatted)
			require.NoError(err)
			require.Equal(msg, reParsed)
		})
	}
}

func TestFormatErrorFrame(t *testing.T) {
	require := require.New(t)

	require.Equal("1FFFFF", Format(NewError(Forbidden)))
	require.Equal("2FFFFF", Format(NewError(Invalid)))
	require.Equal("3FFFFF", Format(NewError(General)))
}

func TestParseRejectsMalformed(t *testing.T) {
	require := require.New(t)

	_, err := Parse("12345")
	require.ErrorIs(err, ErrBadLength)

	_, err = Parse("1234567")
	require.ErrorIs(err, ErrBadLength)

	_, err = Parse("GG0000")
	require.ErrorIs(err, ErrBadHex)

	_, err = Parse("1-0000")
	require.ErrorIs(err, ErrBadHex)
}

func TestNewReadNewWrite(t *testing.T) {
	require := require.New(t)

	read := NewRead(3, 0x10)
	require.Equal(Message{Base: 3, Offset: 0x10, RW: Read}, read)
	require.False(read.IsError())

	write := NewWrite(3, 0x10, 0x80)
	require.Equal(Message{Base: 3, Offset: 0x10, RW: Write, Data: 0x80}, write)
}

func TestNewErrorPanicsOnBadCode(t *testing.T) {
	require := require.New(t)
	require.Panics(func() { NewError(NoError) })
	require.Panics(func() { NewError(ErrorCode(9)) })
}

func TestLooksLikeErrorFrame(t *testing.T) {
	require := require.New(t)

	code, ok := LooksLikeErrorFrame("1FFFFF")
	require.True(ok)
	require.Equal(Forbidden, code)

	_, ok = LooksLikeErrorFrame("100000")
	require.False(ok)

	_, ok = LooksLikeErrorFrame("1FFFF")
	require.False(ok)
}

func TestMessagePoolRoundTrip(t *testing.T) {
	require := require.New(t)

	m := NewWrite(3, 0x40, 0x55)
	p := GetMessage(m)
	require.Equal(m, *p)
	PutMessage(p)

	p2 := GetMessage(NewRead(1, 0))
	require.Equal(NewRead(1, 0), *p2)
}
