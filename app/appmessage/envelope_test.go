// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package appmessage

import (
	"bytes"
	"net"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"pgregory.net/rapid"
)

// regtestVerAck is a complete verack frame on the regression test network.
var regtestVerAck = []byte{
	0xfa, 0xbf, 0xb5, 0xda, // Magic
	0x76, 0x65, 0x72, 0x61, 0x63, 0x6b, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, // "verack"
	0x00, 0x00, 0x00, 0x00, // Length
	0x5d, 0xf6, 0xe0, 0xe2, // Checksum of the empty payload
}

func TestEncodeVerAck(t *testing.T) {
	got, err := EncodeMessage(Regtest, NewMsgVerAck())
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	if !bytes.Equal(got, regtestVerAck) {
		t.Fatalf("EncodeMessage\n got: %s want: %s",
			spew.Sdump(got), spew.Sdump(regtestVerAck))
	}
}

func TestPayloadChecksum(t *testing.T) {
	want := [4]byte{0x5d, 0xf6, 0xe0, 0xe2}
	if got := PayloadChecksum(nil); got != want {
		t.Errorf("PayloadChecksum(nil): got %x, want %x", got, want)
	}
	if got := PayloadChecksum([]byte{}); got != want {
		t.Errorf("PayloadChecksum(empty): got %x, want %x", got, want)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	frame, err := EncodeEnvelope(Regtest, CmdPing, payload)
	if err != nil {
		t.Fatalf("EncodeEnvelope: %v", err)
	}

	// Trailing bytes belong to the next frame and must not be consumed.
	buf := append(append([]byte{}, frame...), regtestVerAck...)
	envelope, n, err := DecodeEnvelope(buf, Regtest)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if n != MessageHeaderSize+len(payload) {
		t.Errorf("DecodeEnvelope: consumed %d bytes, want %d", n,
			MessageHeaderSize+len(payload))
	}
	want := &Envelope{
		Net:      Regtest,
		Command:  CmdPing,
		Length:   uint32(len(payload)),
		Checksum: PayloadChecksum(payload),
		Payload:  payload,
	}
	if !envelopesEqual(envelope, want) {
		t.Errorf("DecodeEnvelope\n got: %s want: %s",
			spew.Sdump(envelope), spew.Sdump(want))
	}
	if envelope.Kind() != KindOther {
		t.Errorf("Kind: got %s, want %s", envelope.Kind(), KindOther)
	}

	// The payload must not alias the input buffer.
	buf[MessageHeaderSize] ^= 0xff
	if envelope.Payload[0] != payload[0] {
		t.Errorf("DecodeEnvelope: payload aliases the input buffer")
	}

	next, n, err := DecodeEnvelope(buf[n:], Regtest)
	if err != nil {
		t.Fatalf("DecodeEnvelope (second frame): %v", err)
	}
	if n != MessageHeaderSize || next.Kind() != KindVerAck || len(next.Payload) != 0 {
		t.Errorf("DecodeEnvelope (second frame): got %s, consumed %d", next, n)
	}
}

// TestDecodeEnvelopePartial feeds every proper prefix of a frame and expects
// ErrNeedMoreData until the frame is complete.
func TestDecodeEnvelopePartial(t *testing.T) {
	frame, err := EncodeEnvelope(Regtest, CmdVersion, bytes.Repeat([]byte{0xab}, 40))
	if err != nil {
		t.Fatalf("EncodeEnvelope: %v", err)
	}

	for i := 0; i < len(frame); i++ {
		_, n, err := DecodeEnvelope(frame[:i], Regtest)
		if !errors.Is(err, ErrNeedMoreData) {
			t.Fatalf("DecodeEnvelope(%d bytes): got error %v, want %v", i,
				err, ErrNeedMoreData)
		}
		if n != 0 {
			t.Fatalf("DecodeEnvelope(%d bytes): consumed %d bytes", i, n)
		}
	}

	envelope, n, err := DecodeEnvelope(frame, Regtest)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if n != len(frame) || envelope.Kind() != KindVersion {
		t.Fatalf("DecodeEnvelope: got %s, consumed %d", envelope, n)
	}
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	valid, err := EncodeEnvelope(Regtest, CmdPing, []byte{0x01, 0x02, 0x03})
	if err != nil {
		t.Fatalf("EncodeEnvelope: %v", err)
	}

	corrupt := func(f func(b []byte) []byte) []byte {
		return f(append([]byte{}, valid...))
	}

	tests := []struct {
		name string
		buf  []byte
		err  error
	}{
		{
			name: "mainnet magic",
			buf: corrupt(func(b []byte) []byte {
				copy(b, []byte{0xf9, 0xbe, 0xb4, 0xd9})
				return b
			}),
			err: ErrInvalidMagic,
		},
		{
			// Only the header is present. The magic check must not wait
			// for the payload.
			name: "wrong magic with header only",
			buf: corrupt(func(b []byte) []byte {
				b[0] ^= 0xff
				return b[:MessageHeaderSize]
			}),
			err: ErrInvalidMagic,
		},
		{
			name: "checksum mismatch",
			buf: corrupt(func(b []byte) []byte {
				b[MessageHeaderSize] ^= 0x01
				return b
			}),
			err: ErrChecksumMismatch,
		},
		{
			name: "non-printable command",
			buf: corrupt(func(b []byte) []byte {
				b[5] = 0x07
				return b
			}),
			err: ErrInvalidCommand,
		},
		{
			name: "data after command padding",
			buf: corrupt(func(b []byte) []byte {
				b[4+CommandSize-1] = 'x'
				return b
			}),
			err: ErrInvalidCommand,
		},
		{
			name: "empty command",
			buf: corrupt(func(b []byte) []byte {
				copy(b[4:4+CommandSize], make([]byte, CommandSize))
				return b
			}),
			err: ErrInvalidCommand,
		},
		{
			name: "oversized length with header only",
			buf: corrupt(func(b []byte) []byte {
				littleEndian.PutUint32(b[16:20], MaxMessagePayload+1)
				return b[:MessageHeaderSize]
			}),
			err: ErrPayloadTooLarge,
		},
	}

	for _, test := range tests {
		_, n, err := DecodeEnvelope(test.buf, Regtest)
		if !errors.Is(err, test.err) {
			t.Errorf("%s: got error %v, want %v", test.name, err, test.err)
			continue
		}
		var msgErr *MessageError
		if !errors.As(err, &msgErr) {
			t.Errorf("%s: error %T is not a *MessageError", test.name, err)
		}
		if n != 0 {
			t.Errorf("%s: consumed %d bytes on error", test.name, n)
		}
	}
}

func TestEncodeEnvelopeErrors(t *testing.T) {
	tests := []struct {
		name    string
		command MessageCommand
		payload []byte
		err     error
	}{
		{"empty command", "", nil, ErrInvalidCommand},
		{"13 byte command", "abcdefghijklm", nil, ErrInvalidCommand},
		{"non-printable command", "ver\x00ack", nil, ErrInvalidCommand},
		{"oversized payload", CmdPing, make([]byte, MaxMessagePayload+1), ErrPayloadTooLarge},
	}

	for _, test := range tests {
		_, err := EncodeEnvelope(Regtest, test.command, test.payload)
		if !errors.Is(err, test.err) {
			t.Errorf("%s: got error %v, want %v", test.name, err, test.err)
		}
	}

	// Exactly CommandSize bytes fills the field without padding.
	frame, err := EncodeEnvelope(Regtest, "abcdefghijkl", nil)
	if err != nil {
		t.Fatalf("EncodeEnvelope(12 byte command): %v", err)
	}
	envelope, _, err := DecodeEnvelope(frame, Regtest)
	if err != nil {
		t.Fatalf("DecodeEnvelope(12 byte command): %v", err)
	}
	if envelope.Command != "abcdefghijkl" {
		t.Errorf("DecodeEnvelope(12 byte command): got %q", envelope.Command)
	}
}

func TestKindForCommand(t *testing.T) {
	tests := []struct {
		command MessageCommand
		kind    MessageKind
	}{
		{CmdVersion, KindVersion},
		{CmdVerAck, KindVerAck},
		{CmdPing, KindOther},
		{"sendheaders", KindOther},
		{"Version", KindOther},
	}

	for _, test := range tests {
		if got := KindForCommand(test.command); got != test.kind {
			t.Errorf("KindForCommand(%q): got %s, want %s", test.command,
				got, test.kind)
		}
	}
}

var commandGen = rapid.StringMatching(`[a-z]{1,12}`)

// TestEnvelopeRoundTrip checks that any valid frame decodes back to what was
// encoded and consumes exactly its own bytes.
func TestEnvelopeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		command := MessageCommand(commandGen.Draw(t, "command"))
		payload := rapid.SliceOfN(rapid.Byte(), 0, 2048).Draw(t, "payload")
		trailing := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "trailing")

		frame, err := EncodeEnvelope(Regtest, command, payload)
		if err != nil {
			t.Fatalf("EncodeEnvelope: %v", err)
		}
		envelope, n, err := DecodeEnvelope(append(frame, trailing...), Regtest)
		if err != nil {
			t.Fatalf("DecodeEnvelope: %v", err)
		}
		if n != MessageHeaderSize+len(payload) {
			t.Fatalf("consumed %d bytes, want %d", n, MessageHeaderSize+len(payload))
		}
		if envelope.Command != command || !bytes.Equal(envelope.Payload, payload) {
			t.Fatalf("got %s, want %s with %d byte payload", envelope, command, len(payload))
		}
	})
}

// TestEnvelopeChecksumSensitivity flips one payload bit and expects the
// frame to be rejected.
func TestEnvelopeChecksumSensitivity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 1, 512).Draw(t, "payload")
		index := rapid.IntRange(0, len(payload)-1).Draw(t, "index")
		bit := rapid.IntRange(0, 7).Draw(t, "bit")

		frame, err := EncodeEnvelope(Regtest, CmdPing, payload)
		if err != nil {
			t.Fatalf("EncodeEnvelope: %v", err)
		}
		frame[MessageHeaderSize+index] ^= 1 << bit

		_, _, err = DecodeEnvelope(frame, Regtest)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("got error %v, want %v", err, ErrChecksumMismatch)
		}
	})
}

// TestEnvelopeBtcdInterop makes sure frames written here are accepted by
// btcd's wire package and the other way around.
func TestEnvelopeBtcdInterop(t *testing.T) {
	var btcdVerAck bytes.Buffer
	err := wire.WriteMessage(&btcdVerAck, wire.NewMsgVerAck(), wire.ProtocolVersion, wire.TestNet)
	if err != nil {
		t.Fatalf("wire.WriteMessage: %v", err)
	}
	if !bytes.Equal(btcdVerAck.Bytes(), regtestVerAck) {
		t.Fatalf("btcd verack\n got: %s want: %s",
			spew.Sdump(btcdVerAck.Bytes()), spew.Sdump(regtestVerAck))
	}

	me := wire.NewNetAddressIPPort(net.ParseIP("127.0.0.1"), 18444, 0)
	you := wire.NewNetAddressIPPort(net.ParseIP("10.0.0.2"), 18444, wire.SFNodeNetwork)
	var btcdVersion bytes.Buffer
	err = wire.WriteMessage(&btcdVersion, wire.NewMsgVersion(me, you, 0x1122334455667788, 7),
		wire.ProtocolVersion, wire.TestNet)
	if err != nil {
		t.Fatalf("wire.WriteMessage: %v", err)
	}

	envelope, n, err := DecodeEnvelope(btcdVersion.Bytes(), Regtest)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if n != btcdVersion.Len() || envelope.Kind() != KindVersion {
		t.Fatalf("DecodeEnvelope: got %s, consumed %d of %d", envelope, n, btcdVersion.Len())
	}
}

func envelopesEqual(a, b *Envelope) bool {
	return a.Net == b.Net && a.Command == b.Command && a.Length == b.Length &&
		a.Checksum == b.Checksum && bytes.Equal(a.Payload, b.Payload)
}
