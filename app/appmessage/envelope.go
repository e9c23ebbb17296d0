// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package appmessage

import (
	"bytes"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

// Envelope is a single framed message: the 24-byte header fields plus the
// payload they describe.
type Envelope struct {
	Net      BitcoinNet
	Command  MessageCommand
	Length   uint32
	Checksum [4]byte
	Payload  []byte
}

// Kind returns the MessageKind of the envelope's command.
func (e *Envelope) Kind() MessageKind {
	return KindForCommand(e.Command)
}

func (e *Envelope) String() string {
	return fmt.Sprintf("%s envelope on %s (%d bytes)", e.Command, e.Net, e.Length)
}

// PayloadChecksum returns the first four bytes of the double-SHA256 of
// payload.
func PayloadChecksum(payload []byte) [4]byte {
	var checksum [4]byte
	copy(checksum[:], chainhash.DoubleHashB(payload)[0:4])
	return checksum
}

// EncodeEnvelope frames payload as a message with the given command for the
// given network.
func EncodeEnvelope(net BitcoinNet, command MessageCommand, payload []byte) ([]byte, error) {
	if err := validateCommand("EncodeEnvelope", command); err != nil {
		return nil, err
	}

	lenp := len(payload)
	if lenp > MaxMessagePayload {
		str := fmt.Sprintf("message payload is too large - encoded "+
			"%d bytes, but maximum message payload is %d bytes",
			lenp, MaxMessagePayload)
		return nil, messageError("EncodeEnvelope", ErrPayloadTooLarge, str)
	}

	var cmd [CommandSize]byte
	copy(cmd[:], command)

	buf := bytes.NewBuffer(make([]byte, 0, MessageHeaderSize+lenp))
	err := WriteElement(buf, net)
	if err != nil {
		return nil, err
	}
	buf.Write(cmd[:])
	err = writeElements(buf, uint32(lenp), PayloadChecksum(payload))
	if err != nil {
		return nil, err
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

// DecodeEnvelope parses one message from the front of buf. It returns the
// envelope and the number of bytes it occupied.
//
// ErrNeedMoreData is returned while buf holds less than a full frame. The
// header is validated as soon as it is complete, so a frame for another
// network or with a garbled command fails without waiting for its payload.
// The returned payload does not alias buf.
func DecodeEnvelope(buf []byte, net BitcoinNet) (*Envelope, int, error) {
	if len(buf) < MessageHeaderSize {
		return nil, 0, ErrNeedMoreData
	}

	var hdrNet BitcoinNet
	var command [CommandSize]byte
	var length uint32
	var checksum [4]byte
	hr := bytes.NewReader(buf[:MessageHeaderSize])
	err := ReadElement(hr, &hdrNet)
	if err != nil {
		return nil, 0, err
	}
	_, err = io.ReadFull(hr, command[:])
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	err = readElements(hr, &length, &checksum)
	if err != nil {
		return nil, 0, err
	}

	if hdrNet != net {
		str := fmt.Sprintf("message from other network [%s]", hdrNet)
		return nil, 0, messageError("DecodeEnvelope", ErrInvalidMagic, str)
	}

	cmd, err := parseCommand(command)
	if err != nil {
		return nil, 0, err
	}

	if length > MaxMessagePayload {
		str := fmt.Sprintf("message payload is too large - header "+
			"indicates %d bytes, but max message payload is %d "+
			"bytes.", length, MaxMessagePayload)
		return nil, 0, messageError("DecodeEnvelope", ErrPayloadTooLarge, str)
	}

	frameLen := MessageHeaderSize + int(length)
	if len(buf) < frameLen {
		return nil, 0, ErrNeedMoreData
	}

	payload := make([]byte, length)
	copy(payload, buf[MessageHeaderSize:frameLen])

	if PayloadChecksum(payload) != checksum {
		str := fmt.Sprintf("payload checksum failed - header "+
			"indicates %x, but actual checksum is %x.",
			checksum, PayloadChecksum(payload))
		return nil, 0, messageError("DecodeEnvelope", ErrChecksumMismatch, str)
	}

	return &Envelope{
		Net:      hdrNet,
		Command:  cmd,
		Length:   length,
		Checksum: checksum,
		Payload:  payload,
	}, frameLen, nil
}

// EncodeMessage encodes msg and frames it for the given network.
func EncodeMessage(net BitcoinNet, msg Message) ([]byte, error) {
	payload, err := msg.Encode()
	if err != nil {
		return nil, err
	}
	return EncodeEnvelope(net, msg.Command(), payload)
}

// validateCommand makes sure command fits in the header and is made only of
// printable ASCII.
func validateCommand(f string, command MessageCommand) error {
	if len(command) == 0 || len(command) > CommandSize {
		str := fmt.Sprintf("command [%q] must be 1 to %d bytes long",
			command, CommandSize)
		return messageError(f, ErrInvalidCommand, str)
	}
	for i := 0; i < len(command); i++ {
		if !isPrintableASCII(command[i]) {
			str := fmt.Sprintf("command [%q] has non-printable byte %#x",
				command, command[i])
			return messageError(f, ErrInvalidCommand, str)
		}
	}
	return nil
}

// parseCommand extracts the command from its NUL padded header field. The
// name must be printable ASCII and everything after it must be NUL.
func parseCommand(raw [CommandSize]byte) (MessageCommand, error) {
	end := bytes.IndexByte(raw[:], 0)
	if end == -1 {
		end = CommandSize
	}
	for _, b := range raw[end:] {
		if b != 0 {
			str := fmt.Sprintf("command [%x] has data after its NUL padding", raw)
			return "", messageError("DecodeEnvelope", ErrInvalidCommand, str)
		}
	}
	command := MessageCommand(raw[:end])
	if err := validateCommand("DecodeEnvelope", command); err != nil {
		return "", err
	}
	return command, nil
}

func isPrintableASCII(b byte) bool {
	return b >= 0x20 && b <= 0x7e
}
