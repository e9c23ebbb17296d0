// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package appmessage

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kaspanet/btchandshake/version"
	"github.com/pkg/errors"
)

// MaxUserAgentLen is the maximum allowed length for the user agent field in a
// version message built by this package.
const MaxUserAgentLen = 256

// minVersionPayload is the length of the fields every version message must
// carry: version 4 + services 8 + timestamp 8 + two addresses 26 each +
// nonce 8.
const minVersionPayload = 4 + 8 + 8 + netAddressSize*2 + 8

// DefaultUserAgent for appmessage in the stack
var DefaultUserAgent = fmt.Sprintf("/%s:%s/", version.AppName, version.Version())

// MsgVersion implements the Message interface and represents a bitcoin version
// message. It is used for a peer to advertise itself as soon as an outbound
// connection is made. The remote peer then uses this information along with
// its own to negotiate. The remote peer must then respond with a version
// message of its own containing the negotiated values followed by a verack
// message (MsgVerAck). This exchange must take place before any further
// communication is allowed to proceed.
type MsgVersion struct {
	// Version of the protocol the node is using.
	ProtocolVersion int32

	// Bitfield which identifies the enabled services.
	Services ServiceFlag

	// Time the message was generated. This is encoded as an int64 on the wire
	// with one second precision.
	Timestamp time.Time

	// Address of the remote peer.
	AddrYou NetAddress

	// Address of the local peer.
	AddrMe NetAddress

	// Unique value associated with message that is used to detect self
	// connections.
	Nonce uint64

	// The user agent that generated messsage. This is a encoded as a varString
	// on the wire. Agents built with AddUserAgent are held to
	// MaxUserAgentLen.
	UserAgent string

	// Last block seen by the generator of the version message.
	LastBlock int32

	// Announce transactions to peer.
	Relay bool
}

// HasService returns whether the specified service is supported by the peer
// that generated the message.
func (msg *MsgVersion) HasService(service ServiceFlag) bool {
	return msg.Services&service == service
}

// AddService adds service as a supported service by the peer generating the
// message.
func (msg *MsgVersion) AddService(service ServiceFlag) {
	msg.Services |= service
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgVersion) Command() MessageCommand {
	return CmdVersion
}

// Encode serializes the version message into its payload bytes. This is
// part of the Message interface implementation.
//
// The user agent is only bounded by the message payload limit here:
// MaxUserAgentLen applies to agents built with AddUserAgent.
func (msg *MsgVersion) Encode() ([]byte, error) {
	if len(msg.UserAgent) > MaxMessagePayload-minVersionPayload {
		str := fmt.Sprintf("user agent too long [len %d, max %d]",
			len(msg.UserAgent), MaxMessagePayload-minVersionPayload)
		return nil, messageError("MsgVersion.Encode", ErrPayloadTooLarge, str)
	}

	var buf bytes.Buffer
	buf.Grow(minVersionPayload + VarIntSerializeSize(uint64(len(msg.UserAgent))) +
		len(msg.UserAgent) + 5)
	err := writeElements(&buf, msg.ProtocolVersion, msg.Services,
		int64Time(msg.Timestamp))
	if err != nil {
		return nil, err
	}

	err = writeNetAddress(&buf, &msg.AddrYou)
	if err != nil {
		return nil, err
	}

	err = writeNetAddress(&buf, &msg.AddrMe)
	if err != nil {
		return nil, err
	}

	err = WriteElement(&buf, msg.Nonce)
	if err != nil {
		return nil, err
	}

	err = WriteVarString(&buf, msg.UserAgent)
	if err != nil {
		return nil, err
	}

	err = WriteElement(&buf, msg.LastBlock)
	if err != nil {
		return nil, err
	}

	// The relay flag only exists since BIP0037.
	if msg.ProtocolVersion >= BIP0037Version {
		err = WriteElement(&buf, msg.Relay)
		if err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// DecodeMsgVersion parses a version message payload.
//
// Only the fields up to and including the nonce are mandatory. The user agent
// and start height are read when present, and the relay flag defaults to true
// when it's absent. Bytes after the relay flag are ignored, since newer
// protocol versions append fields.
func DecodeMsgVersion(payload []byte) (*MsgVersion, error) {
	if len(payload) < minVersionPayload {
		str := fmt.Sprintf("version payload is %d bytes, but at least %d "+
			"are required", len(payload), minVersionPayload)
		return nil, messageError("DecodeMsgVersion", ErrTruncatedPayload, str)
	}

	msg := &MsgVersion{Relay: true}
	r := bytes.NewReader(payload)

	var timestamp int64Time
	err := readElements(r, &msg.ProtocolVersion, &msg.Services, &timestamp)
	if err != nil {
		return nil, versionReadError(err)
	}
	msg.Timestamp = time.Time(timestamp)

	err = readNetAddress(r, &msg.AddrYou)
	if err != nil {
		return nil, versionReadError(err)
	}

	err = readNetAddress(r, &msg.AddrMe)
	if err != nil {
		return nil, versionReadError(err)
	}

	err = ReadElement(r, &msg.Nonce)
	if err != nil {
		return nil, versionReadError(err)
	}

	if r.Len() > 0 {
		msg.UserAgent, err = ReadVarString(r)
		if err != nil {
			return nil, versionReadError(err)
		}

		err = ReadElement(r, &msg.LastBlock)
		if err != nil {
			return nil, versionReadError(err)
		}
	}

	if r.Len() > 0 {
		err = ReadElement(r, &msg.Relay)
		if err != nil {
			return nil, versionReadError(err)
		}
	}

	return msg, nil
}

// versionReadError turns a short read inside a version payload into
// ErrTruncatedPayload. Errors that already describe the payload pass
// through.
func versionReadError(err error) error {
	var msgErr *MessageError
	if errors.As(err, &msgErr) {
		return err
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return messageError("DecodeMsgVersion", ErrTruncatedPayload,
			"version payload ends in the middle of a field")
	}
	return messageError("DecodeMsgVersion", ErrMalformedPayload, err.Error())
}

// NewMsgVersion returns a new bitcoin version message that conforms to the
// Message interface using the passed parameters and defaults for the remaining
// fields.
func NewMsgVersion(me *NetAddress, you *NetAddress, nonce uint64,
	lastBlock int32, timestamp time.Time) *MsgVersion {

	// Limit the timestamp to one second precision since the protocol
	// doesn't support better.
	return &MsgVersion{
		ProtocolVersion: ProtocolVersion,
		Services:        DefaultServices,
		Timestamp:       time.Unix(timestamp.Unix(), 0),
		AddrYou:         *you,
		AddrMe:          *me,
		Nonce:           nonce,
		UserAgent:       DefaultUserAgent,
		LastBlock:       lastBlock,
		Relay:           true,
	}
}

// validateUserAgent checks userAgent length against MaxUserAgentLen
func validateUserAgent(userAgent string) error {
	if len(userAgent) > MaxUserAgentLen {
		str := fmt.Sprintf("user agent too long [len %d, max %d]",
			len(userAgent), MaxUserAgentLen)
		return messageError("MsgVersion", ErrMalformedPayload, str)
	}
	return nil
}

// AddUserAgent adds a user agent to the user agent string for the version
// message. The version string is not defined to any strict format, although
// it is recommended to use the form "major.minor.revision" e.g. "2.6.41".
func (msg *MsgVersion) AddUserAgent(name string, version string,
	comments ...string) error {

	newUserAgent := fmt.Sprintf("%s:%s", name, version)
	if len(comments) != 0 {
		newUserAgent = fmt.Sprintf("%s(%s)", newUserAgent,
			strings.Join(comments, "; "))
	}
	newUserAgent = fmt.Sprintf("%s%s/", msg.UserAgent, newUserAgent)
	err := validateUserAgent(newUserAgent)
	if err != nil {
		return err
	}
	msg.UserAgent = newUserAgent
	return nil
}
