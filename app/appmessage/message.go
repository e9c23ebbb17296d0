// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package appmessage

import (
	"fmt"
)

const (
	// MessageHeaderSize is the number of bytes in a bitcoin message header.
	// Bitcoin network (magic) 4 bytes + command 12 bytes + payload length 4 bytes +
	// checksum 4 bytes.
	MessageHeaderSize = 24

	// CommandSize is the fixed size of all commands in the common bitcoin message
	// header. Shorter commands must be zero padded.
	CommandSize = 12

	// MaxMessagePayload is the maximum bytes a message can be regardless of other
	// individual limits imposed by messages themselves.
	MaxMessagePayload = 1024 * 1024 * 32 // 32MB
)

// MessageCommand is the ASCII name in the header of a message that represents
// its type.
type MessageCommand string

func (cmd MessageCommand) String() string {
	return string(cmd)
}

// Commands used in bitcoin message headers which describe the type of message.
const (
	CmdVersion MessageCommand = "version"
	CmdVerAck  MessageCommand = "verack"
	CmdPing    MessageCommand = "ping"
)

// MessageKind classifies an envelope by the commands the handshake cares
// about. Every other command is KindOther and keeps its raw name on the
// envelope.
type MessageKind int

const (
	// KindOther is any command other than version and verack.
	KindOther MessageKind = iota

	// KindVersion is a version message.
	KindVersion

	// KindVerAck is a verack message.
	KindVerAck
)

var kindStrings = map[MessageKind]string{
	KindOther:   "other",
	KindVersion: "version",
	KindVerAck:  "verack",
}

func (k MessageKind) String() string {
	if s, ok := kindStrings[k]; ok {
		return s
	}
	return fmt.Sprintf("Unknown MessageKind (%d)", int(k))
}

// KindForCommand maps a command to the MessageKind it represents.
func KindForCommand(command MessageCommand) MessageKind {
	switch command {
	case CmdVersion:
		return KindVersion
	case CmdVerAck:
		return KindVerAck
	default:
		return KindOther
	}
}

// Message is an interface that describes a bitcoin message. A type that
// implements Message has complete control over the representation of its
// payload.
type Message interface {
	Command() MessageCommand
	Encode() ([]byte, error)
}
