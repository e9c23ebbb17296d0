package handshake

import (
	"fmt"
	"net"

	"github.com/kaspanet/btchandshake/app/appmessage"
	"github.com/lightningnetwork/lnd/clock"
)

// State is a step of the handshake state machine.
type State int

// The handshake moves forward through these states, or to StateFailed from
// any of them.
const (
	StateConnected State = iota
	StateVersionSent
	StateAwaitingPeerMessages
	StateVerAckReceived
	StateFailed
)

var stateStrings = map[State]string{
	StateConnected:            "connected",
	StateVersionSent:          "version sent",
	StateAwaitingPeerMessages: "awaiting peer messages",
	StateVerAckReceived:       "verack received",
	StateFailed:               "failed",
}

func (s State) String() string {
	if str, ok := stateStrings[s]; ok {
		return str
	}
	return fmt.Sprintf("Unknown State (%d)", int(s))
}

// LocalVersionParams describes the version message we advertise.
type LocalVersionParams struct {
	// ProtocolVersion defaults to appmessage.ProtocolVersion when zero.
	ProtocolVersion int32

	Services appmessage.ServiceFlag

	// Receiver is the address of the peer as we see it.
	Receiver *appmessage.NetAddress

	// Sender is our own address. Nil sends the all-zero address.
	Sender *appmessage.NetAddress

	// UserAgent replaces the default user agent when set.
	UserAgent string

	// UserAgentComments are appended to the default user agent.
	UserAgentComments []string

	StartHeight int32
	Relay       bool

	// Clock provides the version timestamp. Nil means the wall clock.
	Clock clock.Clock

	// Nonce is used instead of a random nonce when non-zero.
	Nonce uint64
}

// DefaultLocalVersionParams returns the parameters of a version message for
// a peer at receiver that relays transactions and claims no services.
func DefaultLocalVersionParams(receiver *appmessage.NetAddress) *LocalVersionParams {
	return &LocalVersionParams{
		ProtocolVersion: appmessage.ProtocolVersion,
		Services:        appmessage.DefaultServices,
		Receiver:        receiver,
		Relay:           true,
		Clock:           clock.NewDefaultClock(),
	}
}

// Outcome summarizes a completed handshake.
type Outcome struct {
	Net         appmessage.BitcoinNet
	PeerAddress string

	// ReceivedPeerVersion is false when the peer acknowledged our version
	// without sending its own first.
	ReceivedPeerVersion bool
	ReceivedVerAck      bool

	// PeerVersion is nil unless ReceivedPeerVersion is set.
	PeerVersion *appmessage.MsgVersion

	LocalNonce uint64

	// IgnoredMessages lists, in arrival order, the commands skipped while
	// waiting for the verack.
	IgnoredMessages []appmessage.MessageCommand
}

// Session holds the state of a single handshake. It lives only for the
// duration of one PerformHandshake call.
type Session struct {
	net                 appmessage.BitcoinNet
	peerAddress         string
	state               State
	sentVersion         bool
	receivedVerAck      bool
	receivedPeerVersion bool
	localNonce          uint64
	peerVersion         *appmessage.MsgVersion
	ignoredMessages     []appmessage.MessageCommand
}

func newSession(stream interface{}, net appmessage.BitcoinNet, params *LocalVersionParams) *Session {
	return &Session{
		net:         net,
		peerAddress: peerAddress(stream, params),
		state:       StateConnected,
	}
}

// State returns the current state of the session.
func (s *Session) State() State {
	return s.state
}

// fail moves the session to StateFailed and returns the error describing
// the failure in the state it happened in.
func (s *Session) fail(kind FailureKind, cause error) *HandshakeError {
	err := &HandshakeError{Kind: kind, State: s.state, Cause: cause}
	s.state = StateFailed
	return err
}

func (s *Session) outcome() *Outcome {
	return &Outcome{
		Net:                 s.net,
		PeerAddress:         s.peerAddress,
		ReceivedPeerVersion: s.receivedPeerVersion,
		ReceivedVerAck:      s.receivedVerAck,
		PeerVersion:         s.peerVersion,
		LocalNonce:          s.localNonce,
		IgnoredMessages:     s.ignoredMessages,
	}
}

// peerAddress names the peer by the stream's remote address when it has
// one, and by the advertised receiver address otherwise.
func peerAddress(stream interface{}, params *LocalVersionParams) string {
	if conn, ok := stream.(interface{ RemoteAddr() net.Addr }); ok && conn.RemoteAddr() != nil {
		return conn.RemoteAddr().String()
	}
	if params.Receiver != nil {
		return params.Receiver.String()
	}
	return "unknown peer"
}
