package handshake

import (
	"io"

	"github.com/kaspanet/btchandshake/app/appmessage"
	"github.com/kaspanet/btchandshake/infrastructure/logger"
)

// PerformHandshake sends our version message over stream and reads the
// peer's messages until it acknowledges it with a verack. The peer's own
// version, if it arrives first, is answered with a verack of ours.
//
// PerformHandshake doesn't time out by itself: callers bound it by setting a
// deadline on the underlying connection. On failure the error is a
// *HandshakeError.
func PerformHandshake(stream io.ReadWriter, net appmessage.BitcoinNet,
	params *LocalVersionParams) (*Outcome, error) {

	onEnd := logger.LogAndMeasureExecutionTime(log, "PerformHandshake")
	defer onEnd()

	if params == nil {
		params = DefaultLocalVersionParams(nil)
	}
	session := newSession(stream, net, params)
	log.Debugf("Starting handshake with %s on %s", session.peerAddress, net)

	err := session.sendVersion(stream, params)
	if err != nil {
		return nil, err
	}

	err = session.receiveMessages(stream)
	if err != nil {
		return nil, err
	}

	return session.outcome(), nil
}
