package handshake

import (
	"io"

	"github.com/kaspanet/btchandshake/app/appmessage"
	"github.com/kaspanet/btchandshake/util/random"
	"github.com/kaspanet/btchandshake/version"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/pkg/errors"
)

// buildVersion assembles the version message described by params.
func buildVersion(params *LocalVersionParams, nonce uint64) (*appmessage.MsgVersion, error) {
	sender := params.Sender
	if sender == nil {
		sender = &appmessage.NetAddress{}
	}
	receiver := params.Receiver
	if receiver == nil {
		receiver = &appmessage.NetAddress{}
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.NewDefaultClock()
	}

	msg := appmessage.NewMsgVersion(sender, receiver, nonce, params.StartHeight, clk.Now())
	if params.ProtocolVersion != 0 {
		msg.ProtocolVersion = params.ProtocolVersion
	}
	msg.AddService(params.Services)
	msg.Relay = params.Relay

	switch {
	case params.UserAgent != "":
		msg.UserAgent = params.UserAgent
	case len(params.UserAgentComments) > 0:
		msg.UserAgent = "/"
		err := msg.AddUserAgent(version.AppName, version.Version(), params.UserAgentComments...)
		if err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// localNonce returns the nonce to advertise: the fixed one from params, or a
// fresh random one.
func localNonce(params *LocalVersionParams) (uint64, error) {
	if params.Nonce != 0 {
		return params.Nonce, nil
	}
	nonce, err := random.Uint64()
	if err != nil {
		return 0, errors.Wrap(err, "generating version nonce")
	}
	return nonce, nil
}

// sendVersion writes our version message to the stream.
func (s *Session) sendVersion(stream io.Writer, params *LocalVersionParams) error {
	nonce, err := localNonce(params)
	if err != nil {
		return s.fail(FailureIO, err)
	}
	s.localNonce = nonce

	msg, err := buildVersion(params, nonce)
	if err != nil {
		return s.fail(FailureProtocol, errors.Wrap(err, "building version message"))
	}

	err = s.writeMessage(stream, msg)
	if err != nil {
		return err
	}

	log.Debugf("Sent version (protocol %d, nonce %d, agent %s) to %s",
		msg.ProtocolVersion, msg.Nonce, msg.UserAgent, s.peerAddress)
	s.sentVersion = true
	s.state = StateVersionSent
	return nil
}

// sendVerAck acknowledges the peer's version.
func (s *Session) sendVerAck(stream io.Writer) error {
	err := s.writeMessage(stream, appmessage.NewMsgVerAck())
	if err != nil {
		return err
	}
	log.Debugf("Sent verack to %s", s.peerAddress)
	return nil
}

// writeMessage frames msg for the session's network and writes it in full.
func (s *Session) writeMessage(stream io.Writer, msg appmessage.Message) error {
	frame, err := appmessage.EncodeMessage(s.net, msg)
	if err != nil {
		return s.fail(FailureProtocol, errors.Wrapf(err, "encoding %s", msg.Command()))
	}

	_, err = stream.Write(frame)
	if err != nil {
		return s.fail(classifyIOError(err), errors.Wrapf(err, "writing %s to %s", msg.Command(), s.peerAddress))
	}
	return nil
}
