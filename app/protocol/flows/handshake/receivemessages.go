package handshake

import (
	"io"

	"github.com/kaspanet/btchandshake/app/appmessage"
	"github.com/kaspanet/btchandshake/app/protocol/protocolerrors"
	"github.com/pkg/errors"
)

const readChunkSize = 4096

// maxConsecutiveEmptyReads bounds how many reads in a row may return no
// data and no error before the stream is considered broken.
const maxConsecutiveEmptyReads = 100

// receiveMessages reads frames until the peer's verack. Frames may arrive
// split across reads or several to a read.
func (s *Session) receiveMessages(stream io.ReadWriter) error {
	s.state = StateAwaitingPeerMessages

	buf := make([]byte, 0, readChunkSize)
	chunk := make([]byte, readChunkSize)
	emptyReads := 0
	for {
		done, err := s.drain(stream, &buf)
		if err != nil || done {
			return err
		}

		n, readErr := stream.Read(chunk)
		if n == 0 && readErr == nil {
			emptyReads++
			if emptyReads >= maxConsecutiveEmptyReads {
				return s.fail(FailureIO, errors.Wrapf(io.ErrNoProgress,
					"%d empty reads in a row from %s", emptyReads, s.peerAddress))
			}
			continue
		}
		emptyReads = 0
		buf = append(buf, chunk[:n]...)
		if readErr != nil {
			// Bytes returned along with the error still count.
			done, err := s.drain(stream, &buf)
			if err != nil || done {
				return err
			}
			return s.fail(classifyIOError(readErr),
				errors.Wrapf(readErr, "reading from %s with %d bytes buffered", s.peerAddress, len(buf)))
		}
	}
}

// drain handles every complete frame at the front of buf and leaves any
// partial frame behind. It reports whether the verack was handled.
func (s *Session) drain(stream io.Writer, buf *[]byte) (bool, error) {
	for {
		envelope, n, err := appmessage.DecodeEnvelope(*buf, s.net)
		if errors.Is(err, appmessage.ErrNeedMoreData) {
			return false, nil
		}
		if err != nil {
			return false, s.fail(FailureProtocol, protocolerrors.Wrapf(err, "bad frame from %s", s.peerAddress))
		}
		*buf = append((*buf)[:0], (*buf)[n:]...)

		done, err := s.handleEnvelope(stream, envelope)
		if err != nil || done {
			return done, err
		}
	}
}

func (s *Session) handleEnvelope(stream io.Writer, envelope *appmessage.Envelope) (bool, error) {
	switch envelope.Kind() {
	case appmessage.KindVersion:
		return false, s.handleVersion(stream, envelope)

	case appmessage.KindVerAck:
		log.Debugf("Got verack from %s", s.peerAddress)
		s.receivedVerAck = true
		s.state = StateVerAckReceived
		return true, nil

	default:
		log.Debugf("Ignoring %s message (%d bytes) from %s", envelope.Command, envelope.Length, s.peerAddress)
		s.ignoredMessages = append(s.ignoredMessages, envelope.Command)
		return false, nil
	}
}

// handleVersion records the peer's version and acknowledges it.
func (s *Session) handleVersion(stream io.Writer, envelope *appmessage.Envelope) error {
	if s.receivedPeerVersion {
		log.Warnf("Ignoring duplicate version message from %s", s.peerAddress)
		return nil
	}

	msgVersion, err := appmessage.DecodeMsgVersion(envelope.Payload)
	if err != nil {
		return s.fail(FailureProtocol, protocolerrors.Wrapf(err, "bad version message from %s", s.peerAddress))
	}

	if msgVersion.Nonce == s.localNonce {
		return s.fail(FailureProtocol, protocolerrors.Errorf("connected to self (nonce %d)", msgVersion.Nonce))
	}

	log.Debugf("Got version from %s: protocol %d, services %s, agent %s, height %d",
		s.peerAddress, msgVersion.ProtocolVersion, msgVersion.Services,
		msgVersion.UserAgent, msgVersion.LastBlock)
	s.receivedPeerVersion = true
	s.peerVersion = msgVersion

	return s.sendVerAck(stream)
}
