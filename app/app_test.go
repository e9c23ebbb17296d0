package app

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/kaspanet/btchandshake/app/appmessage"
	"github.com/kaspanet/btchandshake/app/protocol/flows/handshake"
	"github.com/kaspanet/btchandshake/app/protocol/protocolerrors"
	"github.com/kaspanet/btchandshake/infrastructure/config"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func loadTestConfig(t *testing.T, port string, extraArgs ...string) *config.Config {
	args := []string{"-C", filepath.Join(t.TempDir(), "missing.conf"), "--nologfiles",
		"--regtest", "-s", "127.0.0.1", "-p", port, "-t", "10s"}
	cfg, err := config.LoadConfig(append(args, extraArgs...))
	require.NoError(t, err)
	return cfg
}

func listen(t *testing.T) (net.Listener, string) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })
	_, port, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	return listener, port
}

// servePeer accepts one connection and answers the handshake as a btcd node
// would. The version we sent is passed to versions.
func servePeer(listener net.Listener, versions chan<- *wire.MsgVersion) <-chan error {
	peerErr := make(chan error, 1)
	go func() {
		peerErr <- func() error {
			conn, err := listener.Accept()
			if err != nil {
				return err
			}
			defer conn.Close()

			msg, _, err := wire.ReadMessage(conn, wire.ProtocolVersion, wire.TestNet)
			if err != nil {
				return err
			}
			version, ok := msg.(*wire.MsgVersion)
			if !ok {
				return errors.Errorf("peer got %s, want version", msg.Command())
			}
			versions <- version

			me := wire.NewNetAddressIPPort(net.ParseIP("127.0.0.1"), 18444, wire.SFNodeNetwork)
			you := wire.NewNetAddressIPPort(net.ParseIP("127.0.0.1"), 50000, 0)
			err = wire.WriteMessage(conn, wire.NewMsgVersion(me, you, 77, 1000),
				wire.ProtocolVersion, wire.TestNet)
			if err != nil {
				return err
			}
			err = wire.WriteMessage(conn, wire.NewMsgSendHeaders(), wire.ProtocolVersion, wire.TestNet)
			if err != nil {
				return err
			}

			msg, _, err = wire.ReadMessage(conn, wire.ProtocolVersion, wire.TestNet)
			if err != nil {
				return err
			}
			if _, ok := msg.(*wire.MsgVerAck); !ok {
				return errors.Errorf("peer got %s, want verack", msg.Command())
			}
			return wire.WriteMessage(conn, wire.NewMsgVerAck(), wire.ProtocolVersion, wire.TestNet)
		}()
	}()
	return peerErr
}

func TestRunHandshake(t *testing.T) {
	listener, port := listen(t)
	versions := make(chan *wire.MsgVersion, 1)
	peerErr := servePeer(listener, versions)

	cfg := loadTestConfig(t, port, "--startheight=42", "--blocksonly", "--useragentcomments", "test")
	outcome, err := runHandshake(cfg, make(chan struct{}))
	require.NoError(t, err)
	require.NoError(t, <-peerErr)

	require.Equal(t, appmessage.Regtest, outcome.Net)
	require.True(t, outcome.ReceivedVerAck)
	require.True(t, outcome.ReceivedPeerVersion)
	require.Equal(t, uint64(77), outcome.PeerVersion.Nonce)
	require.Equal(t, int32(1000), outcome.PeerVersion.LastBlock)
	require.Equal(t, []appmessage.MessageCommand{"sendheaders"}, outcome.IgnoredMessages)
	logOutcome(outcome)

	sent := <-versions
	require.Equal(t, int32(42), sent.LastBlock)
	require.True(t, sent.DisableRelayTx)
	require.Contains(t, sent.UserAgent, "(test)")
	require.Equal(t, outcome.LocalNonce, sent.Nonce)
	require.True(t, sent.AddrYou.IP.Equal(net.ParseIP("127.0.0.1")))
}

func TestRunHandshakeInterrupted(t *testing.T) {
	listener, port := listen(t)
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()

	interrupt := make(chan struct{})
	close(interrupt)

	cfg := loadTestConfig(t, port)
	_, err := runHandshake(cfg, interrupt)
	require.Error(t, err)
	require.ErrorIs(t, err, handshake.ErrConnectionClosed)
	reportFailure(cfg, err, true)

	conn, ok := <-accepted
	if ok {
		conn.Close()
	}
}

func TestRunHandshakeTimeout(t *testing.T) {
	listener, port := listen(t)
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()

	// The peer accepts and stays silent.
	cfg := loadTestConfig(t, port)
	cfg.Timeout = 200 * time.Millisecond
	_, err := runHandshake(cfg, make(chan struct{}))
	require.ErrorIs(t, err, handshake.ErrTimeout)

	conn, ok := <-accepted
	if ok {
		conn.Close()
	}
}

func TestRunHandshakeProtocolViolation(t *testing.T) {
	listener, port := listen(t)
	peerErr := make(chan error, 1)
	go func() {
		peerErr <- func() error {
			conn, err := listener.Accept()
			if err != nil {
				return err
			}
			defer conn.Close()

			_, _, err = wire.ReadMessage(conn, wire.ProtocolVersion, wire.TestNet)
			if err != nil {
				return err
			}
			// A verack framed for mainnet on a regtest connection.
			return wire.WriteMessage(conn, wire.NewMsgVerAck(), wire.ProtocolVersion, wire.MainNet)
		}()
	}()

	cfg := loadTestConfig(t, port)
	_, err := runHandshake(cfg, make(chan struct{}))
	require.NoError(t, <-peerErr)
	require.ErrorIs(t, err, handshake.ErrProtocol)
	require.ErrorIs(t, err, appmessage.ErrInvalidMagic)
	require.True(t, protocolerrors.IsProtocolError(err))
	reportFailure(cfg, err, false)
}

func TestRunHandshakeDialError(t *testing.T) {
	listener, port := listen(t)
	require.NoError(t, listener.Close())

	cfg := loadTestConfig(t, port)
	_, err := runHandshake(cfg, make(chan struct{}))
	require.Error(t, err)
	var handshakeErr *handshake.HandshakeError
	require.False(t, errors.As(err, &handshakeErr), "a dial error is not a handshake error")
}

func TestLocalVersionParams(t *testing.T) {
	cfg := loadTestConfig(t, "18444", "--startheight=7", "--useragentcomments", "a")

	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	params := localVersionParams(cfg, local)
	require.Nil(t, params.Receiver, "a pipe has no TCP address")
	require.Equal(t, int32(7), params.StartHeight)
	require.Equal(t, []string{"a"}, params.UserAgentComments)
	require.True(t, params.Relay)
	require.Equal(t, appmessage.ProtocolVersion, params.ProtocolVersion)
}
