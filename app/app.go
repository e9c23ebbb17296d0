package app

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/kaspanet/btchandshake/app/appmessage"
	"github.com/kaspanet/btchandshake/app/protocol/flows/handshake"
	"github.com/kaspanet/btchandshake/app/protocol/protocolerrors"
	"github.com/kaspanet/btchandshake/domain/chainconfig"
	"github.com/kaspanet/btchandshake/infrastructure/config"
	"github.com/kaspanet/btchandshake/infrastructure/logger"
	"github.com/kaspanet/btchandshake/infrastructure/os/signal"
	"github.com/kaspanet/btchandshake/util/panics"
	"github.com/kaspanet/btchandshake/version"
	"github.com/pkg/errors"
)

// StartApp loads the configuration, performs one handshake with the
// configured peer and reports the outcome. It returns an error when the
// configuration is invalid or the handshake fails.
func StartApp() error {
	defer panics.HandlePanic(log, nil)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	// Show version and exit if the version flag was specified.
	if cfg.ShowVersion {
		fmt.Println(version.AppName, "version", version.Version())
		return nil
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", logger.SupportedSubsystems())
		return nil
	}

	err = initLog(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer logger.BackendLog.Close()
	cfg.LogDeferredWarnings()

	log.Infof("Version %s", version.Version())

	interrupt := signal.InterruptListener()
	outcome, err := runHandshake(cfg, interrupt)
	if err != nil {
		reportFailure(cfg, err, signal.InterruptRequested(interrupt))
		return err
	}
	logOutcome(outcome)
	return nil
}

// reportFailure logs why the handshake with the configured peer failed.
func reportFailure(cfg *config.Config, err error, interrupted bool) {
	switch {
	case interrupted:
		log.Warnf("Handshake with %s aborted by an interrupt: %s", cfg.PeerAddress, err)
	case protocolerrors.IsProtocolError(err):
		log.Errorf("Peer %s violated the protocol: %s", cfg.PeerAddress, err)
	default:
		log.Errorf("Handshake with %s failed: %s", cfg.PeerAddress, err)
	}
}

func initLog(cfg *config.Config) error {
	err := logger.ParseAndSetLogLevels(cfg.DebugLevel)
	if err != nil {
		return err
	}
	if cfg.NoLogFiles {
		logger.InitLog("", "")
		return nil
	}
	logger.InitLog(cfg.LogFiles())
	return nil
}

// runHandshake dials the configured peer and performs the handshake over the
// connection. The connection is closed when it returns, or earlier when an
// interrupt is received.
func runHandshake(cfg *config.Config, interrupt <-chan struct{}) (*handshake.Outcome, error) {
	log.Infof("Connecting to %s on %s", cfg.PeerAddress, cfg.NetParams().Name)
	conn, err := cfg.Dial("tcp", cfg.PeerAddress, cfg.Timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "error connecting to %s", cfg.PeerAddress)
	}
	defer conn.Close()

	err = conn.SetDeadline(time.Now().Add(cfg.Timeout))
	if err != nil {
		return nil, errors.Wrapf(err, "error setting the deadline on the connection to %s", cfg.PeerAddress)
	}

	done := make(chan struct{})
	defer close(done)
	spawn(func() {
		select {
		case <-interrupt:
			log.Warnf("Closing the connection to %s", cfg.PeerAddress)
			_ = conn.Close()
		case <-done:
		}
	})

	return handshake.PerformHandshake(conn, cfg.NetParams().Net, localVersionParams(cfg, conn))
}

// localVersionParams builds the version we advertise to the peer on conn.
func localVersionParams(cfg *config.Config, conn net.Conn) *handshake.LocalVersionParams {
	var receiver *appmessage.NetAddress
	// Connections through a proxy don't expose the peer's TCP address, in
	// which case the zero address is advertised.
	if tcpAddr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		receiver = appmessage.NewNetAddress(tcpAddr, appmessage.DefaultServices)
	}

	params := handshake.DefaultLocalVersionParams(receiver)
	params.UserAgentComments = cfg.UserAgentComments
	params.StartHeight = cfg.StartHeight
	params.Relay = !cfg.BlocksOnly
	return params
}

func logOutcome(outcome *handshake.Outcome) {
	netName := outcome.Net.String()
	if params, err := chainconfig.ParamsForNet(outcome.Net); err == nil {
		netName = params.Name
	}
	log.Infof("Handshake with %s on %s completed", outcome.PeerAddress, netName)
	if outcome.ReceivedPeerVersion {
		peerVersion := outcome.PeerVersion
		log.Infof("Peer %s: protocol version %d, user agent %s, services %s, "+
			"start height %d, relay %t", outcome.PeerAddress, peerVersion.ProtocolVersion,
			peerVersion.UserAgent, peerVersion.Services, peerVersion.LastBlock, peerVersion.Relay)
		if !peerVersion.HasService(appmessage.SFNodeNetwork) {
			log.Infof("Peer %s does not serve the full block chain", outcome.PeerAddress)
		}
	} else {
		log.Infof("Peer %s acknowledged our version without sending its own", outcome.PeerAddress)
	}
	if len(outcome.IgnoredMessages) > 0 {
		commands := make([]string, len(outcome.IgnoredMessages))
		for i, command := range outcome.IgnoredMessages {
			commands[i] = string(command)
		}
		log.Debugf("Ignored messages from %s: %s", outcome.PeerAddress, strings.Join(commands, ", "))
	}
}
