package config

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/kaspanet/btchandshake/domain/chainconfig"
	"github.com/pkg/errors"
)

// NetworkFlags holds the network configuration, that is which network is selected.
type NetworkFlags struct {
	Mainnet  bool `long:"mainnet" description:"Use the main network"`
	Testnet  bool `long:"testnet" description:"Use the test network (version 3)"`
	Testnet4 bool `long:"testnet4" description:"Use the test network (version 4)"`
	Signet   bool `long:"signet" description:"Use the default signet network"`
	Regtest  bool `long:"regtest" description:"Use the regression test network (default)"`

	ActiveNetParams *chainconfig.Params
}

// ResolveNetwork parses the network command line argument and sets NetParams accordingly.
// It returns error if more than one network was selected, nil otherwise.
func (networkFlags *NetworkFlags) ResolveNetwork(parser *flags.Parser) error {
	// Default net is regtest: a handshake tool is mostly pointed at a
	// local node.
	networkFlags.ActiveNetParams = &chainconfig.RegtestParams
	// Multiple networks can't be selected simultaneously.
	numNets := 0
	// Count number of network flags passed; assign active network params
	// while we're at it
	if networkFlags.Mainnet {
		numNets++
		networkFlags.ActiveNetParams = &chainconfig.MainnetParams
	}
	if networkFlags.Testnet {
		numNets++
		networkFlags.ActiveNetParams = &chainconfig.Testnet3Params
	}
	if networkFlags.Testnet4 {
		numNets++
		networkFlags.ActiveNetParams = &chainconfig.Testnet4Params
	}
	if networkFlags.Signet {
		numNets++
		networkFlags.ActiveNetParams = &chainconfig.SignetParams
	}
	if networkFlags.Regtest {
		numNets++
		networkFlags.ActiveNetParams = &chainconfig.RegtestParams
	}
	if numNets > 1 {
		message := "Multiple networks parameters (mainnet, testnet, testnet4, signet, regtest) cannot be used " +
			"together. Please choose only one network"
		err := errors.Errorf(message)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return err
	}

	return nil
}

// NetParams returns the ActiveNetParams
func (networkFlags *NetworkFlags) NetParams() *chainconfig.Params {
	return networkFlags.ActiveNetParams
}
