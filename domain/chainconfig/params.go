// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainconfig

import (
	"github.com/kaspanet/btchandshake/app/appmessage"
	"github.com/pkg/errors"
)

// Params defines a bitcoin network by the values a handshake needs: the
// magic that starts every message and the port nodes listen on by default.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net appmessage.BitcoinNet

	// DefaultPort defines the default peer-to-peer port for the network.
	DefaultPort string
}

// MainnetParams defines the network parameters for the main bitcoin network.
var MainnetParams = Params{
	Name:        "mainnet",
	Net:         appmessage.Mainnet,
	DefaultPort: "8333",
}

// Testnet3Params defines the network parameters for the test bitcoin network
// (version 3).
var Testnet3Params = Params{
	Name:        "testnet3",
	Net:         appmessage.Testnet3,
	DefaultPort: "18333",
}

// Testnet4Params defines the network parameters for the test bitcoin network
// (version 4).
var Testnet4Params = Params{
	Name:        "testnet4",
	Net:         appmessage.Testnet4,
	DefaultPort: "48333",
}

// SignetParams defines the network parameters for the default public signet.
var SignetParams = Params{
	Name:        "signet",
	Net:         appmessage.Signet,
	DefaultPort: "38333",
}

// RegtestParams defines the network parameters for the regression test
// network. Not to be confused with the test networks, this one is meant for
// local nodes started with -regtest.
var RegtestParams = Params{
	Name:        "regtest",
	Net:         appmessage.Regtest,
	DefaultPort: "18444",
}

var (
	// ErrDuplicateNet describes an error where the parameters for a bitcoin
	// network could not be set due to the network already being a standard
	// network or previously-registered into this package.
	ErrDuplicateNet = errors.New("duplicate bitcoin network")

	// ErrUnknownNet describes an error where the parameters for a bitcoin
	// network were looked up by a magic no registered network uses.
	ErrUnknownNet = errors.New("unknown bitcoin network")
)

var registeredNets = make(map[appmessage.BitcoinNet]*Params)

// register records the network parameters for a bitcoin network, keyed by
// its magic. It fails with ErrDuplicateNet when the magic is taken.
func register(params *Params) error {
	if _, ok := registeredNets[params.Net]; ok {
		return errors.Wrapf(ErrDuplicateNet, "network %s", params.Net)
	}
	registeredNets[params.Net] = params
	return nil
}

// mustRegister performs the same function as register except it panics if there
// is an error. This should only be called from package init functions.
func mustRegister(params *Params) {
	if err := register(params); err != nil {
		panic("failed to register network: " + err.Error())
	}
}

// ParamsForNet returns the registered parameters of the network identified
// by net.
func ParamsForNet(net appmessage.BitcoinNet) (*Params, error) {
	params, ok := registeredNets[net]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownNet, "magic %#08x", uint32(net))
	}
	return params, nil
}

func init() {
	// Register all default networks when the package is initialized.
	mustRegister(&MainnetParams)
	mustRegister(&Testnet3Params)
	mustRegister(&Testnet4Params)
	mustRegister(&SignetParams)
	mustRegister(&RegtestParams)
}
