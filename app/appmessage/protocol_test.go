// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package appmessage

import (
	"net"
	"testing"
)

// TestServiceFlagStringer tests the stringized output for service flag types.
func TestServiceFlagStringer(t *testing.T) {
	tests := []struct {
		in   ServiceFlag
		want string
	}{
		{0, "0x0"},
		{SFNodeNetwork, "SFNodeNetwork"},
		{SFNodeGetUTXO, "SFNodeGetUTXO"},
		{SFNodeBloom, "SFNodeBloom"},
		{SFNodeWitness, "SFNodeWitness"},
		{SFNodeXthin, "SFNodeXthin"},
		{SFNodeBit5, "SFNodeBit5"},
		{SFNodeCF, "SFNodeCF"},
		{SFNodeNetworkLimited, "SFNodeNetworkLimited"},
		{0xffffffff, "SFNodeNetwork|SFNodeGetUTXO|SFNodeBloom|SFNodeWitness|SFNodeXthin|SFNodeBit5|SFNodeCF|SFNodeNetworkLimited|0xfffffb80"},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		result := test.in.String()
		if result != test.want {
			t.Errorf("String #%d\n got: %s want: %s", i, result,
				test.want)
			continue
		}
	}
}

// TestBitcoinNetStringer tests the stringized output for bitcoin net types.
func TestBitcoinNetStringer(t *testing.T) {
	tests := []struct {
		in   BitcoinNet
		want string
	}{
		{Mainnet, "Mainnet"},
		{Testnet3, "Testnet3"},
		{Testnet4, "Testnet4"},
		{Signet, "Signet"},
		{Regtest, "Regtest"},
		{0xffffffff, "Unknown BitcoinNet (4294967295)"},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		result := test.in.String()
		if result != test.want {
			t.Errorf("String #%d\n got: %s want: %s", i, result,
				test.want)
			continue
		}
	}
}

func TestNetAddressString(t *testing.T) {
	tests := []struct {
		in   NetAddress
		want string
	}{
		{NetAddress{IP: net.ParseIP("127.0.0.1"), Port: 18444}, "127.0.0.1:18444"},
		{NetAddress{IP: net.ParseIP("::1"), Port: 8333}, "[::1]:8333"},
		{NetAddress{}, "[::]:0"},
	}

	for _, test := range tests {
		if got := test.in.String(); got != test.want {
			t.Errorf("String: got %s, want %s", got, test.want)
		}
	}
}
