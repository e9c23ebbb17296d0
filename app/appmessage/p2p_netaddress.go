// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package appmessage

import (
	"io"
	"net"
	"strconv"

	"github.com/kaspanet/btchandshake/util/binaryserializer"
)

// netAddressSize is the number of bytes a NetAddress takes inside a version
// message: services 8 bytes + ip 16 bytes + port 2 bytes.
const netAddressSize = 26

// NetAddress defines information about a peer on the network including the
// services it supports, its IP address, and port. Version messages carry it
// without the timestamp other messages prefix it with.
type NetAddress struct {
	// Bitfield which identifies the services supported by the peer.
	Services ServiceFlag

	// IP address of the peer.
	IP net.IP

	// Port the peer is using. This is encoded in big endian on the wire
	// which differs from most everything else.
	Port uint16
}

// TCPAddress converts the NetAddress to *net.TCPAddr
func (na *NetAddress) TCPAddress() *net.TCPAddr {
	return &net.TCPAddr{
		IP:   na.IP,
		Port: int(na.Port),
	}
}

// NewNetAddressIPPort returns a new NetAddress using the provided IP, port, and
// supported services.
func NewNetAddressIPPort(ip net.IP, port uint16, services ServiceFlag) *NetAddress {
	return &NetAddress{
		Services: services,
		IP:       ip,
		Port:     port,
	}
}

// NewNetAddress returns a new NetAddress using the provided TCP address and
// supported services.
func NewNetAddress(addr *net.TCPAddr, services ServiceFlag) *NetAddress {
	return NewNetAddressIPPort(addr.IP, uint16(addr.Port), services)
}

func (na NetAddress) String() string {
	if na.IP == nil {
		return net.JoinHostPort("::", strconv.Itoa(int(na.Port)))
	}
	return na.TCPAddress().String()
}

// readNetAddress reads an encoded NetAddress from r.
func readNetAddress(r io.Reader, na *NetAddress) error {
	var ip [16]byte

	err := readElements(r, &na.Services, &ip)
	if err != nil {
		return err
	}
	// Sigh. Bitcoin protocol mixes little and big endian.
	port, err := binaryserializer.Uint16(r, bigEndian)
	if err != nil {
		return err
	}

	na.IP = net.IP(ip[:])
	na.Port = port
	return nil
}

// writeNetAddress serializes a NetAddress to w. IPv4 addresses are written in
// their IPv4-mapped IPv6 form and a nil IP is written as all zeros.
func writeNetAddress(w io.Writer, na *NetAddress) error {
	var ip [16]byte
	if na.IP != nil {
		copy(ip[:], na.IP.To16())
	}
	err := writeElements(w, na.Services, ip)
	if err != nil {
		return err
	}

	// Sigh. Bitcoin protocol mixes little and big endian.
	return binaryserializer.PutUint16(w, bigEndian, na.Port)
}
