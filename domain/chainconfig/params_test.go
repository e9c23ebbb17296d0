package chainconfig

import (
	"testing"

	"github.com/kaspanet/btchandshake/app/appmessage"
	"github.com/pkg/errors"
)

func TestParamsForNet(t *testing.T) {
	tests := []struct {
		net  appmessage.BitcoinNet
		name string
		port string
	}{
		{appmessage.Mainnet, "mainnet", "8333"},
		{appmessage.Testnet3, "testnet3", "18333"},
		{appmessage.Testnet4, "testnet4", "48333"},
		{appmessage.Signet, "signet", "38333"},
		{appmessage.Regtest, "regtest", "18444"},
	}

	for _, test := range tests {
		params, err := ParamsForNet(test.net)
		if err != nil {
			t.Errorf("ParamsForNet(%s): %v", test.net, err)
			continue
		}
		if params.Name != test.name || params.DefaultPort != test.port {
			t.Errorf("ParamsForNet(%s): got %s:%s, want %s:%s", test.net,
				params.Name, params.DefaultPort, test.name, test.port)
		}
	}

	_, err := ParamsForNet(0x12345678)
	if !errors.Is(err, ErrUnknownNet) {
		t.Errorf("ParamsForNet(unknown): got error %v, want %v", err, ErrUnknownNet)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	err := register(&Params{Name: "copy", Net: appmessage.Regtest, DefaultPort: "1"})
	if !errors.Is(err, ErrDuplicateNet) {
		t.Fatalf("register: got error %v, want %v", err, ErrDuplicateNet)
	}

	params, err := ParamsForNet(appmessage.Regtest)
	if err != nil || params != &RegtestParams {
		t.Fatalf("register: duplicate registration replaced the regtest params")
	}
}
