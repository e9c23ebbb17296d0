package handshake

import (
	"github.com/kaspanet/btchandshake/infrastructure/logger"
)

var log = logger.RegisterSubSystem("HNDS")
