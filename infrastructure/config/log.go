package config

import (
	"github.com/kaspanet/btchandshake/infrastructure/logger"
)

var log = logger.RegisterSubSystem("CNFG")
