package app

import (
	"github.com/kaspanet/btchandshake/infrastructure/logger"
	"github.com/kaspanet/btchandshake/util/panics"
)

var log = logger.RegisterSubSystem("BTCH")
var spawn = panics.GoroutineWrapperFunc(log)
