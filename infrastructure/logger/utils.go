package logger

import (
	"time"
)

// LogAndMeasureExecutionTime logs at debug level that functionName started,
// and returns a function logging how long it took. The handshake defers the
// returned function so its duration shows up with -d HNDS=debug.
func LogAndMeasureExecutionTime(log *Logger, functionName string) (onEnd func()) {
	start := time.Now()
	log.Debugf("%s start", functionName)
	return func() {
		log.Debugf("%s end. Took: %s", functionName, time.Since(start))
	}
}
