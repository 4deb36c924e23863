package hornetq

import (
	"sync"

	"github.com/rs/zerolog"
)

var (
	loggerLock sync.RWMutex
	logger     = zerolog.Nop()
)

// SetLogger installs the logger used by the package. The default discards
// everything; pass a configured zerolog.Logger to see dispatch and failover
// trace events.
func SetLogger(log zerolog.Logger) {
	loggerLock.Lock()
	logger = log
	loggerLock.Unlock()
}

// Logger returns the package logger.
func Logger() zerolog.Logger {
	loggerLock.RLock()
	defer loggerLock.RUnlock()
	return logger
}
