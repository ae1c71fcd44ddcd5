// SPDX-License-Identifier: Apache-2.0

package arenabox

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger    *zap.Logger
	loggerMu  sync.RWMutex
	nopLogger = zap.NewNop()
)

// Logger returns the package logger. It is a no-op logger unless SetLogger
// has been called.
func Logger() *zap.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l == nil {
		return nopLogger
	}
	return l
}

// SetLogger replaces the package logger. Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}
