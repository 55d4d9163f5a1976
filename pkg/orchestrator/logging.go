// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var pkgLogger atomic.Pointer[zap.SugaredLogger]

func init() {
	pkgLogger.Store(zap.NewNop().Sugar())
}

// SetLogger installs the logger used by the orchestrator. A nil logger
// silences output.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	pkgLogger.Store(l.Sugar())
}

func logf(format string, args ...any) {
	pkgLogger.Load().Infof(format, args...)
}

func debugf(format string, args ...any) {
	pkgLogger.Load().Debugf(format, args...)
}

func warnf(format string, args ...any) {
	pkgLogger.Load().Warnf(format, args...)
}
