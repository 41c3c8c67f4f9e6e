//go:build !nogpu

package gpu

import (
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

type loggerBox struct {
	l logrus.FieldLogger
}

// loggerPtr stores the active logger. Accessed atomically for thread safety.
var loggerPtr atomic.Pointer[loggerBox]

func init() {
	setLogger(nil)
}

func nopLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	l.Level = logrus.PanicLevel
	return l
}

// logger returns the current package logger.
// All logging in internal/gpu goes through this function.
func logger() logrus.FieldLogger { return loggerPtr.Load().l }

// setLogger updates the package-level logger.
// Called from BlendAccelerator.SetLogger when vpp.SetLogger propagates.
func setLogger(l logrus.FieldLogger) {
	if l == nil {
		l = nopLogger()
	}
	loggerPtr.Store(&loggerBox{l: l})
}
