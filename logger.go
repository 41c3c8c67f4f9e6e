package vpp

import (
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// newNopLogger creates a logger that discards all output. The panic level
// makes logrus skip formatting for every level vpp logs at.
func newNopLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	l.Level = logrus.PanicLevel
	return l
}

// loggerBox wraps the interface so it can live in an atomic.Pointer.
type loggerBox struct {
	l logrus.FieldLogger
}

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with dispatches logging from workers.
var loggerPtr atomic.Pointer[loggerBox]

func init() {
	loggerPtr.Store(&loggerBox{l: newNopLogger()})
}

// SetLogger configures the logger for vpp and its sub-packages.
// By default vpp produces no log output.
//
// Pass nil to restore the silent default.
//
// Levels used by vpp:
//   - Debug: kernel selection, grid sizes, allocations
//   - Info: device creation, accelerator selection
//   - Warn: skipped mixer fields, CPU fallback
//   - Error: dispatch failures
//
// Example:
//
//	log := logrus.New()
//	log.SetLevel(logrus.DebugLevel)
//	vpp.SetLogger(log)
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(&loggerBox{l: l})

	if a := Accelerator(); a != nil {
		propagateLogger(a, l)
	}
}

// Logger returns the current logger. The gpu sub-package calls this to share
// the same configuration.
func Logger() logrus.FieldLogger {
	return loggerPtr.Load().l
}

// loggerSetter is implemented by accelerators that accept a logger.
type loggerSetter interface {
	SetLogger(logrus.FieldLogger)
}

// propagateLogger passes the logger to an accelerator if it implements
// loggerSetter. Called from SetLogger and RegisterAccelerator.
func propagateLogger(a GPUAccelerator, l logrus.FieldLogger) {
	if ls, ok := a.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
