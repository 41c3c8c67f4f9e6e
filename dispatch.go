package vpp

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gogpu/vpp/internal/parallel"
)

// submit dispatches kernel over rows grid rows once dep has completed.
// In synchronous mode it blocks until the kernel finishes and returns its
// error; otherwise it returns immediately and the error surfaces through the
// event.
func (d *Device) submit(name string, dep *Event, async bool, rows int, kernel func(row int)) (*Event, error) {
	return d.submitFunc(name, dep, async, func() error {
		return d.pool.For(rows, kernel)
	})
}

// submitFunc is submit for work that schedules itself.
func (d *Device) submitFunc(name string, dep *Event, async bool, fn func() error) (*Event, error) {
	if d.closed.Load() {
		return nil, fmt.Errorf("%s: %w", name, ErrClosed)
	}

	ev := newEvent(name, d.profiling)
	d.track(ev)

	go func() {
		defer d.untrack(ev)

		if err := dep.Wait(context.Background()); err != nil {
			err = fmt.Errorf("%w: %s: dependency %s failed: %v", ErrFail, name, dep.Name(), err)
			d.logFailure(ev, err)
			ev.finish(err)
			return
		}

		ev.begin()
		err := fn()
		if err != nil {
			err = dispatchError(name, err)
			d.logFailure(ev, err)
		}
		ev.finish(err)
	}()

	if async {
		return ev, nil
	}
	return ev, ev.Wait(context.Background())
}

// dispatchError converts a kernel failure into ErrFail.
func dispatchError(name string, err error) error {
	if errors.Is(err, ErrFail) || errors.Is(err, ErrInvalidParams) {
		return err
	}
	var pe *parallel.PanicError
	if errors.As(err, &pe) {
		return fmt.Errorf("%w: %s: kernel fault at row %d: %v", ErrFail, name, pe.Row, pe.Value)
	}
	if errors.Is(err, parallel.ErrPoolClosed) {
		return fmt.Errorf("%s: %w", name, ErrClosed)
	}
	return fmt.Errorf("%w: %s: %w", ErrFail, name, err)
}

func (d *Device) logFailure(ev *Event, err error) {
	Logger().WithFields(logrus.Fields{
		"op":    ev.name,
		"event": ev.id,
	}).WithError(err).Error("vpp: dispatch failed")
}
