package vpp

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeviceDefaults(t *testing.T) {
	d := newTestDevice(t)
	assert.Equal(t, TargetCPU, d.Target())
	assert.False(t, d.Profiling())
	assert.Positive(t, d.Workers())
}

func TestNewDeviceOptions(t *testing.T) {
	d := newTestDevice(t, WithTarget(TargetGPU), WithProfiling(true), WithWorkers(3))
	assert.Equal(t, TargetGPU, d.Target())
	assert.True(t, d.Profiling())
	assert.Equal(t, 3, d.Workers())
}

func TestNewDeviceUnknownTarget(t *testing.T) {
	_, err := NewDevice(WithTarget(Target(9)))
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.Equal(t, "Target(9)", Target(9).String())
	assert.Equal(t, "gpu", TargetGPU.String())
}

func TestSubmitSync(t *testing.T) {
	d := newTestDevice(t, WithWorkers(4))
	var n atomic.Int32
	ev, err := d.submit("count", nil, false, 100, func(int) { n.Add(1) })
	require.NoError(t, err)
	assert.True(t, ev.Complete())
	assert.Equal(t, int32(100), n.Load())
}

func TestSubmitPanicIsFail(t *testing.T) {
	d := newTestDevice(t)
	ev, err := d.submit("crash", nil, false, 8, func(row int) {
		if row == 5 {
			var b []byte
			_ = b[row]
		}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFail)
	assert.Equal(t, StatusFail, StatusOf(err))
	assert.ErrorIs(t, ev.Err(), ErrFail)
}

func TestSubmitAsyncDependency(t *testing.T) {
	d := newTestDevice(t)

	gate := newEvent("gate", false)
	var ran atomic.Bool
	ev, err := d.submit("after_gate", gate, true, 1, func(int) { ran.Store(true) })
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	assert.False(t, ran.Load(), "kernel ran before its dependency")
	assert.False(t, ev.Complete())

	gate.finish(nil)
	require.NoError(t, ev.Wait(context.Background()))
	assert.True(t, ran.Load())
}

func TestSubmitFailedDependency(t *testing.T) {
	d := newTestDevice(t)
	dep := completedEvent("upstream", false, invalidf("bad input"))

	var ran atomic.Bool
	_, err := d.submit("downstream", dep, false, 1, func(int) { ran.Store(true) })
	assert.ErrorIs(t, err, ErrFail)
	assert.False(t, ran.Load())
}

func TestDeviceSync(t *testing.T) {
	d := newTestDevice(t)
	gate := newEvent("gate", false)
	ev, err := d.submit("pending", gate, true, 1, func(int) {})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Sync(ctx), context.DeadlineExceeded)

	gate.finish(nil)
	require.NoError(t, d.Sync(context.Background()))
	assert.True(t, ev.Complete())
}

func TestDeviceClose(t *testing.T) {
	d, err := NewDevice()
	require.NoError(t, err)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, err = d.Copy(make([]byte, 4), make([]byte, 4), nil, false)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAllocImage(t *testing.T) {
	d := newTestDevice(t)

	buf, err := d.AllocImage(FormatV210, 1280, 720, MemDevice)
	require.NoError(t, err)
	assert.Len(t, buf, ImageSize(FormatV210, 1280, 720))

	_, err = d.AllocImage(FormatI420, 0, 2, MemHost)
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = d.AllocImage(Format(99), 2, 2, MemHost)
	assert.ErrorIs(t, err, ErrInvalidParams)

	assert.Len(t, d.Alloc(17, MemShared), 17)
}

func TestFreeReusesBuffer(t *testing.T) {
	d := newTestDevice(t)

	buf, err := d.AllocImage(FormatI420, 16, 8, MemHost)
	require.NoError(t, err)
	for i := range buf {
		buf[i] = 0x5A
	}
	d.Free(buf)

	again, err := d.AllocImage(FormatI420, 16, 8, MemHost)
	require.NoError(t, err)
	assert.Same(t, &buf[0], &again[0])
	assert.Equal(t, make([]byte, len(again)), again, "reused buffers are zeroed")
	assert.Equal(t, "23.06", d.Version())
}

func TestCopyChain(t *testing.T) {
	d := newTestDevice(t, WithProfiling(true))

	src := make([]byte, 3*copyChunk+123)
	for i := range src {
		src[i] = byte(i * 7)
	}
	mid := make([]byte, len(src))
	dst := make([]byte, len(src))

	first, err := d.Copy(mid, src, nil, true)
	require.NoError(t, err)
	second, err := d.Copy(dst, mid, first, true)
	require.NoError(t, err)

	require.NoError(t, second.Wait(context.Background()))
	assert.True(t, bytes.Equal(src, dst))
	assert.GreaterOrEqual(t, second.StartNs(), first.EndNs())
}

func TestCopyShortDestination(t *testing.T) {
	d := newTestDevice(t)
	_, err := d.Copy(make([]byte, 3), make([]byte, 4), nil, false)
	assert.ErrorIs(t, err, ErrInvalidParams)
}
