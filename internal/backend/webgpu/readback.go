package webgpu

import (
	"fmt"
	"sync"

	"github.com/born-ml/invsqrt/internal/logging"
	"github.com/cogentcore/webgpu/wgpu"
)

// MapState is the lifecycle of one staging buffer readback.
//
//	MapUnmapped -> MapRequested -> MapMapped -> MapConsumed
//	                            \-> MapFailed
type MapState int

const (
	MapUnmapped MapState = iota
	MapRequested
	MapMapped
	MapConsumed
	MapFailed
)

// String returns the state name.
func (s MapState) String() string {
	switch s {
	case MapUnmapped:
		return "unmapped"
	case MapRequested:
		return "map-requested"
	case MapMapped:
		return "mapped"
	case MapConsumed:
		return "consumed"
	case MapFailed:
		return "failed"
	default:
		return fmt.Sprintf("MapState(%d)", int(s))
	}
}

// mapTarget is the part of a device buffer the readback handshake drives.
type mapTarget interface {
	// mapRead starts an asynchronous read map; done fires once when it settles.
	mapRead(size uint64, done func(ok bool, status string)) error
	// poll drives the device event loop so pending callbacks can fire.
	poll()
	mappedRange(size uint64) []byte
	unmap()
}

type bufferTarget struct {
	buffer *wgpu.Buffer
	device *wgpu.Device
}

func (b bufferTarget) mapRead(size uint64, done func(ok bool, status string)) error {
	return b.buffer.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		done(status == wgpu.BufferMapAsyncStatusSuccess, fmt.Sprint(status))
	})
}

func (b bufferTarget) poll() {
	b.device.Poll(true, nil)
}

func (b bufferTarget) mappedRange(size uint64) []byte {
	return b.buffer.GetMappedRange(0, uint(size))
}

func (b bufferTarget) unmap() {
	b.buffer.Unmap()
}

// MapTicket is an outstanding read map of a staging buffer. It is the only
// suspension point of a dispatch: the caller requests the map, then awaits it.
type MapTicket struct {
	target mapTarget
	size   uint64

	mu     sync.Mutex
	state  MapState
	ok     bool
	status string
	done   chan struct{}
}

func requestMap(target mapTarget, size uint64) (*MapTicket, error) {
	t := &MapTicket{
		target: target,
		size:   size,
		state:  MapRequested,
		done:   make(chan struct{}),
	}

	var once sync.Once
	err := target.mapRead(size, func(ok bool, status string) {
		once.Do(func() {
			t.mu.Lock()
			t.ok = ok
			t.status = status
			t.mu.Unlock()
			close(t.done)
		})
	})
	if err != nil {
		t.setState(MapFailed)
		return t, &ReadbackError{Size: size, Err: err}
	}
	return t, nil
}

// State returns the current state of the ticket.
func (t *MapTicket) State() MapState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *MapTicket) setState(s MapState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *MapTicket) settled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// await polls the device until the map settles, then copies the mapped bytes
// out and unmaps. There is no timeout: a device that never completes the
// submitted work blocks here indefinitely.
func (t *MapTicket) await() ([]byte, error) {
	if s := t.State(); s != MapRequested {
		return nil, fmt.Errorf("%w: await in state %s", ErrTicketState, s)
	}

	for !t.settled() {
		t.target.poll()
	}

	t.mu.Lock()
	ok, status := t.ok, t.status
	t.mu.Unlock()

	if !ok {
		t.setState(MapFailed)
		return nil, &ReadbackError{Size: t.size, Status: status}
	}
	t.setState(MapMapped)

	mapped := t.target.mappedRange(t.size)
	if uint64(len(mapped)) < t.size {
		t.target.unmap()
		t.setState(MapFailed)
		return nil, &ReadbackError{Size: t.size, Status: fmt.Sprintf("mapped range is %d bytes", len(mapped))}
	}

	out := make([]byte, t.size)
	copy(out, mapped)
	t.target.unmap()
	t.setState(MapConsumed)

	return out, nil
}

// RequestMap starts mapping staging for reading. The map settles only after
// every previously submitted command that writes staging has completed.
func (c *Context) RequestMap(staging *StagingBuffer) (*MapTicket, error) {
	if err := c.checkLive(); err != nil {
		return nil, err
	}
	if staging == nil || staging.buffer == nil {
		return nil, fmt.Errorf("%w: staging buffer released", ErrTicketState)
	}
	if staging.ticket != nil {
		if s := staging.ticket.State(); s == MapRequested || s == MapMapped {
			return nil, fmt.Errorf("%w: staging buffer already %s", ErrTicketState, s)
		}
	}

	ticket, err := requestMap(bufferTarget{buffer: staging.buffer, device: c.device}, staging.size)
	staging.ticket = ticket
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// AwaitMap blocks until ticket's map settles and returns a host copy of the
// mapped bytes. A device-reported failure is a *ReadbackError.
func (c *Context) AwaitMap(ticket *MapTicket) ([]byte, error) {
	if ticket == nil {
		return nil, fmt.Errorf("%w: nil ticket", ErrTicketState)
	}
	data, err := ticket.await()
	if err != nil {
		return nil, err
	}
	logging.Debugf("webgpu: read back %d bytes", len(data))
	return data, nil
}

// MapForRead maps staging and decodes its contents as float32 values in
// buffer order.
func (c *Context) MapForRead(staging *StagingBuffer) ([]float32, error) {
	ticket, err := c.RequestMap(staging)
	if err != nil {
		return nil, err
	}
	data, err := c.AwaitMap(ticket)
	if err != nil {
		return nil, err
	}
	return DecodeFloat32s(data)
}
