// Package audiotest provides an in-memory audio.Driver whose playback state
// is controlled by the test.
package audiotest

import (
	"sync"

	"github.com/spaghettifunk/ember/engine/audio"
	"github.com/spaghettifunk/ember/engine/math"
)

type source struct {
	buffer   uint32
	position math.Vec3
	velocity math.Vec3
	state    audio.SourceState
}

// Driver is a fake audio.Driver. A played source reports SourcePlaying until
// SourceStop or SetState says otherwise.
type Driver struct {
	mu sync.Mutex

	// Fail makes the named call fail: Open/Create calls return an error,
	// Gen calls return audio.InvalidID and the others raise the error through Error.
	Fail map[string]error

	nextID   uint32
	calls    map[string]int
	order    []string
	buffers  map[uint32]int
	sources  map[uint32]*source
	device   bool
	context  bool
	listener struct {
		position, velocity, at, up math.Vec3
		gain                       float32
	}
	err error
}

func NewDriver() *Driver {
	return &Driver{
		Fail:    make(map[string]error),
		calls:   make(map[string]int),
		buffers: make(map[uint32]int),
		sources: make(map[uint32]*source),
	}
}

func (d *Driver) record(name string) {
	d.calls[name]++
	d.order = append(d.order, name)
}

// Calls returns how many times the named driver method was invoked.
func (d *Driver) Calls(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[name]
}

// Order returns the names of every call in invocation order.
func (d *Driver) Order() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.order...)
}

func (d *Driver) ResetCalls() {
	d.mu.Lock()
	d.calls = make(map[string]int)
	d.order = nil
	d.mu.Unlock()
}

// Live returns the number of buffers and sources not yet deleted.
func (d *Driver) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers) + len(d.sources)
}

func (d *Driver) DeviceOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.device
}

func (d *Driver) ContextCreated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.context
}

// SetState forces the playback state of a source.
func (d *Driver) SetState(id uint32, state audio.SourceState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.sources[id]; ok {
		s.state = state
	}
}

// AttachedBuffer returns the buffer attached to a source.
func (d *Driver) AttachedBuffer(id uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.sources[id]; ok {
		return s.buffer
	}
	return audio.InvalidID
}

// BufferSize returns the number of PCM bytes uploaded to a buffer.
func (d *Driver) BufferSize(id uint32) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buffers[id]
}

// SetError makes the next Error call return err.
func (d *Driver) SetError(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

func (d *Driver) OpenDevice() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("OpenDevice")
	if err := d.Fail["OpenDevice"]; err != nil {
		return err
	}
	d.device = true
	return nil
}

func (d *Driver) CloseDevice() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CloseDevice")
	d.device = false
}

func (d *Driver) CreateContext() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateContext")
	if err := d.Fail["CreateContext"]; err != nil {
		return err
	}
	if !d.device {
		return audio.ErrNoDevice
	}
	d.context = true
	return nil
}

func (d *Driver) DestroyContext() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DestroyContext")
	d.context = false
}

func (d *Driver) gen(name string) uint32 {
	d.record(name)
	if err := d.Fail[name]; err != nil {
		d.err = err
		return audio.InvalidID
	}
	d.nextID++
	return d.nextID
}

func (d *Driver) GenBuffer() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.gen("GenBuffer")
	if id != audio.InvalidID {
		d.buffers[id] = 0
	}
	return id
}

func (d *Driver) DeleteBuffer(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DeleteBuffer")
	delete(d.buffers, id)
}

func (d *Driver) BufferData(id uint32, channels, sampleRate int, pcm []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BufferData")
	if err := d.Fail["BufferData"]; err != nil {
		d.err = err
		return
	}
	d.buffers[id] = len(pcm)
}

func (d *Driver) GenSource() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.gen("GenSource")
	if id != audio.InvalidID {
		d.sources[id] = &source{}
	}
	return id
}

func (d *Driver) DeleteSource(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DeleteSource")
	delete(d.sources, id)
}

func (d *Driver) withSource(name string, id uint32, fn func(s *source)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(name)
	if err := d.Fail[name]; err != nil {
		d.err = err
		return
	}
	if s, ok := d.sources[id]; ok {
		fn(s)
		return
	}
	d.err = audio.ErrInvalidName
}

func (d *Driver) SourceBuffer(id, buffer uint32) {
	d.withSource("SourceBuffer", id, func(s *source) { s.buffer = buffer })
}

func (d *Driver) SourcePosition(id uint32, position math.Vec3) {
	d.withSource("SourcePosition", id, func(s *source) { s.position = position })
}

func (d *Driver) SourceVelocity(id uint32, velocity math.Vec3) {
	d.withSource("SourceVelocity", id, func(s *source) { s.velocity = velocity })
}

func (d *Driver) SourcePlay(id uint32) {
	d.withSource("SourcePlay", id, func(s *source) { s.state = audio.SourcePlaying })
}

func (d *Driver) SourceStop(id uint32) {
	d.withSource("SourceStop", id, func(s *source) { s.state = audio.SourceStopped })
}

func (d *Driver) SourceState(id uint32) audio.SourceState {
	state := audio.SourceInitial
	d.withSource("SourceState", id, func(s *source) { state = s.state })
	return state
}

func (d *Driver) ListenerPosition(position math.Vec3) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ListenerPosition")
	d.listener.position = position
}

func (d *Driver) ListenerVelocity(velocity math.Vec3) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ListenerVelocity")
	d.listener.velocity = velocity
}

func (d *Driver) ListenerOrientation(at, up math.Vec3) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ListenerOrientation")
	d.listener.at = at
	d.listener.up = up
}

func (d *Driver) ListenerGain(gain float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ListenerGain")
	d.listener.gain = gain
}

func (d *Driver) Error() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.err
	d.err = nil
	return err
}

var _ audio.Driver = (*Driver)(nil)
