package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/ember/engine/audio/audiotest"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/gl"
	"github.com/spaghettifunk/ember/engine/renderer/gl/gltest"
	"github.com/spaghettifunk/ember/engine/renderer/gpu"
	"github.com/spaghettifunk/ember/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1/64s is exact in binary floating point, so accumulated steps compare exactly.
const testStep = 1.0 / 64.0

var testStepDuration = time.Second / 64

type fakeWindow struct {
	driver   *gltest.Driver
	input    *core.InputState
	width    int
	height   int
	maxPolls int
	polls    int
	swaps    int
	resizes  map[int][2]int
	onSwap   func()
	closed   bool
	shutdown bool
}

func newFakeWindow(maxPolls int) *fakeWindow {
	return &fakeWindow{
		driver:   gltest.NewDriver(),
		input:    core.NewInputState(),
		width:    1280,
		height:   720,
		maxPolls: maxPolls,
		resizes:  make(map[int][2]int),
	}
}

func (w *fakeWindow) GraphicsDriver() (gl.Driver, error) { return w.driver, nil }
func (w *fakeWindow) ShouldClose() bool                  { return w.closed || w.polls >= w.maxPolls }
func (w *fakeWindow) Close()                             { w.closed = true }
func (w *fakeWindow) Input() *core.InputState            { return w.input }
func (w *fakeWindow) Size() (int, int)                   { return w.width, w.height }

func (w *fakeWindow) PollEvents() bool {
	w.polls++
	if size, ok := w.resizes[w.polls]; ok {
		w.width, w.height = size[0], size[1]
		return true
	}
	return false
}

func (w *fakeWindow) SwapBuffers() {
	w.swaps++
	if w.onSwap != nil {
		w.onSwap()
	}
}

func (w *fakeWindow) Shutdown() error {
	w.shutdown = true
	return nil
}

type fakeGame struct {
	updates  []float64
	renders  int
	resizes  [][2]int
	shutdown bool

	updateErr error
	renderErr error
	onUpdate  func(ctx *Context)

	quad systems.Handle[gpu.VertexBuffer]
}

func (g *fakeGame) Initialize(ctx *Context) error {
	h, vb, err := systems.CreateResource(ctx.Resources(), func(vb *gpu.VertexBuffer) error {
		return vb.Init(ctx.GPU())
	})
	if err != nil {
		return err
	}
	vb.LoadVertices([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, gl.StaticDraw)
	g.quad = h
	return nil
}

func (g *fakeGame) Update(ctx *Context, dt float64) error {
	g.updates = append(g.updates, dt)
	if g.onUpdate != nil {
		g.onUpdate(ctx)
	}
	return g.updateErr
}

func (g *fakeGame) Render(ctx *Context, dt float64) error {
	g.renders++
	return g.renderErr
}

func (g *fakeGame) OnResize(ctx *Context, width, height int) error {
	g.resizes = append(g.resizes, [2]int{width, height})
	return nil
}

func (g *fakeGame) Shutdown(ctx *Context) error {
	g.shutdown = true
	return nil
}

func testConfig() *ApplicationConfig {
	config := DefaultApplicationConfig()
	config.AssetDir = ""
	config.TimeStep = testStep
	config.LogLevel = "error"
	config.SchedulerThreads = 2
	return config
}

// newTestEngine wires a fake window whose every swap advances the clock by frameTime.
func newTestEngine(t *testing.T, game Game, config *ApplicationConfig, window *fakeWindow, frameTime time.Duration, opts ...Option) (*Engine, *audiotest.Driver) {
	t.Helper()
	now := time.Unix(0, 0)
	window.onSwap = func() { now = now.Add(frameTime) }
	driver := audiotest.NewDriver()
	opts = append([]Option{
		WithWindow(window),
		WithAudioDriver(driver),
		WithClock(core.NewClockFunc(func() time.Time { return now })),
	}, opts...)
	e, err := New(game, config, opts...)
	require.NoError(t, err)
	return e, driver
}

func TestEngineLifecycle(t *testing.T) {
	game := &fakeGame{}
	window := newFakeWindow(4)
	e, audioDriver := newTestEngine(t, game, testConfig(), window, testStepDuration)

	require.NoError(t, e.Initialize())
	assert.Equal(t, EngineStageInitialized, e.Stage())
	assert.Equal(t, 1, window.driver.Calls("Viewport"))
	assert.Equal(t, [][2]int{{1280, 720}}, game.resizes)
	assert.NotNil(t, e.Context().Audio())
	assert.Nil(t, e.Context().Assets())
	assert.Equal(t, 1, systems.Count[gpu.VertexBuffer](e.Context().Resources()))

	require.NoError(t, e.Run())
	// the first frame measures no elapsed time
	assert.Equal(t, []float64{testStep, testStep, testStep}, game.updates)
	assert.Equal(t, 4, game.renders)
	assert.Equal(t, 4, window.swaps)
	assert.Equal(t, uint64(4), e.Context().Frame())

	require.NoError(t, e.Shutdown())
	assert.Equal(t, EngineStageStopped, e.Stage())
	assert.True(t, game.shutdown)
	assert.True(t, window.shutdown)
	assert.False(t, audioDriver.DeviceOpen())
	assert.Equal(t, 0, audioDriver.Live())
	assert.Equal(t, 0, window.driver.Live())

	assert.NoError(t, e.Shutdown())
}

func TestEngineStageChecks(t *testing.T) {
	e, _ := newTestEngine(t, &fakeGame{}, testConfig(), newFakeWindow(1), testStepDuration)

	assert.ErrorIs(t, e.Run(), ErrInvalidStage)
	require.NoError(t, e.Initialize())
	assert.ErrorIs(t, e.Initialize(), ErrInvalidStage)
	require.NoError(t, e.Shutdown())
	assert.ErrorIs(t, e.Run(), ErrInvalidStage)
}

func TestFixedStepCatchUp(t *testing.T) {
	game := &fakeGame{}
	e, _ := newTestEngine(t, game, testConfig(), newFakeWindow(3), 3*testStepDuration)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	require.NoError(t, e.Run())
	assert.Len(t, game.updates, 6)
	assert.Equal(t, 3, game.renders)
}

func TestFixedStepDropsBacklog(t *testing.T) {
	config := testConfig()
	config.MaxStepsPerFrame = 4
	game := &fakeGame{}
	e, _ := newTestEngine(t, game, config, newFakeWindow(3), 10*testStepDuration)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	require.NoError(t, e.Run())
	assert.Len(t, game.updates, 8)
}

func TestVariableStep(t *testing.T) {
	config := testConfig()
	config.TimeStep = 0
	game := &fakeGame{}
	e, _ := newTestEngine(t, game, config, newFakeWindow(3), 2*testStepDuration)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	require.NoError(t, e.Run())
	assert.Equal(t, []float64{0, 2 * testStep, 2 * testStep}, game.updates)
}

func TestUpdateFailureStopsLoop(t *testing.T) {
	boom := errors.New("boom")
	game := &fakeGame{updateErr: boom}
	e, _ := newTestEngine(t, game, testConfig(), newFakeWindow(10), testStepDuration)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	assert.ErrorIs(t, e.Run(), boom)
	assert.Len(t, game.updates, 1)
	// the failing update happens in the second frame, before its render
	assert.Equal(t, 1, game.renders)
}

func TestFailureHandlerCanContinue(t *testing.T) {
	var failures []error
	game := &fakeGame{renderErr: errors.New("lost device")}
	e, _ := newTestEngine(t, game, testConfig(), newFakeWindow(3), testStepDuration,
		WithFailureHandler(func(err error) bool {
			failures = append(failures, err)
			return true
		}))
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	require.NoError(t, e.Run())
	assert.Equal(t, 3, game.renders)
	assert.Len(t, failures, 3)
}

func TestQuitFromGame(t *testing.T) {
	game := &fakeGame{}
	game.onUpdate = func(ctx *Context) {
		if len(game.updates) == 2 {
			ctx.Quit()
		}
	}
	e, _ := newTestEngine(t, game, testConfig(), newFakeWindow(100), testStepDuration)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	require.NoError(t, e.Run())
	assert.Len(t, game.updates, 2)
	assert.Equal(t, 3, game.renders)
}

func TestResizeSuspendsWhenMinimized(t *testing.T) {
	game := &fakeGame{}
	window := newFakeWindow(4)
	window.resizes[2] = [2]int{0, 0}
	window.resizes[3] = [2]int{800, 600}
	e, _ := newTestEngine(t, game, testConfig(), window, testStepDuration)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	require.NoError(t, e.Run())
	assert.Equal(t, 3, game.renders)
	assert.Equal(t, [][2]int{{1280, 720}, {800, 600}}, game.resizes)
	assert.Equal(t, 2, window.driver.Calls("Viewport"))
}

func TestAudioFailureFallsBackToSilence(t *testing.T) {
	window := newFakeWindow(1)
	e, audioDriver := newTestEngine(t, &fakeGame{}, testConfig(), window, testStepDuration)
	audioDriver.Fail["OpenDevice"] = errors.New("no sound card")

	require.NoError(t, e.Initialize())
	assert.Nil(t, e.Context().Audio())
	require.NoError(t, e.Shutdown())
}

func TestGameInitFailureIsReported(t *testing.T) {
	window := newFakeWindow(1)
	window.driver.Fail["GenBuffer"] = true
	game := &fakeGame{}
	e, _ := newTestEngine(t, game, testConfig(), window, testStepDuration)

	err := e.Initialize()
	assert.ErrorIs(t, err, core.ErrAllocationFailed)
	require.NoError(t, e.Shutdown())
	assert.False(t, game.shutdown)
	assert.True(t, window.shutdown)
}

func TestLoadApplicationConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ember.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
name = "demo"
start_width = 640
time_step = 0.02
disable_unbind = true

[audio]
max_source_count = 32
`), 0o644))

	config, err := LoadApplicationConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", config.Name)
	assert.Equal(t, 640, config.StartWidth)
	assert.Equal(t, 720, config.StartHeight)
	assert.Equal(t, 0.02, config.TimeStep)
	assert.True(t, config.DisableUnbind)
	assert.Equal(t, 32, config.Audio.MaxSourceCount)
	assert.Equal(t, systems.DefaultAudioManagerConfig().MaxBufferCount, config.Audio.MaxBufferCount)
	assert.True(t, config.Audio.Enabled)
}

func TestLoadApplicationConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadApplicationConfig(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	broken := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte("name = "), 0o644))
	_, err = LoadApplicationConfig(broken)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.toml")
	require.NoError(t, os.WriteFile(invalid, []byte("start_width = 0\n"), 0o644))
	_, err = LoadApplicationConfig(invalid)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	level := filepath.Join(dir, "level.toml")
	require.NoError(t, os.WriteFile(level, []byte("log_level = \"loud\"\n"), 0o644))
	_, err = LoadApplicationConfig(level)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
