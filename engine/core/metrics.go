package core

const AVG_COUNT uint8 = 30

// Metrics keeps a rolling frame-time average and a once-per-second FPS count.
type Metrics struct {
	frameAvgCounter    uint8
	msTimes            [AVG_COUNT]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Update records one frame. It returns true when a full second has been
// accumulated and the FPS value was refreshed.
func (m *Metrics) Update(frameElapsedTime float64) bool {
	frameMS := frameElapsedTime * 1000.0
	m.msTimes[m.frameAvgCounter] = frameMS
	if m.frameAvgCounter == AVG_COUNT-1 {
		m.msAvg = 0
		for i := uint8(0); i < AVG_COUNT; i++ {
			m.msAvg += m.msTimes[i]
		}
		m.msAvg /= float64(AVG_COUNT)
	}
	m.frameAvgCounter++
	m.frameAvgCounter %= AVG_COUNT

	m.frames++

	refreshed := false
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
		refreshed = true
	}
	return refreshed
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}

// Frame returns the FPS and the average frame time in milliseconds.
func (m *Metrics) Frame() (float64, float64) {
	return m.fps, m.msAvg
}
