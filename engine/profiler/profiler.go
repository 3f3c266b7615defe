// package profiler tracks frame rate and memory statistics for the
// simulation update loop and reports them through the structured logger at a
// configurable interval.
package profiler

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Profiler tracks update-loop timing and Go runtime memory statistics.
type Profiler struct {
	log *zap.Logger

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// ProfilerOption is a functional option for configuring a Profiler.
type ProfilerOption func(*Profiler)

// WithProfilerLogger sets the structured logger stats are reported to.
// A nil logger is ignored.
//
// Parameters:
//   - log: the zap logger instance
//
// Returns:
//   - ProfilerOption: a function that applies the logger option to a profiler
func WithProfilerLogger(log *zap.Logger) ProfilerOption {
	return func(p *Profiler) {
		if log != nil {
			p.log = log
		}
	}
}

// WithInterval sets how often stats are reported. Intervals below one
// millisecond are ignored.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - ProfilerOption: a function that applies the interval option to a profiler
func WithInterval(interval time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if interval >= time.Millisecond {
			p.updateInterval = interval
		}
	}
}

// NewProfiler creates a Profiler with the provided options applied.
// The reporting interval defaults to 1 second.
//
// Parameters:
//   - options: a variadic list of ProfilerOption functions to configure the Profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		log:            zap.NewNop(),
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Tick should be called once per update frame. When the reporting interval
// has elapsed it logs FPS, heap usage, allocation rate, and GC pause
// statistics, then resets the window.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	p.log.Info("frame stats",
		zap.Float64("fps", fps),
		zap.Float64("heapMB", allocMB),
		zap.Float64("allocRateMBs", allocRateMB),
		zap.Uint32("gcCount", gcCount),
		zap.Uint64("gcLastPauseUs", lastPauseUs),
		zap.Uint64("gcMaxPauseUs", maxPauseUs),
		zap.Float64("sysMB", sysMB),
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
