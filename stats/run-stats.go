package stats

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/relloyd/visitload/logger"
)

// RunStats counts the work done by one load run.
// Counters are updated atomically so a reporter may read them while the run progresses.
type RunStats struct {
	startTime      time.Time
	rowsRead       int64
	batchesFlushed int64
	rowsLoaded     int64
	loadAttempts   int64
	failedAttempts int64
}

type Stats struct {
	RunId          string `json:"runId"`
	ElapsedTimeSec int    `json:"elapsedTimeSec"`
	RowsRead       int    `json:"rowsRead"`
	BatchesFlushed int    `json:"batchesFlushed"`
	RowsLoaded     int    `json:"rowsLoaded"`
	LoadAttempts   int    `json:"loadAttempts"`
	FailedAttempts int    `json:"failedAttempts"`
	RowsPerSecond  int    `json:"rowsPerSecond"`
}

func NewRunStats() *RunStats {
	return &RunStats{startTime: time.Now()}
}

func (r *RunStats) AddRowsRead(n int64) {
	atomic.AddInt64(&r.rowsRead, n)
}

func (r *RunStats) AddBatchFlushed() {
	atomic.AddInt64(&r.batchesFlushed, 1)
}

func (r *RunStats) AddRowsLoaded(n int64) {
	atomic.AddInt64(&r.rowsLoaded, n)
}

// AddAttempt records one load attempt and whether it failed.
func (r *RunStats) AddAttempt(failed bool) {
	atomic.AddInt64(&r.loadAttempts, 1)
	if failed {
		atomic.AddInt64(&r.failedAttempts, 1)
	}
}

// GetStats gets a struct filled with stats at the point of time it is called.
func (r *RunStats) GetStats(runId string) Stats {
	loaded := atomic.LoadInt64(&r.rowsLoaded)
	return Stats{
		RunId:          runId,
		ElapsedTimeSec: int(time.Since(r.startTime).Seconds()),
		RowsRead:       int(atomic.LoadInt64(&r.rowsRead)),
		BatchesFlushed: int(atomic.LoadInt64(&r.batchesFlushed)),
		RowsLoaded:     int(loaded),
		LoadAttempts:   int(atomic.LoadInt64(&r.loadAttempts)),
		FailedAttempts: int(atomic.LoadInt64(&r.failedAttempts)),
		RowsPerSecond:  int(loaded / getNumSecondsSinceTimeOrOne(r.startTime)),
	}
}

// Log writes the current stats at info level.
func (r *RunStats) Log(log logger.Logger, runId string) {
	log.Info(r.GetStats(runId).String())
}

// String will format the stats for general logging.
func (s Stats) String() string {
	return fmt.Sprintf(
		"Stats for run %v "+
			"elapsedTimeSec=%v "+
			"rowsRead=%v "+
			"batchesFlushed=%v "+
			"rowsLoaded=%v "+
			"loadAttempts=%v "+
			"failedAttempts=%v "+
			"rowsPerSecond=%v",
		s.RunId,
		s.ElapsedTimeSec,
		s.RowsRead,
		s.BatchesFlushed,
		s.RowsLoaded,
		s.LoadAttempts,
		s.FailedAttempts,
		s.RowsPerSecond)
}

func getNumSecondsSinceTimeOrOne(t time.Time) int64 {
	s := int64(time.Since(t).Seconds())
	if s < 1 {
		return 1
	}
	return s
}
