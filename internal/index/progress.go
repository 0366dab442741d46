package index

import (
	"time"

	"github.com/google/uuid"
)

// Stage names the pipeline step a Progress message was sent from.
type Stage string

const (
	StageScanning Stage = "scanning"
	StageWriting  Stage = "writing"
	StageDone     Stage = "done"
)

// Progress is a point-in-time view of a run. Total is 0 while unknown.
type Progress struct {
	RunID       uuid.UUID
	Stage       Stage
	Processed   int
	Total       int
	CurrentPath string
	Elapsed     time.Duration
}

// Percent returns completion in [0, 100], or -1 when Total is unknown.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return -1
	}
	return min(100, float64(p.Processed)*100/float64(p.Total))
}

// reporter rate-limits progress messages. It is used from the batch stage
// goroutine only; total is written by the counting goroutine.
type reporter struct {
	ch       chan Progress
	runID    uuid.UUID
	every    int
	interval time.Duration
	now      func() time.Time

	start     time.Time
	lastSent  time.Time
	sinceLast int
	total     func() int
}

func newReporter(ch chan Progress, runID uuid.UUID, every int, interval time.Duration, now func() time.Time, total func() int) *reporter {
	t := now()
	return &reporter{
		ch:       ch,
		runID:    runID,
		every:    every,
		interval: interval,
		now:      now,
		start:    t,
		lastSent: t,
		total:    total,
	}
}

// tick records one processed file and emits a message when either limit
// is reached. Zero limits disable that trigger.
func (r *reporter) tick(processed int, path string, stage Stage) {
	r.sinceLast++
	t := r.now()
	due := (r.every > 0 && r.sinceLast >= r.every) ||
		(r.interval > 0 && t.Sub(r.lastSent) >= r.interval)
	if !due {
		return
	}
	r.sinceLast = 0
	r.lastSent = t
	r.trySend(r.message(processed, path, stage, t))
}

// final always leaves a message in the channel, displacing a queued one
// if the buffer is full.
func (r *reporter) final(processed int) {
	msg := r.message(processed, "", StageDone, r.now())
	select {
	case r.ch <- msg:
		return
	default:
	}
	select {
	case <-r.ch:
	default:
	}
	r.trySend(msg)
}

func (r *reporter) message(processed int, path string, stage Stage, t time.Time) Progress {
	return Progress{
		RunID:       r.runID,
		Stage:       stage,
		Processed:   processed,
		Total:       r.total(),
		CurrentPath: path,
		Elapsed:     t.Sub(r.start),
	}
}

// trySend never blocks; a slow consumer loses updates.
func (r *reporter) trySend(p Progress) {
	select {
	case r.ch <- p:
	default:
	}
}
