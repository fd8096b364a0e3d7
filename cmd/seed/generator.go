package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"request-monitor/src/models"
)

var (
	seedUsers    = []string{"alice", "bob", "carol", "dave", "erin", "frank"}
	seedStatuses = []string{"ok", "ok", "ok", "ok", "ok", "ok", "ok", "ok", "failed", "timeout"}
	seedMessages = map[string]string{
		"failed":  "I/O error on target volume",
		"timeout": "dispatcher timed out waiting for a worker",
	}
)

// -----------------------------------------------------------------------------

// Generator produces synthetic request_log rows with a daily traffic cycle.
type Generator struct {
	Services      []string
	RatePerMinute float64
	rng           *rand.Rand
}

// -----------------------------------------------------------------------------

func NewGenerator(services []string, ratePerMinute float64, seed uint64) *Generator {
	return &Generator{
		Services:      services,
		RatePerMinute: ratePerMinute,
		rng:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// -----------------------------------------------------------------------------

// Range generates rows queued in [from, to), minute by minute.
func (g *Generator) Range(from, to time.Time) []models.MLogEntry {
	var entries []models.MLogEntry
	for minute := from.Truncate(time.Minute); minute.Before(to); minute = minute.Add(time.Minute) {
		for _, svc := range g.Services {
			n := g.requestsAt(minute)
			for i := 0; i < n; i++ {
				queued := minute.Add(time.Duration(g.rng.IntN(60)) * time.Second)
				if !queued.Before(to) || queued.Before(from) {
					continue
				}
				entries = append(entries, g.entry(svc, queued))
			}
		}
	}
	return entries
}

// -----------------------------------------------------------------------------

// requestsAt follows a sine-shaped day peaking mid-afternoon UTC.
func (g *Generator) requestsAt(t time.Time) int {
	hour := float64(t.Hour()) + float64(t.Minute())/60
	load := 0.55 + 0.45*math.Sin((hour-9)/24*2*math.Pi)
	mean := g.RatePerMinute * load
	return int(math.Round(mean + g.rng.NormFloat64()*math.Sqrt(math.Max(mean, 0.1))))
}

// -----------------------------------------------------------------------------

func (g *Generator) entry(service string, queued time.Time) models.MLogEntry {
	op := "read"
	if g.rng.Float64() < 0.3 {
		op = "write"
	}
	status := seedStatuses[g.rng.IntN(len(seedStatuses))]

	queueMs := g.rng.ExpFloat64() * 800
	latencyMs := 50 + g.rng.ExpFloat64()*400
	if op == "write" {
		latencyMs *= 1.8
	}

	dispatched := queued.Add(time.Duration(queueMs) * time.Millisecond)
	completed := dispatched.Add(time.Duration(latencyMs) * time.Millisecond)

	e := models.MLogEntry{
		Service:     service,
		Username:    seedUsers[g.rng.IntN(len(seedUsers))],
		Operation:   op,
		FileName:    fmt.Sprintf("/data/%s/%06d.dat", service, g.rng.IntN(1000000)),
		Status:      status,
		QueuedAt:    queued.Unix(),
		CompletedAt: completed.Unix(),
		QueueMs:     queueMs,
		LatencyMs:   latencyMs,
		Message:     seedMessages[status],
	}
	// Timed-out requests never reach a worker
	if status != "timeout" {
		e.DispatchedAt = dispatched.Unix()
		e.Bytes = int64(g.rng.IntN(64<<20) + 1)
	}
	return e
}
