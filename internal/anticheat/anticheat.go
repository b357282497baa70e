// Package anticheat scores a player's inline-query revision velocity,
// adapting the teacher's poker bot-detection heuristics
// (internal/fraud/bot_detector.go in the retrieval pack) down to the
// single signal mau actually has data for: how fast
// Player.AntiCheat (spec §3) climbs between moves.
package anticheat

import (
	"math"
	"sync"
	"time"
)

// Config mirrors the teacher's BotDetectionConfig shape: named
// thresholds and a blend weight rather than magic numbers scattered
// through the scorer.
type Config struct {
	// MinSamples is the minimum number of recorded revisions before a
	// score is considered meaningful.
	MinSamples int
	// SuspiciousInterval is the move-to-move gap below which
	// revisions are considered inhumanly fast.
	SuspiciousInterval time.Duration
	// HeuristicWeight blends the fast-interval ratio against the
	// interval-consistency score (1-HeuristicWeight) in the final
	// score.
	HeuristicWeight float64
	// FlagThreshold is the score at or above which Flag reports true.
	FlagThreshold float64
}

// DefaultConfig returns the thresholds used in production.
func DefaultConfig() Config {
	return Config{
		MinSamples:         5,
		SuspiciousInterval: 120 * time.Millisecond,
		HeuristicWeight:    0.6,
		FlagThreshold:      0.75,
	}
}

// sample is one observed revision bump for a player.
type sample struct {
	revision int64
	at       time.Time
}

// Result reports a player's current velocity score, mirroring the
// teacher's BotDetectionResult envelope (score + component breakdown +
// a boolean verdict) without the poker-only feature set.
type Result struct {
	PlayerID    string
	Score       float64
	FastRatio   float64
	LowVariance float64 // high when interval spread is suspiciously tight
	SampleCount int
	Flagged     bool
}

// Scorer tracks per-player revision timestamps and produces a velocity
// score in [0,1]. One Scorer instance is shared across a SessionManager
// (internal/mau.SessionManager), keyed by player ID, the same way the
// teacher's BotDetector is shared across tables.
type Scorer struct {
	cfg Config

	mu      sync.Mutex
	history map[string][]sample
	window  int
}

// NewScorer constructs a Scorer retaining up to window samples per
// player (oldest dropped first), so memory stays bounded for
// long-lived sessions.
func NewScorer(cfg Config, window int) *Scorer {
	if window <= 0 {
		window = 50
	}
	return &Scorer{cfg: cfg, history: make(map[string][]sample), window: window}
}

// Record stores an observed AntiCheat revision for playerID at ts and
// returns the freshly computed Result. Call this each time
// mau.Player.BumpAntiCheat is invoked on the engine side.
func (s *Scorer) Record(playerID string, revision int64, ts time.Time) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := append(s.history[playerID], sample{revision: revision, at: ts})
	if len(h) > s.window {
		h = h[len(h)-s.window:]
	}
	s.history[playerID] = h

	return s.score(playerID, h)
}

// Score returns the current Result for playerID without recording a
// new sample.
func (s *Scorer) Score(playerID string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score(playerID, s.history[playerID])
}

// Forget drops all recorded history for playerID, so that a later
// Record starts from an empty history.
func (s *Scorer) Forget(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, playerID)
}

func (s *Scorer) score(playerID string, h []sample) Result {
	res := Result{PlayerID: playerID, SampleCount: len(h)}
	if len(h) < s.cfg.MinSamples || len(h) < 2 {
		return res
	}

	intervals := make([]float64, 0, len(h)-1)
	fast := 0
	for i := 1; i < len(h); i++ {
		d := h[i].at.Sub(h[i-1].at)
		intervals = append(intervals, float64(d))
		if d < s.cfg.SuspiciousInterval {
			fast++
		}
	}

	res.FastRatio = float64(fast) / float64(len(intervals))
	res.LowVariance = 1 - normalizedStdDev(intervals)
	res.Score = s.cfg.HeuristicWeight*res.FastRatio + (1-s.cfg.HeuristicWeight)*res.LowVariance
	res.Flagged = res.Score >= s.cfg.FlagThreshold
	return res
}

// normalizedStdDev returns the coefficient of variation (stddev/mean)
// of vs, clamped to [0,1], so a low, perfectly scripted spread (bots
// firing at a near-constant cadence) produces a value near 0 and a
// human's naturally erratic pacing produces a value near 1.
func normalizedStdDev(vs []float64) float64 {
	m := mean(vs)
	if m == 0 {
		return 0
	}
	cv := stdDev(vs, m) / m
	if cv > 1 {
		return 1
	}
	return cv
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func stdDev(vs []float64, m float64) float64 {
	if len(vs) < 2 {
		return 0
	}
	var sumSq float64
	for _, v := range vs {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(vs)-1))
}
