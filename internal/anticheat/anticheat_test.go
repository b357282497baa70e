package anticheat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScorerBelowMinSamplesIsUnscored(t *testing.T) {
	s := NewScorer(DefaultConfig(), 50)
	base := time.Unix(0, 0)

	var res Result
	for i := 0; i < 3; i++ {
		res = s.Record("p1", int64(i+1), base.Add(time.Duration(i)*time.Second))
	}
	assert.Zero(t, res.Score)
	assert.False(t, res.Flagged)
}

func TestScorerFlagsConstantFastCadence(t *testing.T) {
	cfg := DefaultConfig()
	s := NewScorer(cfg, 50)
	base := time.Unix(0, 0)

	var res Result
	for i := 0; i < 10; i++ {
		res = s.Record("bot", int64(i+1), base.Add(time.Duration(i)*50*time.Millisecond))
	}
	assert.True(t, res.Flagged, "constant sub-threshold cadence should flag")
	assert.Greater(t, res.FastRatio, 0.9)
}

func TestScorerDoesNotFlagHumanPacing(t *testing.T) {
	cfg := DefaultConfig()
	s := NewScorer(cfg, 50)
	base := time.Unix(0, 0)

	gaps := []time.Duration{
		800 * time.Millisecond, 2100 * time.Millisecond, 450 * time.Millisecond,
		3200 * time.Millisecond, 900 * time.Millisecond, 1600 * time.Millisecond,
		500 * time.Millisecond, 2800 * time.Millisecond,
	}
	ts := base
	var res Result
	res = s.Record("human", 1, ts)
	for i, g := range gaps {
		ts = ts.Add(g)
		res = s.Record("human", int64(i+2), ts)
	}
	assert.False(t, res.Flagged)
}

func TestScorerForgetClearsHistory(t *testing.T) {
	s := NewScorer(DefaultConfig(), 50)
	base := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		s.Record("p1", int64(i+1), base.Add(time.Duration(i)*50*time.Millisecond))
	}
	s.Forget("p1")
	res := s.Score("p1")
	assert.Zero(t, res.SampleCount)
}

func TestScorerWindowTrimsOldSamples(t *testing.T) {
	s := NewScorer(DefaultConfig(), 5)
	base := time.Unix(0, 0)
	for i := 0; i < 20; i++ {
		s.Record("p1", int64(i+1), base.Add(time.Duration(i)*time.Second))
	}
	res := s.Score("p1")
	assert.Equal(t, 5, res.SampleCount)
}
