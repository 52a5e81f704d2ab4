package player

import (
	"errors"
	"math"
	"sort"
)

// Playback rate bounds and manual step size.
const (
	MinRate     = 0.2
	MaxRate     = 2.0
	RateStep    = 0.1
	DefaultRate = 1.0
)

// ErrRateAutomated is returned when a manual rate adjustment is attempted
// while automated speed is enabled. Callers must disable automation first.
var ErrRateAutomated = errors.New("playback rate is automated")

// ComplexitySegment is a time range tagged with the playback rate to apply
// while the playhead is inside it. Segments come from content metadata.
type ComplexitySegment struct {
	Start float64
	End   float64
	Score float64
}

// RateController derives the effective playback rate from either the user's
// manual rate or, when automation is enabled, from complexity segments.
// It is not safe for concurrent use; the engine serializes access.
type RateController struct {
	segments  []ComplexitySegment
	manual    float64
	automated bool
	effective float64
}

// NewRateController builds a controller over the given segments. Segments are
// copied and sorted by start time; when ranges overlap, the earliest-starting
// segment wins. manual is quantized to one decimal place and clamped.
func NewRateController(segments []ComplexitySegment, manual float64) *RateController {
	sorted := make([]ComplexitySegment, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	m := QuantizeRate(clampRate(manual))
	return &RateController{
		segments:  sorted,
		manual:    m,
		effective: m,
	}
}

// Manual returns the manual rate, which is restored when automation turns off.
func (c *RateController) Manual() float64 { return c.manual }

// Effective returns the rate currently applied to playback.
func (c *RateController) Effective() float64 { return c.effective }

// Automated reports whether the rate is derived from complexity segments.
func (c *RateController) Automated() bool { return c.automated }

// Recompute derives the effective rate for the given position. With
// automation off it leaves the effective rate untouched. With automation on,
// the first segment containing the position supplies the rate; positions
// outside every segment fall back to 1.0.
func (c *RateController) Recompute(position float64) float64 {
	if !c.automated {
		return c.effective
	}
	c.effective = DefaultRate
	for _, seg := range c.segments {
		if seg.Start <= position && position <= seg.End {
			c.effective = seg.Score
			break
		}
	}
	return c.effective
}

// SetAutomated toggles automation. Turning it on recomputes immediately for
// the given position; turning it off restores the manual rate exactly as it
// was before automation was enabled.
func (c *RateController) SetAutomated(on bool, position float64) float64 {
	c.automated = on
	if on {
		return c.Recompute(position)
	}
	c.effective = c.manual
	return c.effective
}

// SlowDown lowers the manual rate one step. It fails while automated.
func (c *RateController) SlowDown() (float64, error) {
	return c.step(-RateStep)
}

// SpeedUp raises the manual rate one step. It fails while automated.
func (c *RateController) SpeedUp() (float64, error) {
	return c.step(RateStep)
}

func (c *RateController) step(delta float64) (float64, error) {
	if c.automated {
		return c.effective, ErrRateAutomated
	}
	c.manual = QuantizeRate(clampRate(c.manual + delta))
	c.effective = c.manual
	return c.effective, nil
}

// QuantizeRate rounds a rate to one decimal place. Manual rates move in 0.1
// steps, so the quantized value is both applied and persisted; this keeps
// repeated increments from accumulating floating-point drift.
func QuantizeRate(r float64) float64 {
	return math.Round(r*10) / 10
}

func clampRate(r float64) float64 {
	if r < MinRate {
		return MinRate
	}
	if r > MaxRate {
		return MaxRate
	}
	return r
}
