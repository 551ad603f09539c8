package oscillator

import (
	"time"
)

// CollapseOutcome describes the result of one collapse evaluation.
type CollapseOutcome string

const (
	// OutcomeBelow: never collapsed and coherence below threshold.
	OutcomeBelow CollapseOutcome = "below"
	// OutcomeCollapsed: this evaluation crossed the threshold.
	OutcomeCollapsed CollapseOutcome = "collapsed"
	// OutcomeMaintained: already collapsed, coherence still at threshold.
	OutcomeMaintained CollapseOutcome = "maintained"
	// OutcomeDecayed: already collapsed, coherence fell below threshold.
	// The collapsed flag stays set; only Reset reverts it.
	OutcomeDecayed CollapseOutcome = "decayed"
)

// CollapseCondition is a two-state machine driven by comparing coherence
// to a fixed threshold. Collapse is sticky: once entered it persists until
// Reset, while Evaluate keeps reporting whether the coherence that backed
// it is maintained or has decayed.
type CollapseCondition struct {
	threshold float64

	collapsed          bool
	collapsedAt        time.Time
	activatedCoherence float64
}

// NewCollapseCondition creates a condition with the given threshold.
// The threshold is validated by the owning Oscillator's config.
func NewCollapseCondition(threshold float64) *CollapseCondition {
	return &CollapseCondition{threshold: threshold}
}

// Evaluate compares coherence to the threshold and advances the state
// machine. The first crossing records the activating coherence and the
// supplied timestamp.
func (cc *CollapseCondition) Evaluate(coherence float64, timestamp time.Time) CollapseOutcome {
	if cc.collapsed {
		if coherence >= cc.threshold {
			return OutcomeMaintained
		}
		return OutcomeDecayed
	}

	if coherence >= cc.threshold {
		cc.collapsed = true
		cc.collapsedAt = timestamp
		cc.activatedCoherence = coherence
		return OutcomeCollapsed
	}

	return OutcomeBelow
}

// Collapsed reports whether the condition has fired.
func (cc *CollapseCondition) Collapsed() bool {
	return cc.collapsed
}

// CollapsedAt returns when collapse occurred (zero time if it has not).
func (cc *CollapseCondition) CollapsedAt() time.Time {
	return cc.collapsedAt
}

// ActivatingCoherence returns the coherence recorded at collapse.
func (cc *CollapseCondition) ActivatingCoherence() float64 {
	return cc.activatedCoherence
}

// Threshold returns the configured threshold.
func (cc *CollapseCondition) Threshold() float64 {
	return cc.threshold
}

// Duration returns how long the condition has been collapsed.
func (cc *CollapseCondition) Duration(now time.Time) time.Duration {
	if !cc.collapsed {
		return 0
	}
	return now.Sub(cc.collapsedAt)
}

// Force collapses the condition unconditionally, recording the given
// coherence (the threshold itself when zero). Used for seeding and tests.
func (cc *CollapseCondition) Force(coherence float64) {
	cc.collapsed = true
	cc.collapsedAt = time.Now().UTC()
	if coherence == 0 {
		coherence = cc.threshold
	}
	cc.activatedCoherence = coherence
}

// Reset returns to the not-collapsed state unconditionally.
func (cc *CollapseCondition) Reset() {
	cc.collapsed = false
	cc.collapsedAt = time.Time{}
	cc.activatedCoherence = 0
}
