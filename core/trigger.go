package core

// LevelTrigger holds the armed state of an oscilloscope level trigger.
// Evaluate runs in the analog converter's conversion-complete interrupt;
// the main context only touches the struct while the converter interrupt
// is disabled (before arming or after firing), so no locking is needed.
type LevelTrigger struct {
	// Channel is the converter channel whose samples are compared.
	Channel Channel
	// Level is the threshold in converter counts, clamped to the open
	// interval (0, resolution) at arm time so that both a rising and a
	// falling crossing are representable.
	Level uint16
	// Polarity true waits for a sample at or above Level, false for one
	// below. An undirected trigger seeds Polarity opposite the current
	// input state and latches Ready immediately.
	Polarity bool
	// Ready latches once a sample on the wrong side of the threshold
	// has been seen, so a directed trigger fires on a crossing rather
	// than on an input that is already past the level.
	Ready bool
	// Waiting counts evaluations since arming; when it exceeds Timeout
	// the capture fires regardless of the input.
	Waiting uint32
	// Timeout is the evaluation-count limit, scaled by the host from
	// wall time and the configured sample rate. Zero disables the
	// trigger timeout escape.
	Timeout uint32
}

// Evaluate processes one conversion result and reports whether the
// capture should fire now.
func (t *LevelTrigger) Evaluate(sample uint16) bool {
	t.Waiting++
	if t.Timeout != 0 && t.Waiting > t.Timeout {
		return true
	}
	above := sample >= t.Level
	if above == t.Polarity {
		return t.Ready
	}
	// Wrong side of the threshold: the next matching sample is a
	// genuine crossing.
	t.Ready = true
	return false
}
