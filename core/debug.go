package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// InstrumentEvent captures a capture-pipeline event for post-mortem
// analysis. Recording is non-blocking so it is safe from interrupt
// callbacks.
type InstrumentEvent struct {
	EventType uint8
	Channel   uint8  // Originating channel, 0xFF when not applicable
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtTriggerArmed  = 1 // trigger armed, waiting
	EvtTriggerFired  = 2 // armed trigger condition met
	EvtCaptureFired  = 3 // fire sequence executed
	EvtChannelDone   = 4 // channel DMA completion
	EvtCaptureStop   = 5 // session aborted by stop
	EvtTriggerExpiry = 6 // trigger timeout escape
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event capture ring buffer (non-blocking, for post-mortem)
	eventRing     [EventRingSize]InstrumentEvent
	eventRingHead uint8
	eventsEnabled bool = true

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16) // Buffer 16 messages
	go debugOutputWorker()
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
// Blocks if debug is enabled (use DebugAsync for non-blocking)
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
			// Channel full, drop message (non-blocking)
		}
	}
}

// RecordEvent captures a pipeline event in the ring buffer.
// Always non-blocking and cheap enough for interrupt context.
func RecordEvent(eventType, channel uint8, value1, value2 uint32) {
	if !eventsEnabled {
		return
	}
	idx := eventRingHead
	eventRing[idx] = InstrumentEvent{
		EventType: eventType,
		Channel:   channel,
		Value1:    value1,
		Value2:    value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// DumpEventRing outputs the event ring buffer (call on shutdown/error)
// This should be called after stopping time-critical code
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")

	// Read from oldest to newest
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		idx := (start + i) % EventRingSize
		evt := &eventRing[idx]
		if evt.EventType == 0 {
			continue // Empty slot
		}

		var name string
		switch evt.EventType {
		case EvtTriggerArmed:
			name = "TRIG_ARMED"
		case EvtTriggerFired:
			name = "TRIG_FIRED"
		case EvtCaptureFired:
			name = "CAPTURE_FIRE"
		case EvtChannelDone:
			name = "CHANNEL_DONE"
		case EvtCaptureStop:
			name = "CAPTURE_STOP"
		case EvtTriggerExpiry:
			name = "TRIG_EXPIRY"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[EVENTS] " + name +
			" ch=" + itoa(int(evt.Channel)) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	for i := range eventRing {
		eventRing[i] = InstrumentEvent{}
	}
	eventRingHead = 0
}
