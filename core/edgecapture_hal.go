package core

// CaptureClockSource selects what clocks an edge-capture channel's
// internal timestamp counter.
type CaptureClockSource uint8

const (
	// ClockSourceCaptureTimer: the shared capture clock both drives and
	// synchronizes the channel timestamp counter (the counter is reset
	// when the clock's sync output asserts).
	ClockSourceCaptureTimer CaptureClockSource = iota
	// ClockSourcePeripheral: the raw peripheral bus clock.
	ClockSourcePeripheral
)

// EdgeCaptureDriver is the edge-detector capability. Whenever a logic
// level change of the started edge type occurs on a channel's input
// pin, the current timestamp counter value is latched into the
// channel's capture buffer, from where a DMA mover can drain it.
//
// Directional edge-capture hardware cannot natively report undirected
// transitions; interrupting on EdgeAny needs the change-notification
// capability instead.
type EdgeCaptureDriver interface {
	// Reset returns a channel to its default, inactive configuration.
	// Safe to call on an already-idle channel.
	Reset(ch Channel)

	// Configure selects the timestamp clock source for a channel.
	Configure(ch Channel, src CaptureClockSource)

	// Start begins latching timestamps for edges of the given type.
	// Until the clock source's sync output has started the timestamp
	// counter, detected edges latch a value of zero.
	Start(ch Channel, edge Edge)

	// ReadLatched pops the oldest latched capture value. Used to
	// discard a stale capture latched before the clock started.
	ReadLatched(ch Channel) uint16

	// EnableInterrupt invokes callback from interrupt context when the
	// channel latches a capture. The trigger edge type is set via
	// Start and cannot be EdgeAny.
	EnableInterrupt(ch Channel, callback func(Channel))

	// DisableInterrupt stops capture interrupts on the channel.
	DisableInterrupt(ch Channel)
}

// Global singleton used by core code.
var edgeCaptureDriver EdgeCaptureDriver

// SetEdgeCaptureDriver is called by target-specific code to register
// its driver.
func SetEdgeCaptureDriver(d EdgeCaptureDriver) {
	edgeCaptureDriver = d
}

// MustEdgeCapture returns the configured driver or panics if missing.
func MustEdgeCapture() EdgeCaptureDriver {
	if edgeCaptureDriver == nil {
		panic("edge capture driver not configured")
	}
	return edgeCaptureDriver
}
