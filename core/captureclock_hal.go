package core

// ClockPrescaler divides the capture clock's input frequency. The
// hardware supports a fixed factor table; escalation walks it in order
// until the programmed period fits the 16-bit period register.
type ClockPrescaler uint8

const (
	Prescaler1 ClockPrescaler = iota
	Prescaler8
	Prescaler64
	Prescaler256

	prescalerCount
)

// Factor returns the division factor for a prescaler setting.
func (p ClockPrescaler) Factor() uint32 {
	switch p {
	case Prescaler1:
		return 1
	case Prescaler8:
		return 8
	case Prescaler64:
		return 64
	case Prescaler256:
		return 256
	}
	return 1
}

// CaptureClockDriver is the shared capture clock capability: one
// instance per instrument session. It paces the analog converter and
// synchronizes the edge-capture timestamp counters, which begin exactly
// one clock tick after Start.
type CaptureClockDriver interface {
	// Reset stops the clock and returns it to default configuration.
	// Safe to call on an already-idle clock.
	Reset()

	// Start starts the clock. Downstream timestamp counters start when
	// the sync output asserts on the first period match.
	Start()

	// SetPeriod sets the period register. The sync output is asserted
	// high on period match.
	SetPeriod(ticks uint16)

	// SetPrescaler sets the input clock division factor.
	SetPrescaler(p ClockPrescaler)

	// Frequency returns the undivided input clock frequency in Hz.
	Frequency() uint32
}

var captureClockDriver CaptureClockDriver

// SetCaptureClockDriver is called by target-specific code to register
// its driver.
func SetCaptureClockDriver(d CaptureClockDriver) {
	captureClockDriver = d
}

// MustCaptureClock returns the configured driver or panics if missing.
func MustCaptureClock() CaptureClockDriver {
	if captureClockDriver == nil {
		panic("capture clock driver not configured")
	}
	return captureClockDriver
}
