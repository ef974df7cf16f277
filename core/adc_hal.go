package core

// ADCResolution selects the analog converter's sample width.
type ADCResolution uint8

const (
	Res10Bit ADCResolution = iota
	Res12Bit
)

// Counts returns the number of distinct output codes for a resolution.
func (r ADCResolution) Counts() uint16 {
	if r == Res12Bit {
		return 4096
	}
	return 1024
}

// ADCTriggerSource selects what paces analog conversions.
type ADCTriggerSource uint8

const (
	// ADCTriggerClock: conversions start on the capture clock's period
	// match, one sample set per clock period.
	ADCTriggerClock ADCTriggerSource = iota
	// ADCTriggerAuto: conversions free-run back to back.
	ADCTriggerAuto
)

// ADCConfig describes one conversion session.
type ADCConfig struct {
	// Channels is the number of analog inputs sampled simultaneously
	// per conversion, 1 to ChannelCount.
	Channels uint8
	// Channel0Input selects the signal routed to converter channel 0.
	Channel0Input Channel
	// Simultaneous samples all enabled inputs at the same instant
	// rather than sequentially.
	Simultaneous bool
	Trigger      ADCTriggerSource
	Resolution   ADCResolution
}

// AnalogConverterDriver is the analog-to-digital capability. Completed
// conversions land in per-channel result registers from where a DMA
// mover drains them; ReadLatest exposes the newest result directly for
// trigger evaluation.
type AnalogConverterDriver interface {
	// Reset stops conversions and returns the converter to default
	// configuration. Safe to call when idle.
	Reset()

	// Configure applies a conversion session configuration. The
	// converter stays stopped until Start.
	Configure(cfg ADCConfig)

	// Start enables the converter; conversions begin per the configured
	// trigger source.
	Start()

	// EnableInterrupt invokes callback from interrupt context after
	// each completed conversion set.
	EnableInterrupt(callback func())

	// DisableInterrupt stops conversion-complete interrupts. Conversions
	// themselves continue.
	DisableInterrupt()

	// ReadLatest returns the most recent conversion result for a
	// converter channel.
	ReadLatest(ch Channel) uint16

	// PinRange returns the full-scale input range in volts for the
	// analog input behind a converter channel.
	PinRange(ch Channel) float32

	// PinOffset returns the input offset in volts (the voltage mapping
	// to code zero) for the analog input behind a converter channel.
	PinOffset(ch Channel) float32
}

var analogConverterDriver AnalogConverterDriver

// SetAnalogConverterDriver is called by target-specific code to register
// its driver.
func SetAnalogConverterDriver(d AnalogConverterDriver) {
	analogConverterDriver = d
}

// MustAnalogConverter returns the configured driver or panics if missing.
func MustAnalogConverter() AnalogConverterDriver {
	if analogConverterDriver == nil {
		panic("analog converter driver not configured")
	}
	return analogConverterDriver
}
