package core

// Gain is a programmable-gain amplifier setting. The values index the
// amplifier's gain register; Factor maps them to the amplification
// applied to the input signal.
type Gain uint8

const (
	GainX1 Gain = iota
	GainX2
	GainX4
	GainX5
	GainX8
	GainX10
	GainX16
	GainX32

	gainCount
)

// Factor returns the signal amplification for a gain setting.
func (g Gain) Factor() float32 {
	switch g {
	case GainX1:
		return 1
	case GainX2:
		return 2
	case GainX4:
		return 4
	case GainX5:
		return 5
	case GainX8:
		return 8
	case GainX10:
		return 10
	case GainX16:
		return 16
	case GainX32:
		return 32
	}
	return 1
}

// PGADriver programs the gain amplifiers in front of the analog inputs.
// Only some inputs have an amplifier; SetGain returns ErrInvalidArgument
// for the ones that do not.
type PGADriver interface {
	SetGain(ch Channel, g Gain) error
}

var pgaDriver PGADriver

// SetPGADriver is called by target-specific code to register its driver.
func SetPGADriver(d PGADriver) {
	pgaDriver = d
}

// MustPGA returns the configured driver or panics if missing.
func MustPGA() PGADriver {
	if pgaDriver == nil {
		panic("pga driver not configured")
	}
	return pgaDriver
}
