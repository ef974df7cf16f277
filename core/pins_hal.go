package core

// PinStateDriver reads the instantaneous logic levels of the digital
// input pins.
type PinStateDriver interface {
	// ReadStates returns the current pin levels, bit i holding the
	// level of channel i's input.
	ReadStates() uint8
}

var pinStateDriver PinStateDriver

// SetPinStateDriver is called by target-specific code to register its
// driver.
func SetPinStateDriver(d PinStateDriver) {
	pinStateDriver = d
}

// MustPinState returns the configured driver or panics if missing.
func MustPinState() PinStateDriver {
	if pinStateDriver == nil {
		panic("pin state driver not configured")
	}
	return pinStateDriver
}
