package core

// ChangeNotifierDriver is the change-notification capability: an
// interrupt on any logic level change on an input pin, regardless of
// direction. Used to arm an EdgeAny trigger, which the directional
// edge-capture hardware cannot express.
type ChangeNotifierDriver interface {
	// Reset disables all change notifications. Safe to call when
	// nothing is armed.
	Reset()

	// EnableInterrupt invokes callback from interrupt context on the
	// next level change on the channel's input pin.
	EnableInterrupt(ch Channel, callback func(Channel))
}

var changeNotifierDriver ChangeNotifierDriver

// SetChangeNotifierDriver is called by target-specific code to register
// its driver.
func SetChangeNotifierDriver(d ChangeNotifierDriver) {
	changeNotifierDriver = d
}

// MustChangeNotifier returns the configured driver or panics if missing.
func MustChangeNotifier() ChangeNotifierDriver {
	if changeNotifierDriver == nil {
		panic("change notifier driver not configured")
	}
	return changeNotifierDriver
}
