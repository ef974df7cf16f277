//go:build rp2040

package main

import (
	"machine"

	"picolab/core"
)

// RPPinStates implements core.PinStateDriver over the capture inputs.
// Levels are read from the pad side of the input override so a
// falling-edge session's inversion trick never leaks into the state
// snapshot.
type RPPinStates struct{}

func (RPPinStates) ReadStates() uint8 {
	var states uint8
	for ch := core.Channel(0); ch < core.ChannelCount; ch++ {
		if gpioStatus(captureInputPins[ch]).Get()&gpioStatusInFromPad != 0 {
			states |= 1 << ch
		}
	}
	return states
}

// RPChangeNotifier implements core.ChangeNotifierDriver with a
// both-edges GPIO interrupt on the selected capture input.
type RPChangeNotifier struct {
	armed    [core.ChannelCount]bool
	callback func(core.Channel)
}

var changeNotifier = &RPChangeNotifier{}

func (n *RPChangeNotifier) Reset() {
	for ch := core.Channel(0); ch < core.ChannelCount; ch++ {
		if n.armed[ch] {
			captureInputPins[ch].SetInterrupt(0, nil)
			n.armed[ch] = false
		}
	}
	n.callback = nil
}

func (n *RPChangeNotifier) EnableInterrupt(ch core.Channel, callback func(core.Channel)) {
	n.callback = callback
	n.armed[ch] = true
	captureInputPins[ch].SetInterrupt(machine.PinRising|machine.PinFalling, func(machine.Pin) {
		if cb := n.callback; cb != nil {
			cb(ch)
		}
	})
}
