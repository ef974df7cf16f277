//go:build rp2040

package main

import (
	"machine"

	"picolab/core"
)

// Gain amplifier chip selects. Only CH1 and CH2 carry an amplifier.
var pgaSelectPins = [2]machine.Pin{machine.GPIO20, machine.GPIO21}

// initPGA wires the amplifiers on SPI bus 0 and registers the driver.
func initPGA(spi core.SPIDriver) error {
	var selects [core.ChannelCount]func(bool)
	for i, pin := range pgaSelectPins {
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pin.High() // idle deselected
		p := pin
		selects[i] = func(active bool) {
			// Active low.
			p.Set(!active)
		}
	}

	pga, err := core.NewSPIPGA(spi, 0, selects)
	if err != nil {
		return err
	}
	core.SetPGADriver(pga)
	return nil
}
