//go:build rp2040

package main

import (
	"errors"
	"machine"
	"sync"

	"picolab/core"
)

// SPI bus pinouts. Bus 0 carries the gain amplifiers; bus 1 is routed
// to the expansion header.
type spiBusConfig struct {
	spi  *machine.SPI
	sck  machine.Pin
	mosi machine.Pin
	miso machine.Pin
	name string
}

var rpSPIBuses = map[core.SPIBusID]spiBusConfig{
	0: {spi: machine.SPI0, sck: machine.GPIO18, mosi: machine.GPIO19, miso: machine.GPIO16, name: "spi0"},
	1: {spi: machine.SPI1, sck: machine.GPIO14, mosi: machine.GPIO15, miso: machine.GPIO12, name: "spi1"},
}

// RPSPIDriver implements core.SPIDriver using TinyGo's machine.SPI.
type RPSPIDriver struct {
	mu sync.Mutex

	// Configured buses, to avoid reconfiguration on repeated use.
	configuredBuses map[core.SPIBusID]*spiInstance
}

type spiInstance struct {
	spi  *machine.SPI
	mode core.SPIMode
	rate uint32
}

func NewRPSPIDriver() *RPSPIDriver {
	return &RPSPIDriver{
		configuredBuses: make(map[core.SPIBusID]*spiInstance),
	}
}

// ConfigureBus sets up a hardware SPI bus with specified parameters.
func (d *RPSPIDriver) ConfigureBus(config core.SPIConfig) (interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if inst, exists := d.configuredBuses[config.BusID]; exists {
		if inst.mode == config.Mode && inst.rate == config.Rate {
			return inst, nil
		}
	}

	busConfig, exists := rpSPIBuses[config.BusID]
	if !exists {
		return nil, errors.New("invalid SPI bus ID")
	}
	if config.Mode > 3 {
		return nil, errors.New("invalid SPI mode")
	}

	err := busConfig.spi.Configure(machine.SPIConfig{
		Frequency: config.Rate,
		SCK:       busConfig.sck,
		SDO:       busConfig.mosi,
		SDI:       busConfig.miso,
		Mode:      uint8(config.Mode),
	})
	if err != nil {
		return nil, err
	}

	inst := &spiInstance{spi: busConfig.spi, mode: config.Mode, rate: config.Rate}
	d.configuredBuses[config.BusID] = inst
	return inst, nil
}

// Transfer performs a full-duplex SPI transfer.
func (d *RPSPIDriver) Transfer(busHandle interface{}, txData []byte, rxData []byte) error {
	inst, ok := busHandle.(*spiInstance)
	if !ok {
		return errors.New("invalid SPI bus handle")
	}
	if len(txData) != len(rxData) {
		return errors.New("tx and rx buffer lengths must match")
	}
	return inst.spi.Tx(txData, rxData)
}
