//go:build rp2040

package main

import (
	"device/rp"
	"machine"
	"runtime/interrupt"

	"picolab/core"
)

// Analog inputs CH1-CH4 on the four ADC-capable pins.
var analogInputPins = [core.ChannelCount]machine.Pin{
	machine.ADC0, // GPIO26
	machine.ADC1, // GPIO27
	machine.ADC2, // GPIO28
	machine.ADC3, // GPIO29
}

const (
	adcCSEn        = 1 << 0
	adcCSStartMany = 1 << 3
	adcCSAinselLSB = 12
	adcCSRrobinLSB = 16

	adcFCSEn        = 1 << 0
	adcFCSDreqEn    = 1 << 3
	adcFCSThreshLSB = 24

	adcRefVolts = 3.3
)

// RPADC implements core.AnalogConverterDriver. The converter is
// natively 12-bit; 10-bit sessions right-shift samples by two, in
// ReadLatest for trigger evaluation and in the DMA completion hook for
// the captured buffer. Multi-channel sampling is hardware round-robin,
// which approximates simultaneous sampling to within one conversion
// time at the rates this instrument supports.
type RPADC struct {
	cfg      core.ADCConfig
	shift    uint8
	running  bool
	callback func()
	rrIndex  uint8
	latest   [core.ChannelCount]uint16
}

var adcDriver *RPADC

func NewRPADC() *RPADC {
	machine.InitADC()
	for _, pin := range analogInputPins {
		machine.ADC{Pin: pin}.Configure(machine.ADCConfig{})
	}
	d := &RPADC{}
	return d
}

func initADCInterrupt() {
	intr := interrupt.New(rp.IRQ_ADC_IRQ_FIFO, adcISR)
	intr.Enable()
}

func adcISR(interrupt.Interrupt) {
	d := adcDriver
	if d == nil {
		return
	}
	// Drain the FIFO, tracking which round-robin slot each result
	// belongs to.
	for rp.ADC.FCS.Get()>>16&0xF != 0 {
		sample := uint16(rp.ADC.FIFO.Get()) >> d.shift
		d.latest[d.rrIndex] = sample
		d.rrIndex++
		if d.rrIndex >= d.cfg.Channels {
			d.rrIndex = 0
		}
	}
	if d.callback != nil {
		d.callback()
	}
}

func (d *RPADC) Reset() {
	rp.ADC.CS.ClearBits(adcCSStartMany)
	rp.ADC.FCS.ClearBits(adcFCSEn | adcFCSDreqEn)
	rp.ADC.INTE.Set(0)
	d.running = false
	d.callback = nil
	d.rrIndex = 0
}

func (d *RPADC) Configure(cfg core.ADCConfig) {
	d.cfg = cfg
	d.shift = 0
	if cfg.Resolution == core.Res10Bit {
		d.shift = 2
	}
	d.rrIndex = 0
}

func (d *RPADC) Start() {
	// Pace conversions from the capture clock's programmed period.
	div := captureClock.sampleDivider()
	rp.ADC.DIV.Set(div << 8)

	// FIFO feeds both the DMA movers and the trigger-evaluation
	// interrupt; threshold 1 raises DREQ/IRQ per sample.
	rp.ADC.FCS.Set(adcFCSEn | adcFCSDreqEn | 1<<adcFCSThreshLSB)

	first := uint32(d.cfg.Channel0Input)
	rrobin := uint32(0)
	if d.cfg.Channels > 1 {
		rrobin = (1<<d.cfg.Channels - 1) << adcCSRrobinLSB
	}
	rp.ADC.CS.Set(adcCSEn | first<<adcCSAinselLSB | rrobin | adcCSStartMany)
	d.running = true
}

func (d *RPADC) EnableInterrupt(callback func()) {
	d.callback = callback
	rp.ADC.INTE.Set(1)
}

func (d *RPADC) DisableInterrupt() {
	rp.ADC.INTE.Set(0)
	d.callback = nil
}

func (d *RPADC) ReadLatest(ch core.Channel) uint16 {
	return d.latest[ch]
}

func (d *RPADC) PinRange(ch core.Channel) float32 {
	return adcRefVolts
}

func (d *RPADC) PinOffset(ch core.Channel) float32 {
	return 0
}

// normalize right-shifts a captured region into the session resolution.
// Called from the DMA completion interrupt for converter-fed channels.
func (d *RPADC) normalize(samples []uint16) {
	if d.shift == 0 {
		return
	}
	for i := range samples {
		samples[i] >>= d.shift
	}
}
