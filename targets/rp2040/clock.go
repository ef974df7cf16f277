//go:build rp2040

package main

import (
	"device/rp"

	"picolab/core"
)

// The capture timebase is realized inside the edge-capture PIO
// programs: one polling iteration of the capture loop costs three PIO
// cycles, so timestamps tick at clk_sys/3 before prescaling. The "sync
// output" is PIO IRQ flag 4: every capture state machine parks on a
// wait for that flag, and forcing it releases all four counters in the
// same cycle.
const (
	sysClockHz      = 125_000_000
	captureLoopCost = 3
	timebaseHz      = sysClockHz / captureLoopCost

	adcClockHz = 48_000_000
)

// CaptureClock implements core.CaptureClockDriver. Period and prescaler
// are latched here and picked up by the edge-capture and converter
// drivers when their sessions start.
type CaptureClock struct {
	running   bool
	period    uint16
	prescaler core.ClockPrescaler
}

var captureClock = &CaptureClock{}

func (c *CaptureClock) Reset() {
	// Clear the sync flag so re-armed state machines park again.
	rp.PIO0.IRQ.Set(1 << captureSyncIRQ)
	c.running = false
	c.period = 0
	c.prescaler = core.Prescaler1
}

func (c *CaptureClock) Start() {
	c.running = true
	rp.PIO0.IRQ_FORCE.Set(1 << captureSyncIRQ)
}

func (c *CaptureClock) SetPeriod(ticks uint16) {
	c.period = ticks
}

func (c *CaptureClock) SetPrescaler(p core.ClockPrescaler) {
	c.prescaler = p
}

func (c *CaptureClock) Frequency() uint32 {
	return timebaseHz
}

// sampleDivider converts the programmed period into the converter's
// 48MHz divider units (integer part).
func (c *CaptureClock) sampleDivider() uint32 {
	interval := uint64(c.period) * uint64(c.prescaler.Factor())
	return uint32(interval * adcClockHz / timebaseHz)
}
