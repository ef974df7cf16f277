//go:build rp2040

package main

import (
	"machine"
	"runtime/volatile"
	"unsafe"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"picolab/core"
)

// Digital inputs LA1-LA4. One PIO0 state machine per channel runs a
// timestamping loop against the shared timebase.
var captureInputPins = [core.ChannelCount]machine.Pin{
	machine.GPIO10,
	machine.GPIO11,
	machine.GPIO12,
	machine.GPIO13,
}

// captureSyncIRQ is the PIO IRQ flag used as the capture clock's sync
// output (see clock.go).
const captureSyncIRQ = 4

// PIO0 RX FIFO register addresses, one per state machine. DMA drains
// captures from here.
const pio0RXFBase = 0x50200020

func pioRXFAddr(ch core.Channel) uintptr {
	return uintptr(pio0RXFBase + 4*uint32(ch))
}

// IO_BANK0 per-pin status/control, used for the input override trick:
// a falling-edge session runs the rising-edge program with the pad
// input inverted, so one directed program serves both directions.
const ioBank0Base = 0x40014000

func gpioCtrl(pin machine.Pin) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(ioBank0Base) + uintptr(pin)*8 + 4))
}

func gpioStatus(pin machine.Pin) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(ioBank0Base) + uintptr(pin)*8))
}

const (
	gpioCtrlInoverMask   = 0x3 << 16
	gpioCtrlInoverInvert = 0x1 << 16
	gpioStatusInFromPad  = 1 << 17
)

func setInputInvert(pin machine.Pin, invert bool) {
	ctrl := gpioCtrl(pin)
	v := ctrl.Get() &^ uint32(gpioCtrlInoverMask)
	if invert {
		v |= gpioCtrlInoverInvert
	}
	ctrl.Set(v)
}

// Directed edge program (rising; falling runs it with the input
// inverted). X counts down every polling iteration; a capture pushes
// the elapsed count (~x). Raw instruction words, addresses are
// program-relative and fixed by loading at origin 0.
//
//	0: wait 1 irq 4      ; park until the clock's sync flag
//	1: mov x, ~null      ; init timebase counter
//	2: jmp x--, 3        ; tick
//	3: jmp pin, 2        ; drain: still high from before, wait for low
//	4: jmp x--, 5        ; tick
//	5: jmp pin, 7        ; rose: capture
//	6: jmp 4             ; still low
//	7: mov isr, ~x       ; elapsed ticks since sync
//	8: push noblock
//	9: jmp 2
var directedCaptureProgram = []uint16{
	0x20c4, // wait 1 irq 4
	0xa02b, // mov x, ~null
	0x0043, // jmp x--, 3
	0x00c2, // jmp pin, 2
	0x0045, // jmp x--, 5
	0x00c7, // jmp pin, 7
	0x0004, // jmp 4
	0xa0c9, // mov isr, ~x
	0x8000, // push noblock
	0x0002, // jmp 2
}

// anyCaptureOrigin is the fixed load address of the undirected program,
// right after the directed one. Raw jmp targets below are encoded
// against it.
const anyCaptureOrigin = 10

// Undirected program: timestamps every transition, alternating between
// a rising and a falling watcher.
//
//	10: wait 1 irq 4
//	11: mov x, ~null
//	12: jmp x--, 13      ; watch for rise
//	13: jmp pin, 15
//	14: jmp 12
//	15: mov isr, ~x
//	16: push noblock
//	17: jmp x--, 18      ; watch for fall
//	18: jmp pin, 17
//	19: mov isr, ~x
//	20: push noblock
//	21: jmp 12
var anyCaptureProgram = []uint16{
	0x20c4, // wait 1 irq 4
	0xa02b, // mov x, ~null
	0x004d, // jmp x--, 13
	0x00cf, // jmp pin, 15
	0x000c, // jmp 12
	0xa0c9, // mov isr, ~x
	0x8000, // push noblock
	0x0052, // jmp x--, 18
	0x00d1, // jmp pin, 17
	0xa0c9, // mov isr, ~x
	0x8000, // push noblock
	0x000c, // jmp 12
}

// PIOEdgeCapture implements core.EdgeCaptureDriver on PIO0.
type PIOEdgeCapture struct {
	pio            *rp2pio.PIO
	sms            [core.ChannelCount]rp2pio.StateMachine
	sources        [core.ChannelCount]core.CaptureClockSource
	callbacks      [core.ChannelCount]func(core.Channel)
	directedOffset uint8
	anyOffset      uint8
}

var edgeCapture *PIOEdgeCapture

// NewPIOEdgeCapture claims all four PIO0 state machines and loads both
// capture programs.
func NewPIOEdgeCapture() (*PIOEdgeCapture, error) {
	d := &PIOEdgeCapture{pio: rp2pio.PIO0}

	directed, err := d.pio.AddProgram(directedCaptureProgram, 0)
	if err != nil {
		return nil, err
	}
	d.directedOffset = directed
	any, err := d.pio.AddProgram(anyCaptureProgram, anyCaptureOrigin)
	if err != nil {
		return nil, err
	}
	d.anyOffset = any

	for ch := core.Channel(0); ch < core.ChannelCount; ch++ {
		sm := d.pio.StateMachine(uint8(ch))
		sm.TryClaim()
		d.sms[ch] = sm
		captureInputPins[ch].Configure(machine.PinConfig{Mode: machine.PinInput})
	}
	return d, nil
}

func (d *PIOEdgeCapture) Reset(ch core.Channel) {
	sm := d.sms[ch]
	sm.SetEnabled(false)
	sm.ClearFIFOs()
	sm.Restart()
	setInputInvert(captureInputPins[ch], false)
	d.DisableInterrupt(ch)
}

func (d *PIOEdgeCapture) Configure(ch core.Channel, src core.CaptureClockSource) {
	d.sources[ch] = src
}

func (d *PIOEdgeCapture) Start(ch core.Channel, edge core.Edge) {
	pin := captureInputPins[ch]
	setInputInvert(pin, edge == core.EdgeFalling)

	offset := d.directedOffset
	program := directedCaptureProgram
	if edge == core.EdgeAny {
		offset = d.anyOffset
		program = anyCaptureProgram
	}

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetJmpPin(pin)
	cfg.SetWrap(offset, offset+uint8(len(program))-1)
	if d.sources[ch] == core.ClockSourceCaptureTimer {
		cfg.SetClkDivIntFrac(uint16(captureClock.prescaler.Factor()), 0)
	} else {
		cfg.SetClkDivIntFrac(1, 0)
	}

	sm := d.sms[ch]
	sm.Init(offset, cfg)
	sm.SetEnabled(true)
}

func (d *PIOEdgeCapture) ReadLatched(ch core.Channel) uint16 {
	return uint16(d.sms[ch].RxGet())
}

func (d *PIOEdgeCapture) EnableInterrupt(ch core.Channel, callback func(core.Channel)) {
	d.callbacks[ch] = callback
	pin := captureInputPins[ch]
	// The trigger interrupt is taken from the pad, not the state
	// machine, so it works before the timebase is released. Start has
	// already normalized the wanted direction to "rising" through the
	// input override, so the post-override rising edge is always the
	// one to watch.
	pin.SetInterrupt(machine.PinRising, func(p machine.Pin) {
		if cb := d.callbacks[ch]; cb != nil {
			cb(ch)
		}
	})
}

func (d *PIOEdgeCapture) DisableInterrupt(ch core.Channel) {
	d.callbacks[ch] = nil
	captureInputPins[ch].SetInterrupt(0, nil)
}
