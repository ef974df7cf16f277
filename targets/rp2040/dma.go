//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"picolab/core"
)

// DMA channel register block (one per hardware channel, 0x40 stride).
// Only the trigger alias is used; writes to CTRL_TRIG start the channel.
type dmaChannelRegs struct {
	READ_ADDR   volatile.Register32
	WRITE_ADDR  volatile.Register32
	TRANS_COUNT volatile.Register32
	CTRL_TRIG   volatile.Register32
}

const (
	dmaBase          = 0x50000000
	dmaChannelStride = 0x40

	dmaCtrlEn        = 1 << 0
	dmaCtrlDataSize2 = 1 << 2 // 01 = 16-bit transfers
	dmaCtrlIncrWrite = 1 << 5
	dmaCtrlTreqShift = 15

	// DREQ numbers for the peripherals we drain.
	dreqPIO0RX0 = 4
	dreqADC     = 36
)

func dmaChannel(ch core.Channel) *dmaChannelRegs {
	return (*dmaChannelRegs)(unsafe.Pointer(uintptr(dmaBase) + uintptr(ch)*dmaChannelStride))
}

// RPDMA implements core.DMADriver on hardware channels 0-3, one per
// instrument channel. Destinations are in-RAM sample regions, so only
// the write address increments.
type RPDMA struct {
	total     [core.ChannelCount]uint32
	ctrl      [core.ChannelCount]uint32
	callbacks [core.ChannelCount]func(core.Channel)
	intMask   [core.ChannelCount]bool
}

var dmaDriver = &RPDMA{}

func initDMAInterrupt() {
	intr := interrupt.New(rp.IRQ_DMA_IRQ_0, dmaISR)
	intr.Enable()
}

func dmaISR(interrupt.Interrupt) {
	status := rp.DMA.INTS0.Get()
	rp.DMA.INTS0.Set(status) // write to clear
	for ch := core.Channel(0); ch < core.ChannelCount; ch++ {
		if status&(1<<ch) == 0 || !dmaDriver.intMask[ch] {
			continue
		}
		// 10-bit converter sessions carry native 12-bit samples;
		// normalize before the controller freezes progress.
		if adcDriver != nil && dmaDriver.ctrl[ch]>>dmaCtrlTreqShift&0x3F == dreqADC {
			adcDriver.normalize(dmaRegionFor(ch, dmaDriver.total[ch]))
		}
		if cb := dmaDriver.callbacks[ch]; cb != nil {
			cb(ch)
		}
	}
}

func dmaRegionFor(ch core.Channel, count uint32) []uint16 {
	base := dmaChannel(ch).WRITE_ADDR.Get() - 2*count
	return unsafe.Slice((*uint16)(unsafe.Pointer(uintptr(base))), count)
}

func (d *RPDMA) Reset(ch core.Channel) {
	regs := dmaChannel(ch)
	regs.CTRL_TRIG.Set(0)
	rp.DMA.INTE0.ClearBits(1 << ch)
	d.intMask[ch] = false
	d.callbacks[ch] = nil
}

func (d *RPDMA) Configure(ch core.Channel, dst []uint16, src core.DMASource) {
	var readAddr uintptr
	var dreq uint32
	switch src {
	case core.DMASourceEdgeCapture:
		readAddr = pioRXFAddr(ch)
		dreq = dreqPIO0RX0 + uint32(ch)
	case core.DMASourceADC:
		readAddr = uintptr(unsafe.Pointer(&rp.ADC.FIFO))
		dreq = dreqADC
	}

	regs := dmaChannel(ch)
	regs.READ_ADDR.Set(uint32(readAddr))
	regs.WRITE_ADDR.Set(uint32(uintptr(unsafe.Pointer(&dst[0]))))
	regs.TRANS_COUNT.Set(uint32(len(dst)))
	d.total[ch] = uint32(len(dst))
	d.ctrl[ch] = dmaCtrlDataSize2 | dmaCtrlIncrWrite | dreq<<dmaCtrlTreqShift
}

func (d *RPDMA) Start(ch core.Channel) {
	dmaChannel(ch).CTRL_TRIG.Set(d.ctrl[ch] | dmaCtrlEn)
}

func (d *RPDMA) EnableInterrupt(ch core.Channel, callback func(core.Channel)) {
	d.callbacks[ch] = callback
	d.intMask[ch] = true
	rp.DMA.INTE0.SetBits(1 << ch)
}

// Progress reports values moved so far. TRANS_COUNT counts down from
// the configured total and reads zero once complete.
func (d *RPDMA) Progress(ch core.Channel) uint16 {
	remaining := dmaChannel(ch).TRANS_COUNT.Get()
	if remaining > d.total[ch] {
		return 0
	}
	return uint16(d.total[ch] - remaining)
}
