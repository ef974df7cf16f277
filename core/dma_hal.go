package core

// DMASource selects the peripheral a DMA channel drains.
type DMASource uint8

const (
	// DMASourceEdgeCapture drains the edge detector's capture buffer,
	// one transfer per latched timestamp.
	DMASourceEdgeCapture DMASource = iota
	// DMASourceADC drains the analog converter's result registers, one
	// transfer per completed conversion.
	DMASourceADC
)

// DMADriver is the peripheral-to-memory mover capability. One DMA
// channel serves one instrument channel; a configured channel moves
// len(dst) values and then raises its completion interrupt.
type DMADriver interface {
	// Reset stops a channel and detaches its interrupt. Safe to call on
	// an already-idle channel.
	Reset(ch Channel)

	// Configure points a channel at a peripheral source and a
	// destination slice. The transfer count is len(dst). The channel
	// does not move data until Start.
	Configure(ch Channel, dst []uint16, src DMASource)

	// Start enables a configured channel.
	Start(ch Channel)

	// EnableInterrupt invokes callback from interrupt context when the
	// channel has moved its full transfer count.
	EnableInterrupt(ch Channel, callback func(Channel))

	// Progress returns the number of values the channel has moved so
	// far. Valid both mid-transfer and after completion.
	Progress(ch Channel) uint16
}

var dmaDriver DMADriver

// SetDMADriver is called by target-specific code to register its driver.
func SetDMADriver(d DMADriver) {
	dmaDriver = d
}

// MustDMA returns the configured driver or panics if missing.
func MustDMA() DMADriver {
	if dmaDriver == nil {
		panic("dma driver not configured")
	}
	return dmaDriver
}
