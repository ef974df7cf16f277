package core

// The gain amplifiers sit on a shared SPI bus, one chip select per
// amplified input. A gain change is a single 16-bit write: the register
// command in the high byte, the gain table index in the low byte.
const (
	pgaCmdWriteGain = 0x4000

	pgaBusRate = 1_000_000
	pgaBusMode = SPIMode(0)
)

// SPIPGA implements PGADriver over the SPI capability. selects holds
// the chip-select control per channel; channels without an amplifier
// have a nil entry.
type SPIPGA struct {
	driver  SPIDriver
	bus     interface{}
	selects [ChannelCount]func(active bool)
}

// NewSPIPGA configures the amplifier bus. Channels with a nil select
// function reject SetGain.
func NewSPIPGA(driver SPIDriver, busID SPIBusID, selects [ChannelCount]func(active bool)) (*SPIPGA, error) {
	bus, err := driver.ConfigureBus(SPIConfig{BusID: busID, Mode: pgaBusMode, Rate: pgaBusRate})
	if err != nil {
		return nil, err
	}
	return &SPIPGA{driver: driver, bus: bus, selects: selects}, nil
}

// SetGain programs one amplifier's gain register.
func (p *SPIPGA) SetGain(ch Channel, g Gain) error {
	if ch >= ChannelCount || g >= gainCount {
		return ErrInvalidArgument
	}
	cs := p.selects[ch]
	if cs == nil {
		return ErrInvalidArgument
	}
	word := uint16(pgaCmdWriteGain) | uint16(g)
	tx := []byte{uint8(word >> 8), uint8(word & 0xFF)}
	rx := make([]byte, 2)

	cs(true)
	err := p.driver.Transfer(p.bus, tx, rx)
	cs(false)
	if err != nil {
		return ErrFailed
	}
	return nil
}
