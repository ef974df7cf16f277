package core

// Mock capability drivers for exercising the controllers on regular Go.
// Tests drive "hardware" by writing into the configured DMA destinations
// and invoking the stored interrupt callbacks.

type mockEdgeCapture struct {
	started      [ChannelCount]bool
	edges        [ChannelCount]Edge
	sources      [ChannelCount]CaptureClockSource
	resets       [ChannelCount]int
	discards     [ChannelCount]int
	callbacks    [ChannelCount]func(Channel)
	intDisabled  [ChannelCount]int
	startedOrder []Channel
}

func (m *mockEdgeCapture) Reset(ch Channel) {
	m.resets[ch]++
	m.started[ch] = false
}

func (m *mockEdgeCapture) Configure(ch Channel, src CaptureClockSource) {
	m.sources[ch] = src
}

func (m *mockEdgeCapture) Start(ch Channel, edge Edge) {
	m.started[ch] = true
	m.edges[ch] = edge
	m.startedOrder = append(m.startedOrder, ch)
}

func (m *mockEdgeCapture) ReadLatched(ch Channel) uint16 {
	m.discards[ch]++
	return 0
}

func (m *mockEdgeCapture) EnableInterrupt(ch Channel, callback func(Channel)) {
	m.callbacks[ch] = callback
}

func (m *mockEdgeCapture) DisableInterrupt(ch Channel) {
	m.intDisabled[ch]++
	m.callbacks[ch] = nil
}

type mockClock struct {
	running   bool
	period    uint16
	prescaler ClockPrescaler
	resets    int
	starts    int
	freq      uint32
}

func (m *mockClock) Reset() {
	m.resets++
	m.running = false
	m.period = 0
	m.prescaler = Prescaler1
}

func (m *mockClock) Start() {
	m.starts++
	m.running = true
}

func (m *mockClock) SetPeriod(ticks uint16)        { m.period = ticks }
func (m *mockClock) SetPrescaler(p ClockPrescaler) { m.prescaler = p }
func (m *mockClock) Frequency() uint32             { return m.freq }

type mockChangeNotifier struct {
	channel  Channel
	callback func(Channel)
	resets   int
}

func (m *mockChangeNotifier) Reset() {
	m.resets++
	m.callback = nil
}

func (m *mockChangeNotifier) EnableInterrupt(ch Channel, callback func(Channel)) {
	m.channel = ch
	m.callback = callback
}

type mockDMA struct {
	dst       [ChannelCount][]uint16
	sources   [ChannelCount]DMASource
	started   [ChannelCount]bool
	resets    [ChannelCount]int
	callbacks [ChannelCount]func(Channel)
	progress  [ChannelCount]uint16
}

func (m *mockDMA) Reset(ch Channel) {
	m.resets[ch]++
	m.started[ch] = false
	m.progress[ch] = 0
}

func (m *mockDMA) Configure(ch Channel, dst []uint16, src DMASource) {
	m.dst[ch] = dst
	m.sources[ch] = src
}

func (m *mockDMA) Start(ch Channel) { m.started[ch] = true }

func (m *mockDMA) EnableInterrupt(ch Channel, callback func(Channel)) {
	m.callbacks[ch] = callback
}

func (m *mockDMA) Progress(ch Channel) uint16 { return m.progress[ch] }

// complete fills the channel's destination with raw values and raises
// its completion interrupt.
func (m *mockDMA) complete(ch Channel, raw []uint16) {
	copy(m.dst[ch], raw)
	m.progress[ch] = uint16(len(m.dst[ch]))
	m.callbacks[ch](ch)
}

type mockPins struct {
	states uint8
}

func (m *mockPins) ReadStates() uint8 { return m.states }

type mockADC struct {
	cfg         ADCConfig
	running     bool
	resets      int
	callback    func()
	intDisabled int
	latest      [ChannelCount]uint16
	pinRange    float32
	pinOffset   float32

	// Conversions read while the converter is stopped return stale data
	// on real hardware; tests count them to catch ordering bugs.
	stoppedReads int
}

func (m *mockADC) Reset() {
	m.resets++
	m.running = false
}

func (m *mockADC) Configure(cfg ADCConfig) { m.cfg = cfg }
func (m *mockADC) Start()                  { m.running = true }

func (m *mockADC) EnableInterrupt(callback func()) { m.callback = callback }

func (m *mockADC) DisableInterrupt() {
	m.intDisabled++
	m.callback = nil
}

func (m *mockADC) ReadLatest(ch Channel) uint16 {
	if !m.running {
		m.stoppedReads++
	}
	return m.latest[ch]
}
func (m *mockADC) PinRange(ch Channel) float32  { return m.pinRange }
func (m *mockADC) PinOffset(ch Channel) float32 { return m.pinOffset }

// sample feeds one conversion result for the trigger channel while the
// converter interrupt is armed.
func (m *mockADC) sample(ch Channel, value uint16) {
	m.latest[ch] = value
	if m.callback != nil {
		m.callback()
	}
}

type mockPGA struct {
	gains [ChannelCount]Gain
	set   [ChannelCount]int
}

func (m *mockPGA) SetGain(ch Channel, g Gain) error {
	// Only the first two inputs carry an amplifier, like the real board.
	if ch > Channel2 {
		return ErrInvalidArgument
	}
	m.gains[ch] = g
	m.set[ch]++
	return nil
}

// mockRig bundles one instance of every mock driver.
type mockRig struct {
	detectors mockEdgeCapture
	clock     mockClock
	notifier  mockChangeNotifier
	dma       mockDMA
	pins      mockPins
	adc       mockADC
	pga       mockPGA
}

// installMocks registers fresh mocks and fresh controller instances so
// tests do not leak session state into each other.
func installMocks() *mockRig {
	rig := &mockRig{
		clock: mockClock{freq: 125_000_000},
		adc:   mockADC{pinRange: 3.3},
	}
	SetEdgeCaptureDriver(&rig.detectors)
	SetCaptureClockDriver(&rig.clock)
	SetChangeNotifierDriver(&rig.notifier)
	SetDMADriver(&rig.dma)
	SetPinStateDriver(&rig.pins)
	SetAnalogConverterDriver(&rig.adc)
	SetPGADriver(&rig.pga)
	Logic = &LogicAnalyzer{}
	Scope = &Oscilloscope{}
	return rig
}
