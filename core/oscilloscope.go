package core

// twelveBitIntervalMin is the smallest sample interval, in undivided
// capture clock ticks, at which the converter can deliver a 12-bit
// result. Faster sessions and multi-channel simultaneous sampling run
// at 10 bits.
const twelveBitIntervalMin = 8

// ChannelScale converts a channel's raw samples to volts:
// volts = raw*VoltsPerCount + Offset. Emitted at setup so the consumer
// can transmit raw integers and scale on its side.
type ChannelScale struct {
	VoltsPerCount float32
	Offset        float32
}

// triggerConfig is the pending trigger selection, stored by
// ConfigureTrigger and armed by the next Capture.
type triggerConfig struct {
	channel Channel
	voltage float32
	edge    Edge
	timeout uint32
}

// oscState is the oscilloscope's session state, same locking discipline
// as laState.
type oscState struct {
	locked        bool
	numChannels   uint8
	active        uint8
	samples       uint16
	resolution    ADCResolution
	prescaler     ClockPrescaler
	gains         [ChannelCount]Gain
	finalProgress [ChannelCount]uint16
	pending       triggerConfig
	trigger       LevelTrigger
}

// Oscilloscope captures periodic analog samples on up to four channels.
// The shared capture clock paces the converter; one DMA mover per
// channel drains conversion results into the channel's buffer region
// once the trigger fires.
type Oscilloscope struct {
	state oscState
}

// Scope is the firmware's oscilloscope instance.
var Scope = &Oscilloscope{}

// ConfigureTrigger stores the trigger selection for the next Capture.
// ChannelNone or EdgeNone disables triggering, so the next capture
// fires immediately. timeout is in samples evaluated since arming; zero
// disables the timeout escape.
func (o *Oscilloscope) ConfigureTrigger(ch Channel, voltage float32, edge Edge, timeout uint32) error {
	if ch != ChannelNone && ch >= ChannelCount {
		return ErrInvalidArgument
	}
	o.state.pending = triggerConfig{channel: ch, voltage: voltage, edge: edge, timeout: timeout}
	return nil
}

// SetGain programs the gain amplifier in front of an analog input and
// records the setting for the next session's scaling. Only some inputs
// carry an amplifier.
func (o *Oscilloscope) SetGain(ch Channel, g Gain) error {
	if g >= gainCount {
		return ErrInvalidArgument
	}
	// An unsupported channel is an amplifier configuration failure, not
	// a malformed request.
	if ch >= ChannelCount {
		return ErrFailed
	}
	if err := MustPGA().SetGain(ch, g); err != nil {
		return ErrFailed
	}
	o.state.gains[ch] = g
	return nil
}

// periodFor converts a sample interval in undivided clock ticks to a
// period register value, escalating the prescaler while the raw period
// would overflow 16 bits.
func periodFor(interval uint32) (uint16, ClockPrescaler, error) {
	for p := Prescaler1; p < prescalerCount; p++ {
		ticks := interval / p.Factor()
		if ticks <= 0xFFFF {
			return uint16(ticks), p, nil
		}
	}
	return 0, Prescaler1, ErrInvalidArgument
}

// Capture configures and arms a sampling session. interval is the time
// between sample sets in undivided capture clock ticks. Synchronous and
// non-blocking; on success the instrument is locked and capture runs
// autonomously until every channel holds samples conversion results or
// Stop is called. Per-channel scaling factors for the session are
// returned for the caller to convert raw samples to volts.
func (o *Oscilloscope) Capture(numChannels uint8, samples uint16, interval uint32) ([ChannelCount]ChannelScale, error) {
	var scales [ChannelCount]ChannelScale
	if o.state.locked {
		return scales, ErrBusy
	}
	if numChannels == 0 || numChannels > ChannelCount || samples == 0 ||
		int(samples)*int(numChannels) > BufferCapacity || interval == 0 {
		return scales, ErrInvalidArgument
	}
	period, prescaler, err := periodFor(interval)
	if err != nil {
		return scales, err
	}

	resolution := Res10Bit
	if interval >= twelveBitIntervalMin && numChannels == 1 {
		resolution = Res12Bit
	}

	o.state.locked = true
	o.state.numChannels = numChannels
	o.state.samples = samples
	o.state.resolution = resolution
	o.state.prescaler = prescaler
	o.state.finalProgress = [ChannelCount]uint16{}

	adc := MustAnalogConverter()
	adc.Reset()
	adc.Configure(ADCConfig{
		Channels:      numChannels,
		Channel0Input: Channel1,
		Simultaneous:  true,
		Trigger:       ADCTriggerClock,
		Resolution:    resolution,
	})

	movers := MustDMA()
	for i := uint8(0); i < numChannels; i++ {
		ch := Channel(i)
		region := Buffer.Region(ch, numChannels)[:samples]
		movers.Reset(ch)
		movers.Configure(ch, region, DMASourceADC)
		movers.EnableInterrupt(ch, o.channelDone)
	}

	for i := uint8(0); i < numChannels; i++ {
		ch := Channel(i)
		g := o.state.gains[ch].Factor()
		scales[ch] = ChannelScale{
			VoltsPerCount: adc.PinRange(ch) / float32(resolution.Counts()) / g,
			Offset:        adc.PinOffset(ch) / g,
		}
	}

	clock := MustCaptureClock()
	clock.Reset()
	clock.SetPrescaler(prescaler)
	clock.SetPeriod(period)
	clock.Start()
	adc.Start()

	// The trigger is armed only after the converter runs, so the
	// undirected polarity seed reads a live sample rather than a stale
	// one.
	if o.state.pending.channel != ChannelNone && o.state.pending.edge != EdgeNone {
		o.armTrigger()
	} else {
		o.fireCapture()
	}
	return scales, nil
}

// armTrigger quantizes the pending trigger voltage against the session's
// resolution and gain and enables per-sample evaluation.
func (o *Oscilloscope) armTrigger() {
	cfg := o.state.pending
	adc := MustAnalogConverter()
	counts := o.state.resolution.Counts()
	g := o.state.gains[cfg.channel].Factor()
	scale := adc.PinRange(cfg.channel) / float32(counts) / g
	offset := adc.PinOffset(cfg.channel) / g

	level := int32((cfg.voltage - offset) / scale)
	// Clamp to the open interval: at the exact boundary a crossing
	// trigger could never be satisfied.
	if level < 1 {
		level = 1
	}
	if level >= int32(counts) {
		level = int32(counts) - 1
	}

	o.state.trigger = LevelTrigger{
		Channel: cfg.channel,
		Level:   uint16(level),
		Timeout: cfg.timeout,
	}
	switch cfg.edge {
	case EdgeAny:
		// Fire on the first crossing in either direction: seed polarity
		// opposite the input's current side and skip the crossing
		// precondition.
		above := adc.ReadLatest(cfg.channel) >= uint16(level)
		o.state.trigger.Polarity = !above
		o.state.trigger.Ready = true
	case EdgeRising:
		o.state.trigger.Polarity = true
	case EdgeFalling:
		o.state.trigger.Polarity = false
	}

	RecordEvent(EvtTriggerArmed, uint8(cfg.channel), uint32(level), cfg.timeout)
	adc.EnableInterrupt(o.evaluate)
}

// evaluate runs in interrupt context on every completed conversion
// while the trigger is armed.
func (o *Oscilloscope) evaluate() {
	t := &o.state.trigger
	sample := MustAnalogConverter().ReadLatest(t.Channel)
	if !t.Evaluate(sample) {
		return
	}
	if t.Timeout != 0 && t.Waiting > t.Timeout {
		RecordEvent(EvtTriggerExpiry, uint8(t.Channel), t.Waiting, 0)
	} else {
		RecordEvent(EvtTriggerFired, uint8(t.Channel), uint32(sample), uint32(t.Level))
	}
	o.fireCapture()
}

// fireCapture starts every configured channel's DMA mover. From here on
// capture is pure hardware until per-channel completion.
func (o *Oscilloscope) fireCapture() {
	movers := MustDMA()
	state := disableInterrupts()
	for i := int(o.state.numChannels) - 1; i >= 0; i-- {
		movers.Start(Channel(i))
	}
	o.state.active = o.state.numChannels
	restoreInterrupts(state)
	MustAnalogConverter().DisableInterrupt()
	RecordEvent(EvtCaptureFired, 0xFF, uint32(o.state.numChannels), uint32(o.state.samples))
}

// channelDone runs in interrupt context when a channel's DMA mover has
// drained the requested sample count.
func (o *Oscilloscope) channelDone(ch Channel) {
	RecordEvent(EvtChannelDone, uint8(ch), uint32(o.state.samples), 0)
	o.state.finalProgress[ch] = o.state.samples
	MustDMA().Reset(ch)
	o.state.active--
	if o.state.active == 0 {
		MustCaptureClock().Reset()
		MustAnalogConverter().Reset()
		o.state.locked = false
	}
}

// Stop aborts a running session, snapshotting live DMA progress first.
// No-op when idle.
func (o *Oscilloscope) Stop() {
	if !o.state.locked {
		return
	}
	RecordEvent(EvtCaptureStop, 0xFF, uint32(o.state.active), 0)
	adc := MustAnalogConverter()
	adc.DisableInterrupt()
	adc.Reset()
	MustCaptureClock().Reset()
	movers := MustDMA()
	for i := uint8(0); i < o.state.numChannels; i++ {
		ch := Channel(i)
		o.state.finalProgress[ch] = movers.Progress(ch)
		movers.Reset(ch)
	}
	o.state.active = 0
	o.state.locked = false
}

// Status reports capture completion and per-channel sample counts, live
// from the DMA movers while capturing.
func (o *Oscilloscope) Status() CaptureProgress {
	p := CaptureProgress{
		Channels: o.state.numChannels,
		Done:     !o.state.locked,
	}
	if p.Done {
		p.Captured = o.state.finalProgress
		return p
	}
	movers := MustDMA()
	for i := uint8(0); i < o.state.numChannels; i++ {
		p.Captured[i] = movers.Progress(Channel(i))
	}
	return p
}
