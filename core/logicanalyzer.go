package core

// laState is the logic analyzer's session state. locked gates admission
// from the command context; active and finalProgress are maintained by
// the per-channel DMA completion callbacks in interrupt context.
// finalProgress[i] is written only by channel i's own completion
// callback (or by Stop, which runs with the session torn down).
type laState struct {
	locked        bool
	numChannels   uint8
	active        uint8
	events        uint16
	captureEdge   Edge
	triggerChan   Channel
	triggerEdge   Edge
	initialStates uint8
	prescaler     ClockPrescaler
	finalProgress [ChannelCount]uint16
}

// LogicAnalyzer captures digital edge timestamps on up to four channels.
// Each channel's edge detector latches the shared capture clock's value
// on every matching transition and a DMA mover drains the latches into
// the channel's buffer region; software is uninvolved between fire and
// per-channel completion.
type LogicAnalyzer struct {
	state laState
}

// Logic is the firmware's logic analyzer instance.
var Logic = &LogicAnalyzer{}

// Capture configures and arms an edge-timestamp capture session. It is
// synchronous and non-blocking: on success the instrument is locked and
// capture proceeds autonomously until every channel has recorded events
// timestamps or Stop is called.
//
// triggerChan ChannelNone or triggerEdge EdgeNone fires immediately; a
// directed trigger edge arms the trigger channel's edge detector
// interrupt, EdgeAny arms a change notification instead.
func (la *LogicAnalyzer) Capture(numChannels uint8, events uint16, captureEdge Edge, triggerChan Channel, triggerEdge Edge) error {
	if la.state.locked {
		return ErrBusy
	}
	if numChannels == 0 || numChannels > ChannelCount || events == 0 ||
		int(events)*int(numChannels) > BufferCapacity ||
		captureEdge == EdgeNone {
		return ErrInvalidArgument
	}

	la.state.locked = true
	la.state.numChannels = numChannels
	la.state.events = events
	la.state.captureEdge = captureEdge
	la.state.triggerChan = triggerChan
	la.state.triggerEdge = triggerEdge
	la.state.prescaler = Prescaler1
	la.state.finalProgress = [ChannelCount]uint16{}

	clock := MustCaptureClock()
	clock.Reset()
	clock.SetPrescaler(la.state.prescaler)
	// Period 1 so the sync output asserts one tick after the clock
	// starts, releasing every channel's timestamp counter together.
	clock.SetPeriod(1)

	detectors := MustEdgeCapture()
	movers := MustDMA()
	for i := uint8(0); i < numChannels; i++ {
		ch := Channel(i)
		region := Buffer.Region(ch, numChannels)[:events]
		for j := range region {
			region[j] = 0
		}
		detectors.Reset(ch)
		detectors.Configure(ch, ClockSourceCaptureTimer)
		movers.Reset(ch)
		movers.Configure(ch, region, DMASourceEdgeCapture)
		movers.EnableInterrupt(ch, la.channelDone)
	}

	la.arm()
	return nil
}

func (la *LogicAnalyzer) arm() {
	if la.state.triggerChan == ChannelNone || la.state.triggerEdge == EdgeNone {
		la.fire()
		return
	}
	RecordEvent(EvtTriggerArmed, uint8(la.state.triggerChan), uint32(la.state.triggerEdge), 0)
	if la.state.triggerEdge == EdgeAny {
		// Directional edge-capture hardware cannot report undirected
		// transitions.
		MustChangeNotifier().EnableInterrupt(la.state.triggerChan, la.triggerSeen)
		return
	}
	detectors := MustEdgeCapture()
	detectors.Start(la.state.triggerChan, la.state.triggerEdge)
	detectors.EnableInterrupt(la.state.triggerChan, la.triggerSeen)
}

// triggerSeen runs in interrupt context when the armed trigger occurs.
func (la *LogicAnalyzer) triggerSeen(ch Channel) {
	RecordEvent(EvtTriggerFired, uint8(ch), 0, 0)
	la.fire()
}

// fire starts the capture session. The step order is a correctness
// requirement: detectors must already be running when the clock starts
// because their timestamp counters begin one tick later, and the pin
// states must be read as soon as possible afterwards so an early edge
// does not outrun the snapshot. The whole sequence is timing critical
// and runs with interrupts disabled.
func (la *LogicAnalyzer) fire() {
	detectors := MustEdgeCapture()
	movers := MustDMA()
	clock := MustCaptureClock()

	state := disableInterrupts()
	for i := int(la.state.numChannels) - 1; i >= 0; i-- {
		ch := Channel(i)
		detectors.Start(ch, la.state.captureEdge)
		// Discard the stale capture the detector may have latched while
		// armed before the clock started.
		detectors.ReadLatched(ch)
	}
	clock.Start()
	for i := int(la.state.numChannels) - 1; i >= 0; i-- {
		movers.Start(Channel(i))
	}
	la.state.initialStates = MustPinState().ReadStates()
	la.state.active = la.state.numChannels
	restoreInterrupts(state)

	RecordEvent(EvtCaptureFired, 0xFF, uint32(la.state.initialStates), uint32(la.state.numChannels))

	// Sync output is single-shot per session.
	clock.SetPeriod(0)

	// The trigger interrupt has served its purpose.
	if la.state.triggerChan != ChannelNone && la.state.triggerEdge != EdgeNone {
		if la.state.triggerEdge == EdgeAny {
			MustChangeNotifier().Reset()
		} else {
			detectors.DisableInterrupt(la.state.triggerChan)
		}
	}
}

// channelDone runs in interrupt context when a channel's DMA mover has
// drained the requested event count. The last channel to finish releases
// the shared clock and unlocks the instrument.
func (la *LogicAnalyzer) channelDone(ch Channel) {
	RecordEvent(EvtChannelDone, uint8(ch), uint32(la.state.events), 0)
	la.state.finalProgress[ch] = la.state.events
	MustEdgeCapture().Reset(ch)
	MustDMA().Reset(ch)
	la.state.active--
	if la.state.active == 0 {
		MustCaptureClock().Reset()
		la.state.locked = false
	}
}

// Stop aborts a running session, snapshotting each channel's live DMA
// progress before teardown. Calling Stop on an idle instrument is a
// no-op.
func (la *LogicAnalyzer) Stop() {
	if !la.state.locked {
		return
	}
	RecordEvent(EvtCaptureStop, 0xFF, uint32(la.state.active), 0)
	MustChangeNotifier().Reset()
	MustCaptureClock().Reset()
	detectors := MustEdgeCapture()
	movers := MustDMA()
	// Every channel is torn down, not just the configured ones: a
	// directed trigger may be armed on a channel outside the capture
	// set, and its interrupt must not outlive the session.
	for ch := Channel(0); ch < ChannelCount; ch++ {
		detectors.DisableInterrupt(ch)
		detectors.Reset(ch)
		if uint8(ch) < la.state.numChannels {
			la.state.finalProgress[ch] = movers.Progress(ch)
		}
		movers.Reset(ch)
	}
	la.state.active = 0
	la.state.locked = false
}

// CaptureProgress reports how far a session has come. Progress is read
// live from the DMA movers while capturing and from the frozen
// finalProgress once done.
type CaptureProgress struct {
	Channels uint8
	Done     bool
	Captured [ChannelCount]uint16
}

func (la *LogicAnalyzer) Progress() CaptureProgress {
	p := CaptureProgress{
		Channels: la.state.numChannels,
		Done:     !la.state.locked,
	}
	if p.Done {
		p.Captured = la.state.finalProgress
		return p
	}
	movers := MustDMA()
	for i := uint8(0); i < la.state.numChannels; i++ {
		p.Captured[i] = movers.Progress(Channel(i))
	}
	return p
}

// TimestampReport is the readout of a completed session. Deltas[i]
// aliases channel i's buffer region, rewritten in place from absolute
// clock values to consecutive differences, so the report is valid once
// per session. Scaling is capture clock ticks per second.
type TimestampReport struct {
	InitialStates uint8
	Scaling       uint32
	Channels      uint8
	Events        [ChannelCount]uint16
	Deltas        [ChannelCount][]uint16
}

// Timestamps converts each channel's captured clock values to deltas
// (first delta relative to zero, previous value updated to the raw
// timestamp at every step) and returns them together with the pre-fire
// pin-state snapshot.
func (la *LogicAnalyzer) Timestamps() TimestampReport {
	rep := TimestampReport{
		InitialStates: la.state.initialStates,
		Scaling:       MustCaptureClock().Frequency() / la.state.prescaler.Factor(),
		Channels:      la.state.numChannels,
	}
	for i := uint8(0); i < la.state.numChannels; i++ {
		ch := Channel(i)
		n := la.state.finalProgress[ch]
		deltas := Buffer.Region(ch, la.state.numChannels)[:n]
		var previous uint16
		for j, raw := range deltas {
			deltas[j] = raw - previous
			previous = raw
		}
		rep.Events[ch] = n
		rep.Deltas[ch] = deltas
	}
	return rep
}

// States reads the instantaneous logic levels of the input pins, bit i
// holding channel i's level.
func (la *LogicAnalyzer) States() uint8 {
	return MustPinState().ReadStates()
}
