package core

import "testing"

func TestLogicCaptureImmediateFire(t *testing.T) {
	rig := installMocks()
	rig.pins.states = 0b0101

	err := Logic.Capture(2, 10, EdgeRising, ChannelNone, EdgeNone)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	// No trigger: the session fires immediately.
	for ch := Channel(0); ch < 2; ch++ {
		if !rig.detectors.started[ch] {
			t.Errorf("detector %d not started", ch)
		}
		if rig.detectors.edges[ch] != EdgeRising {
			t.Errorf("detector %d edge = %d, want rising", ch, rig.detectors.edges[ch])
		}
		if rig.detectors.discards[ch] != 1 {
			t.Errorf("detector %d stale discards = %d, want 1", ch, rig.detectors.discards[ch])
		}
		if !rig.dma.started[ch] {
			t.Errorf("dma %d not started", ch)
		}
		if rig.dma.sources[ch] != DMASourceEdgeCapture {
			t.Errorf("dma %d source = %d", ch, rig.dma.sources[ch])
		}
		if len(rig.dma.dst[ch]) != 10 {
			t.Errorf("dma %d transfer count = %d, want 10", ch, len(rig.dma.dst[ch]))
		}
	}
	if !rig.clock.running {
		t.Error("capture clock not started")
	}
	if rig.clock.period != 0 {
		t.Errorf("clock period after fire = %d, want 0 (single-shot sync)", rig.clock.period)
	}
	if Logic.state.initialStates != 0b0101 {
		t.Errorf("initial states = %#b", Logic.state.initialStates)
	}

	p := Logic.Progress()
	if p.Done {
		t.Error("capture reported done while in flight")
	}
	if p.Channels != 2 {
		t.Errorf("progress channels = %d", p.Channels)
	}

	// Detectors start in descending channel order so the shared clock
	// never outruns a not-yet-started channel.
	if len(rig.detectors.startedOrder) != 2 ||
		rig.detectors.startedOrder[0] != Channel2 ||
		rig.detectors.startedOrder[1] != Channel1 {
		t.Errorf("detector start order = %v", rig.detectors.startedOrder)
	}

	raw := []uint16{100, 150, 400, 410, 500, 600, 700, 800, 900, 1000}
	rig.dma.complete(Channel1, raw)
	if Logic.Progress().Done {
		t.Error("done with one channel still active")
	}
	rig.dma.complete(Channel2, raw)

	p = Logic.Progress()
	if !p.Done {
		t.Error("capture not done after all channels completed")
	}
	if p.Captured[0] != 10 || p.Captured[1] != 10 {
		t.Errorf("final progress = %v", p.Captured)
	}
	if rig.clock.resets < 2 {
		t.Error("shared clock not released on completion")
	}
	t.Logf("progress after completion: %+v", p)
}

func TestLogicCaptureBusy(t *testing.T) {
	rig := installMocks()
	if err := Logic.Capture(1, 10, EdgeAny, ChannelNone, EdgeNone); err != nil {
		t.Fatalf("first capture failed: %v", err)
	}
	resets := rig.detectors.resets
	if err := Logic.Capture(1, 10, EdgeAny, ChannelNone, EdgeNone); err != ErrBusy {
		t.Fatalf("second capture = %v, want ErrBusy", err)
	}
	if rig.detectors.resets != resets {
		t.Error("busy capture touched hardware")
	}
}

func TestLogicCaptureInvalidArguments(t *testing.T) {
	cases := []struct {
		name        string
		numChannels uint8
		events      uint16
		edge        Edge
	}{
		{"zero channels", 0, 10, EdgeAny},
		{"zero events", 2, 0, EdgeAny},
		{"too many channels", 5, 10, EdgeAny},
		{"buffer overflow", 4, 2501, EdgeAny},
		{"null edge", 2, 10, EdgeNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rig := installMocks()
			err := Logic.Capture(tc.numChannels, tc.events, tc.edge, ChannelNone, EdgeNone)
			if err != ErrInvalidArgument {
				t.Fatalf("Capture = %v, want ErrInvalidArgument", err)
			}
			if Logic.state.locked {
				t.Error("instrument locked after rejected capture")
			}
			for ch := Channel(0); ch < ChannelCount; ch++ {
				if rig.detectors.resets[ch] != 0 || rig.dma.resets[ch] != 0 {
					t.Error("rejected capture had hardware side effects")
				}
			}
		})
	}
}

func TestLogicStopSnapshotsProgress(t *testing.T) {
	rig := installMocks()
	if err := Logic.Capture(2, 100, EdgeFalling, ChannelNone, EdgeNone); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	rig.dma.progress[0] = 7
	rig.dma.progress[1] = 3

	Logic.Stop()
	p := Logic.Progress()
	if !p.Done {
		t.Error("not done after stop")
	}
	if p.Captured[0] != 7 || p.Captured[1] != 3 {
		t.Errorf("snapshotted progress = %v, want [7 3 ...]", p.Captured)
	}
	if Logic.state.active != 0 {
		t.Errorf("active = %d after stop", Logic.state.active)
	}

	// Second stop is a no-op.
	resets := rig.dma.resets
	Logic.Stop()
	if rig.dma.resets != resets {
		t.Error("second stop touched hardware")
	}
}

func TestLogicStopReleasesPendingTrigger(t *testing.T) {
	rig := installMocks()
	// Trigger channel outside the single-channel capture set.
	if err := Logic.Capture(1, 10, EdgeRising, Channel3, EdgeRising); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if rig.detectors.callbacks[Channel3] == nil {
		t.Fatal("trigger detector interrupt not armed")
	}

	Logic.Stop()
	if rig.detectors.intDisabled[Channel3] == 0 {
		t.Error("trigger interrupt outlived the session")
	}
	if rig.detectors.resets[Channel3] == 0 {
		t.Error("trigger detector not reset on stop")
	}
	if rig.detectors.callbacks[Channel3] != nil {
		t.Error("trigger callback still armed after stop")
	}

	// Nothing fired on the stopped instrument.
	if rig.clock.starts != 0 || rig.dma.started[0] {
		t.Error("stopped session fired")
	}
}

func TestLogicTimestampDeltas(t *testing.T) {
	rig := installMocks()
	rig.pins.states = 0b0010
	if err := Logic.Capture(1, 3, EdgeAny, ChannelNone, EdgeNone); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	rig.dma.complete(Channel1, []uint16{100, 150, 400})

	rep := Logic.Timestamps()
	if rep.InitialStates != 0b0010 {
		t.Errorf("initial states = %#b", rep.InitialStates)
	}
	if rep.Scaling != 125_000_000 {
		t.Errorf("scaling = %d", rep.Scaling)
	}
	want := []uint16{100, 50, 250}
	got := rep.Deltas[0]
	if len(got) != len(want) {
		t.Fatalf("delta count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delta[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestLogicDirectedTriggerArmsDetector(t *testing.T) {
	rig := installMocks()
	if err := Logic.Capture(2, 5, EdgeAny, Channel3, EdgeRising); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if rig.detectors.callbacks[Channel3] == nil {
		t.Fatal("trigger detector interrupt not armed")
	}
	if rig.dma.started[0] || rig.dma.started[1] {
		t.Fatal("DMA started before trigger")
	}

	// Trigger edge arrives.
	rig.detectors.callbacks[Channel3](Channel3)
	if !rig.dma.started[0] || !rig.dma.started[1] {
		t.Error("capture did not fire on trigger")
	}
	if rig.detectors.intDisabled[Channel3] == 0 {
		t.Error("trigger interrupt not disabled after fire (single-shot)")
	}
}

func TestLogicAnyEdgeTriggerUsesChangeNotifier(t *testing.T) {
	rig := installMocks()
	if err := Logic.Capture(1, 5, EdgeAny, Channel2, EdgeAny); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if rig.notifier.callback == nil || rig.notifier.channel != Channel2 {
		t.Fatal("change notification not armed on trigger channel")
	}
	if rig.dma.started[0] {
		t.Fatal("DMA started before trigger")
	}

	rig.notifier.callback(Channel2)
	if !rig.dma.started[0] {
		t.Error("capture did not fire on level change")
	}
	if rig.notifier.resets == 0 {
		t.Error("change notifier not released after fire")
	}
}
