package core

import "testing"

func TestScopeCaptureImmediate(t *testing.T) {
	rig := installMocks()

	scales, err := Scope.Capture(2, 100, 10)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if !Scope.state.locked {
		t.Error("instrument not locked")
	}
	if rig.adc.cfg.Resolution != Res10Bit {
		t.Error("multi-channel capture must run at 10 bits")
	}
	if !rig.adc.cfg.Simultaneous {
		t.Error("converter not configured for simultaneous sampling")
	}
	if rig.adc.cfg.Trigger != ADCTriggerClock {
		t.Error("converter not paced by the capture clock")
	}
	if !rig.adc.running || !rig.clock.running {
		t.Error("converter/clock not started")
	}
	for ch := Channel(0); ch < 2; ch++ {
		if !rig.dma.started[ch] {
			t.Errorf("dma %d not started (no trigger means immediate fire)", ch)
		}
		if rig.dma.sources[ch] != DMASourceADC {
			t.Errorf("dma %d source = %d", ch, rig.dma.sources[ch])
		}
		if len(rig.dma.dst[ch]) != 100 {
			t.Errorf("dma %d transfer count = %d", ch, len(rig.dma.dst[ch]))
		}
	}

	want := float32(3.3) / 1024
	if scales[0].VoltsPerCount != want {
		t.Errorf("volts per count = %g, want %g", scales[0].VoltsPerCount, want)
	}

	rig.dma.complete(Channel1, nil)
	rig.dma.complete(Channel2, nil)
	st := Scope.Status()
	if !st.Done || st.Captured[0] != 100 || st.Captured[1] != 100 {
		t.Errorf("status after completion = %+v", st)
	}
	if rig.adc.resets < 2 || rig.clock.resets < 2 {
		t.Error("converter/clock not released on completion")
	}
}

func TestScopeResolutionSelection(t *testing.T) {
	cases := []struct {
		name        string
		numChannels uint8
		interval    uint32
		want        ADCResolution
	}{
		{"slow single channel", 1, 8, Res12Bit},
		{"fast single channel", 1, 7, Res10Bit},
		{"slow multi channel", 2, 100, Res10Bit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rig := installMocks()
			if _, err := Scope.Capture(tc.numChannels, 10, tc.interval); err != nil {
				t.Fatalf("Capture failed: %v", err)
			}
			if rig.adc.cfg.Resolution != tc.want {
				t.Errorf("resolution = %d, want %d", rig.adc.cfg.Resolution, tc.want)
			}
		})
	}
}

func TestScopePrescalerEscalation(t *testing.T) {
	cases := []struct {
		interval      uint32
		wantPrescaler ClockPrescaler
		wantPeriod    uint16
	}{
		{65535, Prescaler1, 65535},
		{65536, Prescaler8, 8192},
		{1_000_000, Prescaler64, 15625},
		{10_000_000, Prescaler256, 39062},
	}
	for _, tc := range cases {
		rig := installMocks()
		if _, err := Scope.Capture(1, 10, tc.interval); err != nil {
			t.Fatalf("Capture(interval=%d) failed: %v", tc.interval, err)
		}
		if rig.clock.prescaler != tc.wantPrescaler {
			t.Errorf("interval %d: prescaler = %d, want %d", tc.interval, rig.clock.prescaler, tc.wantPrescaler)
		}
		if rig.clock.period != tc.wantPeriod {
			t.Errorf("interval %d: period = %d, want %d", tc.interval, rig.clock.period, tc.wantPeriod)
		}
	}

	installMocks()
	if _, err := Scope.Capture(1, 10, 16_777_216); err != ErrInvalidArgument {
		t.Errorf("oversized interval = %v, want ErrInvalidArgument", err)
	}
}

func TestScopeBusyAndInvalidArguments(t *testing.T) {
	installMocks()
	if _, err := Scope.Capture(1, 10, 10); err != nil {
		t.Fatalf("first capture failed: %v", err)
	}
	if _, err := Scope.Capture(1, 10, 10); err != ErrBusy {
		t.Errorf("second capture = %v, want ErrBusy", err)
	}

	installMocks()
	if _, err := Scope.Capture(0, 10, 10); err != ErrInvalidArgument {
		t.Errorf("zero channels = %v", err)
	}
	if _, err := Scope.Capture(1, 0, 10); err != ErrInvalidArgument {
		t.Errorf("zero samples = %v", err)
	}
	if _, err := Scope.Capture(4, 2501, 10); err != ErrInvalidArgument {
		t.Errorf("buffer overflow = %v", err)
	}
	if _, err := Scope.Capture(1, 10, 0); err != ErrInvalidArgument {
		t.Errorf("zero interval = %v", err)
	}
}

func TestScopeRisingTriggerFiresOnCrossing(t *testing.T) {
	rig := installMocks()
	if err := Scope.ConfigureTrigger(Channel1, 1.0, EdgeRising, 0); err != nil {
		t.Fatalf("ConfigureTrigger failed: %v", err)
	}
	if _, err := Scope.Capture(1, 50, 10); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if rig.adc.callback == nil {
		t.Fatal("converter interrupt not armed for trigger evaluation")
	}
	if rig.dma.started[0] {
		t.Fatal("DMA started before trigger")
	}
	// level = 1.0V / (3.3/4096) ≈ 1241 counts (12-bit, single channel)
	level := Scope.state.trigger.Level
	if level < 1200 || level > 1300 {
		t.Fatalf("quantized level = %d", level)
	}

	rig.adc.sample(Channel1, level+100) // already above: not a crossing
	if rig.dma.started[0] {
		t.Fatal("fired without a crossing")
	}
	rig.adc.sample(Channel1, level-200) // below: ready to cross
	if rig.dma.started[0] {
		t.Fatal("fired while below a rising trigger")
	}
	rig.adc.sample(Channel1, level+10) // crossing
	if !rig.dma.started[0] {
		t.Fatal("did not fire on rising crossing")
	}
	if rig.adc.intDisabled == 0 {
		t.Error("converter interrupt not disabled after fire")
	}
}

func TestScopeAnyEdgeTriggerSeedsOppositePolarity(t *testing.T) {
	rig := installMocks()
	rig.adc.latest[Channel1] = 3000 // pre-arm sample above level
	if err := Scope.ConfigureTrigger(Channel1, 1.0, EdgeAny, 0); err != nil {
		t.Fatalf("ConfigureTrigger failed: %v", err)
	}
	if _, err := Scope.Capture(1, 50, 10); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	tr := &Scope.state.trigger
	if tr.Polarity {
		t.Error("polarity should be seeded opposite the current (above) side")
	}
	if !tr.Ready {
		t.Error("undirected trigger must skip the crossing precondition")
	}

	// First sample on the far side fires immediately.
	rig.adc.sample(Channel1, 400)
	if !rig.dma.started[0] {
		t.Error("did not fire on first crossing")
	}
}

func TestScopeTriggerSeedReadsRunningConverter(t *testing.T) {
	rig := installMocks()
	if err := Scope.ConfigureTrigger(Channel1, 1.0, EdgeAny, 0); err != nil {
		t.Fatalf("ConfigureTrigger failed: %v", err)
	}
	if _, err := Scope.Capture(1, 50, 10); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if !rig.adc.running || !rig.clock.running {
		t.Error("converter/clock not running while the trigger is armed")
	}
	if rig.adc.stoppedReads != 0 {
		t.Errorf("polarity seed read a stopped converter %d times", rig.adc.stoppedReads)
	}
}

func TestScopeTriggerTimeout(t *testing.T) {
	rig := installMocks()
	if err := Scope.ConfigureTrigger(Channel1, 1.0, EdgeRising, 3); err != nil {
		t.Fatalf("ConfigureTrigger failed: %v", err)
	}
	if _, err := Scope.Capture(1, 50, 10); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	// Signal parked above the level: never crosses.
	for i := 0; i < 3; i++ {
		rig.adc.sample(Channel1, 4000)
		if rig.dma.started[0] {
			t.Fatalf("fired before timeout at sample %d", i)
		}
	}
	rig.adc.sample(Channel1, 4000)
	if !rig.dma.started[0] {
		t.Error("timeout did not fire the capture")
	}
}

func TestScopeTriggerLevelClamp(t *testing.T) {
	installMocks()
	if err := Scope.ConfigureTrigger(Channel1, -5.0, EdgeRising, 0); err != nil {
		t.Fatalf("ConfigureTrigger failed: %v", err)
	}
	if _, err := Scope.Capture(1, 10, 10); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if Scope.state.trigger.Level != 1 {
		t.Errorf("low clamp = %d, want 1", Scope.state.trigger.Level)
	}
	Scope.Stop()

	if err := Scope.ConfigureTrigger(Channel1, 10.0, EdgeRising, 0); err != nil {
		t.Fatalf("ConfigureTrigger failed: %v", err)
	}
	if _, err := Scope.Capture(1, 10, 10); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if Scope.state.trigger.Level != 4095 {
		t.Errorf("high clamp = %d, want 4095", Scope.state.trigger.Level)
	}
}

func TestScopeStopSnapshotsProgress(t *testing.T) {
	rig := installMocks()
	if _, err := Scope.Capture(2, 100, 10); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	rig.dma.progress[0] = 42
	rig.dma.progress[1] = 17

	Scope.Stop()
	st := Scope.Status()
	if !st.Done || st.Captured[0] != 42 || st.Captured[1] != 17 {
		t.Errorf("status after stop = %+v", st)
	}

	resets := rig.dma.resets
	Scope.Stop()
	if rig.dma.resets != resets {
		t.Error("second stop touched hardware")
	}
}

func TestScopeSetGain(t *testing.T) {
	rig := installMocks()
	if err := Scope.SetGain(Channel1, GainX8); err != nil {
		t.Fatalf("SetGain failed: %v", err)
	}
	if rig.pga.gains[Channel1] != GainX8 || rig.pga.set[Channel1] != 1 {
		t.Error("amplifier not programmed")
	}

	if err := Scope.SetGain(Channel3, GainX2); err != ErrFailed {
		t.Errorf("gain on amplifier-less channel = %v, want ErrFailed", err)
	}
	if err := Scope.SetGain(Channel1, Gain(9)); err != ErrInvalidArgument {
		t.Errorf("out-of-table gain = %v, want ErrInvalidArgument", err)
	}

	// Gain folds into the emitted scaling.
	scales, err := Scope.Capture(1, 10, 100)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	want := float32(3.3) / 4096 / 8
	if scales[0].VoltsPerCount != want {
		t.Errorf("scaled volts per count = %g, want %g", scales[0].VoltsPerCount, want)
	}
}
