package core

import (
	"testing"

	"picolab/protocol"
)

func resetRegistry(t *testing.T) {
	t.Helper()
	globalRegistry = NewCommandRegistry()
	globalTransport = nil
	InitCommands()
}

func encodeArgs(values ...uint32) []byte {
	output := protocol.NewScratchOutput()
	for _, v := range values {
		protocol.EncodeVLQUint(output, v)
	}
	return output.Result()
}

func TestCommandRegistration(t *testing.T) {
	resetRegistry(t)

	ids := []uint16{
		CmdGetIdentity, CmdGetClock, CmdReset,
		CmdLACapture, CmdLAStop, CmdLAGetProgress, CmdLAGetTimestamps, CmdLAGetStates,
		CmdOscCapture, CmdOscGetCaptureStatus, CmdOscConfigureTrigger, CmdOscSetGain,
		CmdBufferRead,
	}
	if globalRegistry.Count() != len(ids) {
		t.Errorf("registered %d commands, want %d", globalRegistry.Count(), len(ids))
	}
	for _, id := range ids {
		cmd, ok := globalRegistry.GetCommand(id)
		if !ok {
			t.Errorf("command %#x not registered", id)
			continue
		}
		t.Logf("command %#x = %s", id, cmd.Name)
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	resetRegistry(t)
	defer func() {
		if recover() == nil {
			t.Error("duplicate ID did not panic")
		}
	}()
	RegisterCommand(CmdLACapture, "la_capture_again", handleLAStop)
}

func TestResponseCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want uint8
	}{
		{nil, protocol.RspSuccess},
		{ErrBusy, protocol.RspBusy},
		{ErrInvalidArgument, protocol.RspArgumentError},
		{protocol.ErrInvalidVLQ, protocol.RspArgumentError},
		{ErrFailed, protocol.RspFailed},
	}
	for _, tc := range cases {
		if got := responseCode(tc.err); got != tc.want {
			t.Errorf("responseCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestHandleLACapture(t *testing.T) {
	installMocks()
	resetRegistry(t)

	// num_channels=2 events=10 edge=rising trigger=none trigger_edge=none
	data := encodeArgs(2, 10, 3, 0xFF, 0)
	if err := handleLACapture(&data); err != nil {
		t.Fatalf("handleLACapture failed: %v", err)
	}
	if !Logic.state.locked {
		t.Error("capture command did not lock the instrument")
	}
	if Logic.state.captureEdge != EdgeRising {
		t.Errorf("capture edge = %d", Logic.state.captureEdge)
	}

	Logic.Stop()
	data = encodeArgs(2, 10, 7, 0xFF, 0) // edge selector out of range
	if err := handleLACapture(&data); err != ErrInvalidArgument {
		t.Errorf("bad edge selector = %v, want ErrInvalidArgument", err)
	}
	data = encodeArgs(2, 10, 3, 6, 0) // trigger channel out of range
	if err := handleLACapture(&data); err != ErrInvalidArgument {
		t.Errorf("bad trigger channel = %v, want ErrInvalidArgument", err)
	}
	data = encodeArgs(2) // truncated arguments
	if err := handleLACapture(&data); err == nil {
		t.Error("truncated arguments accepted")
	}
}

func TestHandleOscSetGain(t *testing.T) {
	installMocks()
	resetRegistry(t)

	data := encodeArgs(0, 4) // channel 1, X8
	if err := handleOscSetGain(&data); err != nil {
		t.Fatalf("handleOscSetGain failed: %v", err)
	}
	data = encodeArgs(0, 9) // out-of-table gain selector
	if err := handleOscSetGain(&data); err != ErrInvalidArgument {
		t.Errorf("bad gain = %v, want ErrInvalidArgument", err)
	}
	data = encodeArgs(0xFF, 1) // no channel
	if err := handleOscSetGain(&data); err != ErrFailed {
		t.Errorf("no channel = %v, want ErrFailed", err)
	}
}

func TestHandleOscCapture(t *testing.T) {
	installMocks()
	resetRegistry(t)

	output := protocol.NewScratchOutput()
	SetGlobalTransport(protocol.NewTransport(output, DispatchCommand))
	defer SetGlobalTransport(nil)

	// num_channels=2 samples=100 interval=1000
	data := encodeArgs(2, 100, 1000)
	if err := handleOscCapture(&data); err != nil {
		t.Fatalf("handleOscCapture failed: %v", err)
	}
	if !Scope.state.locked {
		t.Error("capture command did not lock the instrument")
	}
	if Scope.state.numChannels != 2 {
		t.Errorf("configured %d channels, want 2", Scope.state.numChannels)
	}
	frame := output.Result()
	if len(frame) < protocol.MessageLengthMin {
		t.Fatalf("no reply frame emitted (%d bytes)", len(frame))
	}

	Scope.Stop()
	data = encodeArgs(5, 100, 1000) // too many channels
	if err := handleOscCapture(&data); err != ErrInvalidArgument {
		t.Errorf("bad channel count = %v, want ErrInvalidArgument", err)
	}
	data = encodeArgs(2) // truncated arguments
	if err := handleOscCapture(&data); err == nil {
		t.Error("truncated arguments accepted")
	}
}

func TestHandleBufferRead(t *testing.T) {
	installMocks()
	resetRegistry(t)

	data := encodeArgs(0, 8)
	if err := handleBufferRead(&data); err != nil {
		t.Errorf("handleBufferRead failed: %v", err)
	}
	data = encodeArgs(BufferCapacity, 8)
	if err := handleBufferRead(&data); err != ErrInvalidArgument {
		t.Errorf("out-of-range offset = %v, want ErrInvalidArgument", err)
	}
}

// TestDispatchRepliesOnWire runs a command through DispatchCommand with
// a real transport and checks a framed reply was emitted.
func TestDispatchRepliesOnWire(t *testing.T) {
	installMocks()
	resetRegistry(t)

	output := protocol.NewScratchOutput()
	SetGlobalTransport(protocol.NewTransport(output, DispatchCommand))
	defer SetGlobalTransport(nil)

	data := encodeArgs()
	if err := DispatchCommand(CmdLAGetStates, &data); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	frame := output.Result()
	if len(frame) < protocol.MessageLengthMin {
		t.Fatalf("no reply frame emitted (%d bytes)", len(frame))
	}
	if frame[len(frame)-1] != protocol.MessageValueSync {
		t.Errorf("reply frame missing sync byte: % x", frame)
	}

	// Unknown IDs get an error reply, not silence.
	output.Reset()
	data = encodeArgs()
	if err := DispatchCommand(0xEE, &data); err != nil {
		t.Fatalf("unknown command dispatch errored: %v", err)
	}
	if len(output.Result()) < protocol.MessageLengthMin {
		t.Error("unknown command produced no reply")
	}
}
