package core

import (
	"sync/atomic"

	"picolab/protocol"
)

// DeviceName is reported by get_identity.
const DeviceName = "picolab"

// Fixed wire command IDs, shared with the host client. The 0x1x block
// is the logic analyzer, 0x2x the oscilloscope.
const (
	CmdGetIdentity uint16 = 0x00
	CmdGetClock    uint16 = 0x01
	CmdReset       uint16 = 0x02

	CmdLACapture       uint16 = 0x10
	CmdLAStop          uint16 = 0x11
	CmdLAGetProgress   uint16 = 0x12
	CmdLAGetTimestamps uint16 = 0x13
	CmdLAGetStates     uint16 = 0x14

	CmdOscCapture          uint16 = 0x20
	CmdOscGetCaptureStatus uint16 = 0x21
	CmdOscConfigureTrigger uint16 = 0x22
	CmdOscSetGain          uint16 = 0x23

	CmdBufferRead uint16 = 0x30
)

// maxReadSamples caps buffer_read chunks so a reply always fits one
// frame even when every sample needs a 3-byte VLQ.
const maxReadSamples = 16

// InitCommands registers the full command surface.
func InitCommands() {
	RegisterCommand(CmdGetIdentity, "get_identity", handleGetIdentity)
	RegisterCommand(CmdGetClock, "get_clock", handleGetClock)
	RegisterCommand(CmdReset, "reset", handleReset)

	RegisterCommand(CmdLACapture, "la_capture", handleLACapture)
	RegisterCommand(CmdLAStop, "la_stop", handleLAStop)
	RegisterCommand(CmdLAGetProgress, "la_get_progress", handleLAGetProgress)
	RegisterCommand(CmdLAGetTimestamps, "la_get_timestamps", handleLAGetTimestamps)
	RegisterCommand(CmdLAGetStates, "la_get_states", handleLAGetStates)

	RegisterCommand(CmdOscCapture, "osc_capture", handleOscCapture)
	RegisterCommand(CmdOscGetCaptureStatus, "osc_get_capture_status", handleOscGetCaptureStatus)
	RegisterCommand(CmdOscConfigureTrigger, "osc_configure_trigger", handleOscConfigureTrigger)
	RegisterCommand(CmdOscSetGain, "osc_set_gain", handleOscSetGain)

	RegisterCommand(CmdBufferRead, "buffer_read", handleBufferRead)
}

// decodeEdge validates a wire edge selector.
func decodeEdge(data *[]byte) (Edge, error) {
	v, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return EdgeNone, err
	}
	if v > uint32(EdgeRising) {
		return EdgeNone, ErrInvalidArgument
	}
	return Edge(v), nil
}

// decodeChannel validates a wire channel selector; 0xFF means none.
func decodeChannel(data *[]byte) (Channel, error) {
	v, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return ChannelNone, err
	}
	if v == uint32(ChannelNone) {
		return ChannelNone, nil
	}
	if v >= ChannelCount {
		return ChannelNone, ErrInvalidArgument
	}
	return Channel(v), nil
}

func handleGetIdentity(data *[]byte) error {
	SendReply(CmdGetIdentity, protocol.RspSuccess, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQString(output, DeviceName)
		protocol.EncodeVLQString(output, protocol.Version)
		protocol.EncodeVLQUint(output, ChannelCount)
		protocol.EncodeVLQUint(output, BufferCapacity)
	})
	return nil
}

// handleGetClock reports the undivided capture clock frequency so the
// host can turn tick counts into time.
func handleGetClock(data *[]byte) error {
	freq := MustCaptureClock().Frequency()
	SendReply(CmdGetClock, protocol.RspSuccess, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, freq)
	})
	return nil
}

// handleReset acknowledges first and defers the actual reset to the
// main loop so the reply reaches the host.
func handleReset(data *[]byte) error {
	SendReply(CmdReset, protocol.RspSuccess, nil)
	atomic.StoreUint32(&resetPending, 1)
	return nil
}

// la_capture num_channels events capture_edge trigger_channel trigger_edge
func handleLACapture(data *[]byte) error {
	numChannels, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	events, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	captureEdge, err := decodeEdge(data)
	if err != nil {
		return err
	}
	triggerChan, err := decodeChannel(data)
	if err != nil {
		return err
	}
	triggerEdge, err := decodeEdge(data)
	if err != nil {
		return err
	}
	if numChannels > ChannelCount || events > 0xFFFF {
		return ErrInvalidArgument
	}
	if err := Logic.Capture(uint8(numChannels), uint16(events), captureEdge, triggerChan, triggerEdge); err != nil {
		return err
	}
	SendReply(CmdLACapture, protocol.RspSuccess, nil)
	return nil
}

func handleLAStop(data *[]byte) error {
	Logic.Stop()
	SendReply(CmdLAStop, protocol.RspSuccess, nil)
	return nil
}

func handleLAGetProgress(data *[]byte) error {
	p := Logic.Progress()
	SendReply(CmdLAGetProgress, protocol.RspSuccess, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(p.Channels))
		if p.Done {
			protocol.EncodeVLQUint(output, 1)
		} else {
			protocol.EncodeVLQUint(output, 0)
		}
		for i := uint8(0); i < p.Channels; i++ {
			protocol.EncodeVLQUint(output, uint32(p.Captured[i]))
		}
	})
	return nil
}

// la_get_timestamps converts the capture buffer to deltas in place and
// reports the session metadata; the host drains the deltas themselves
// with buffer_read.
func handleLAGetTimestamps(data *[]byte) error {
	rep := Logic.Timestamps()
	SendReply(CmdLAGetTimestamps, protocol.RspSuccess, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(rep.InitialStates))
		protocol.EncodeVLQUint(output, rep.Scaling)
		protocol.EncodeVLQUint(output, uint32(rep.Channels))
		for i := uint8(0); i < rep.Channels; i++ {
			protocol.EncodeVLQUint(output, uint32(rep.Events[i]))
		}
	})
	return nil
}

func handleLAGetStates(data *[]byte) error {
	states := Logic.States()
	SendReply(CmdLAGetStates, protocol.RspSuccess, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(states))
	})
	return nil
}

// osc_capture num_channels samples interval_ticks
// Reply carries, per channel, volts-per-count in nanovolts and the
// offset in microvolts; the host divides back to volts.
func handleOscCapture(data *[]byte) error {
	numChannels, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	samples, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	interval, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if numChannels > ChannelCount || samples > 0xFFFF {
		return ErrInvalidArgument
	}
	n := uint8(numChannels)
	scales, err := Scope.Capture(n, uint16(samples), interval)
	if err != nil {
		return err
	}
	SendReply(CmdOscCapture, protocol.RspSuccess, func(output protocol.OutputBuffer) {
		for i := uint8(0); i < n; i++ {
			protocol.EncodeVLQUint(output, uint32(scales[i].VoltsPerCount*1e9))
			protocol.EncodeVLQInt(output, int32(scales[i].Offset*1e6))
		}
	})
	return nil
}

func handleOscGetCaptureStatus(data *[]byte) error {
	p := Scope.Status()
	SendReply(CmdOscGetCaptureStatus, protocol.RspSuccess, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(p.Channels))
		if p.Done {
			protocol.EncodeVLQUint(output, 1)
		} else {
			protocol.EncodeVLQUint(output, 0)
		}
		for i := uint8(0); i < p.Channels; i++ {
			protocol.EncodeVLQUint(output, uint32(p.Captured[i]))
		}
	})
	return nil
}

// osc_configure_trigger channel level_microvolts edge timeout_samples
func handleOscConfigureTrigger(data *[]byte) error {
	ch, err := decodeChannel(data)
	if err != nil {
		return err
	}
	microvolts, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	edge, err := decodeEdge(data)
	if err != nil {
		return err
	}
	timeout, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if err := Scope.ConfigureTrigger(ch, float32(microvolts)/1e6, edge, timeout); err != nil {
		return err
	}
	SendReply(CmdOscConfigureTrigger, protocol.RspSuccess, nil)
	return nil
}

func handleOscSetGain(data *[]byte) error {
	ch, err := decodeChannel(data)
	if err != nil {
		return err
	}
	gain, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if gain >= uint32(gainCount) {
		return ErrInvalidArgument
	}
	if ch == ChannelNone {
		return ErrFailed
	}
	if err := Scope.SetGain(ch, Gain(gain)); err != nil {
		return err
	}
	SendReply(CmdOscSetGain, protocol.RspSuccess, nil)
	return nil
}

// buffer_read offset count
func handleBufferRead(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if offset > 0xFFFF {
		return ErrInvalidArgument
	}
	if count > maxReadSamples {
		count = maxReadSamples
	}
	samples := Buffer.Read(uint16(offset), uint16(count))
	if samples == nil {
		return ErrInvalidArgument
	}
	SendReply(CmdBufferRead, protocol.RspSuccess, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, uint32(len(samples)))
		for _, s := range samples {
			protocol.EncodeVLQUint(output, uint32(s))
		}
	})
	return nil
}
