// Package instrument is the host-side client for a picolab device. It
// speaks the framed command protocol over a serial port and exposes the
// logic analyzer and oscilloscope operations as plain method calls.
package instrument

import (
	"fmt"
	"time"

	"picolab/host/serial"
	"picolab/protocol"
)

// Wire selectors, matching the device's command surface.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeAny
	EdgeFalling
	EdgeRising
)

type Channel uint8

const (
	Channel1 Channel = iota
	Channel2
	Channel3
	Channel4

	ChannelCount = 4

	// ChannelNone disables trigger channel selection.
	ChannelNone Channel = 0xFF
)

// Gain selects a programmable amplifier setting on CH1/CH2.
type Gain uint8

const (
	GainX1 Gain = iota
	GainX2
	GainX4
	GainX5
	GainX8
	GainX10
	GainX16
	GainX32
)

// Command IDs, fixed on both sides of the link.
const (
	cmdGetIdentity uint16 = 0x00
	cmdGetClock    uint16 = 0x01
	cmdReset       uint16 = 0x02

	cmdLACapture       uint16 = 0x10
	cmdLAStop          uint16 = 0x11
	cmdLAGetProgress   uint16 = 0x12
	cmdLAGetTimestamps uint16 = 0x13
	cmdLAGetStates     uint16 = 0x14

	cmdOscCapture          uint16 = 0x20
	cmdOscGetCaptureStatus uint16 = 0x21
	cmdOscConfigureTrigger uint16 = 0x22
	cmdOscSetGain          uint16 = 0x23

	cmdBufferRead uint16 = 0x30
)

// Device-reported failures, mapped from reply response codes.
var (
	ErrFailed         = fmt.Errorf("device reported failure")
	ErrArgument       = fmt.Errorf("device rejected arguments")
	ErrBusy           = fmt.Errorf("device busy")
	ErrUnknownCommand = fmt.Errorf("device does not know command")
)

func codeToError(code uint32) error {
	switch code {
	case protocol.RspSuccess:
		return nil
	case protocol.RspArgumentError:
		return ErrArgument
	case protocol.RspBusy:
		return ErrBusy
	case protocol.RspUnknownCommand:
		return ErrUnknownCommand
	default:
		return ErrFailed
	}
}

// Identity describes the connected device.
type Identity struct {
	Name           string
	Version        string
	Channels       uint32
	BufferCapacity uint32
}

// Progress reports per-channel sample counts of a capture session.
type Progress struct {
	Channels uint8
	Done     bool
	Captured []uint32
}

// ChannelScale converts raw oscilloscope counts to volts:
// volts = count*VoltsPerCount + Offset.
type ChannelScale struct {
	VoltsPerCount float64
	Offset        float64
}

// LogicCapture holds a completed logic analyzer readout: per-channel
// edge timestamps in seconds from capture start.
type LogicCapture struct {
	InitialStates uint8
	Timestamps    [][]float64
}

// Client is a connection to a picolab device.
type Client struct {
	transport *protocol.HostTransport
	port      serial.Port
	connected bool

	// Cached from get_identity after Connect.
	identity Identity
}

// Connect opens the serial device and verifies the instrument identity.
func Connect(device string) (*Client, error) {
	return ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig opens a connection with a custom serial config.
func ConnectWithConfig(cfg *serial.Config) (*Client, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}

	c := &Client{
		port:      port,
		transport: protocol.NewHostTransport(port),
		connected: true,
	}

	// Give the device time to settle if it just enumerated.
	time.Sleep(100 * time.Millisecond)

	ident, err := c.GetIdentity()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("identity check failed: %w", err)
	}
	c.identity = ident
	return c, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.connected = false
	if c.transport != nil {
		return c.transport.Close()
	}
	return nil
}

// Identity returns the identity cached at connect time.
func (c *Client) Identity() Identity {
	return c.identity
}

// call sends one command and returns the reply fields after stripping
// the echoed command ID and checking the response code.
func (c *Client) call(cmdID uint16, args func(output protocol.OutputBuffer)) ([]byte, error) {
	if !c.connected {
		return nil, fmt.Errorf("not connected")
	}
	if err := c.transport.SendCommand(cmdID, args); err != nil {
		return nil, fmt.Errorf("send failed: %w", err)
	}

	// Replies echo the command ID; skip anything else on the wire.
	deadline := time.Now().Add(2 * time.Second)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("reply timeout for command 0x%02x", cmdID)
		}
		msg, err := c.transport.ReceiveResponse(remaining)
		if err != nil {
			return nil, fmt.Errorf("receive failed: %w", err)
		}

		payload := msg.Payload
		gotID, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			continue
		}
		if uint16(gotID) != cmdID {
			continue
		}
		code, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, fmt.Errorf("malformed reply: %w", err)
		}
		if err := codeToError(code); err != nil {
			return nil, err
		}
		return payload, nil
	}
}

// GetIdentity queries the device name, firmware version and capture
// geometry.
func (c *Client) GetIdentity() (Identity, error) {
	fields, err := c.call(cmdGetIdentity, nil)
	if err != nil {
		return Identity{}, err
	}
	var ident Identity
	if ident.Name, err = protocol.DecodeVLQString(&fields); err != nil {
		return Identity{}, err
	}
	if ident.Version, err = protocol.DecodeVLQString(&fields); err != nil {
		return Identity{}, err
	}
	if ident.Channels, err = protocol.DecodeVLQUint(&fields); err != nil {
		return Identity{}, err
	}
	if ident.BufferCapacity, err = protocol.DecodeVLQUint(&fields); err != nil {
		return Identity{}, err
	}
	return ident, nil
}

// ClockFrequency returns the device capture clock in Hz.
func (c *Client) ClockFrequency() (uint32, error) {
	fields, err := c.call(cmdGetClock, nil)
	if err != nil {
		return 0, err
	}
	return protocol.DecodeVLQUint(&fields)
}

// Reset reboots the device. The connection is unusable afterwards.
func (c *Client) Reset() error {
	_, err := c.call(cmdReset, nil)
	return err
}

// StartLogicCapture begins a logic analyzer session. Pass
// ChannelNone/EdgeNone to start immediately without a trigger.
func (c *Client) StartLogicCapture(numChannels uint8, events uint16, captureEdge Edge, triggerChannel Channel, triggerEdge Edge) error {
	_, err := c.call(cmdLACapture, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(numChannels))
		protocol.EncodeVLQUint(output, uint32(events))
		protocol.EncodeVLQUint(output, uint32(captureEdge))
		protocol.EncodeVLQUint(output, uint32(triggerChannel))
		protocol.EncodeVLQUint(output, uint32(triggerEdge))
	})
	return err
}

// StopLogicCapture aborts the session in flight, freezing progress.
func (c *Client) StopLogicCapture() error {
	_, err := c.call(cmdLAStop, nil)
	return err
}

func decodeProgress(fields []byte) (Progress, error) {
	var p Progress
	channels, err := protocol.DecodeVLQUint(&fields)
	if err != nil {
		return p, err
	}
	done, err := protocol.DecodeVLQUint(&fields)
	if err != nil {
		return p, err
	}
	p.Channels = uint8(channels)
	p.Done = done != 0
	p.Captured = make([]uint32, channels)
	for i := range p.Captured {
		if p.Captured[i], err = protocol.DecodeVLQUint(&fields); err != nil {
			return p, err
		}
	}
	return p, nil
}

// LogicProgress polls per-channel event counts of the current or most
// recent logic analyzer session.
func (c *Client) LogicProgress() (Progress, error) {
	fields, err := c.call(cmdLAGetProgress, nil)
	if err != nil {
		return Progress{}, err
	}
	return decodeProgress(fields)
}

// LogicStates reads the instantaneous digital input levels as a bitmask.
func (c *Client) LogicStates() (uint8, error) {
	fields, err := c.call(cmdLAGetStates, nil)
	if err != nil {
		return 0, err
	}
	states, err := protocol.DecodeVLQUint(&fields)
	return uint8(states), err
}

// FetchLogicCapture retrieves a completed session's timestamps. The
// device converts its capture buffer to deltas in place, so this is a
// one-shot call per session. Timestamps are seconds from capture start.
func (c *Client) FetchLogicCapture() (LogicCapture, error) {
	fields, err := c.call(cmdLAGetTimestamps, nil)
	if err != nil {
		return LogicCapture{}, err
	}

	initialStates, err := protocol.DecodeVLQUint(&fields)
	if err != nil {
		return LogicCapture{}, err
	}
	scaling, err := protocol.DecodeVLQUint(&fields)
	if err != nil {
		return LogicCapture{}, err
	}
	if scaling == 0 {
		return LogicCapture{}, fmt.Errorf("device reported zero timestamp scaling")
	}
	channels, err := protocol.DecodeVLQUint(&fields)
	if err != nil {
		return LogicCapture{}, err
	}
	events := make([]uint32, channels)
	for i := range events {
		if events[i], err = protocol.DecodeVLQUint(&fields); err != nil {
			return LogicCapture{}, err
		}
	}

	out := LogicCapture{
		InitialStates: uint8(initialStates),
		Timestamps:    make([][]float64, channels),
	}

	// Deltas live in the shared sample buffer, one region per channel.
	regionSize := c.identity.BufferCapacity / channels
	for ch := range out.Timestamps {
		deltas, err := c.ReadBuffer(uint32(ch)*regionSize, events[ch])
		if err != nil {
			return LogicCapture{}, err
		}
		ts := make([]float64, len(deltas))
		var ticks float64
		for i, d := range deltas {
			ticks += float64(d)
			ts[i] = ticks / float64(scaling)
		}
		out.Timestamps[ch] = ts
	}
	return out, nil
}

// StartScopeCapture begins an oscilloscope session and returns the
// per-channel count-to-volts scales for decoding the raw buffer.
func (c *Client) StartScopeCapture(numChannels uint8, samples uint16, intervalTicks uint32) ([]ChannelScale, error) {
	fields, err := c.call(cmdOscCapture, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(numChannels))
		protocol.EncodeVLQUint(output, uint32(samples))
		protocol.EncodeVLQUint(output, intervalTicks)
	})
	if err != nil {
		return nil, err
	}

	scales := make([]ChannelScale, numChannels)
	for i := range scales {
		nanovolts, err := protocol.DecodeVLQUint(&fields)
		if err != nil {
			return nil, err
		}
		microvolts, err := protocol.DecodeVLQInt(&fields)
		if err != nil {
			return nil, err
		}
		scales[i] = ChannelScale{
			VoltsPerCount: float64(nanovolts) / 1e9,
			Offset:        float64(microvolts) / 1e6,
		}
	}
	return scales, nil
}

// ScopeStatus polls per-channel sample counts of the current or most
// recent oscilloscope session.
func (c *Client) ScopeStatus() (Progress, error) {
	fields, err := c.call(cmdOscGetCaptureStatus, nil)
	if err != nil {
		return Progress{}, err
	}
	return decodeProgress(fields)
}

// ConfigureTrigger arms a level trigger for subsequent oscilloscope
// captures. ChannelNone or EdgeNone disables triggering. A timeout of
// zero waits forever; otherwise the capture fires after that many
// samples without a crossing.
func (c *Client) ConfigureTrigger(channel Channel, volts float64, edge Edge, timeoutSamples uint32) error {
	_, err := c.call(cmdOscConfigureTrigger, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(channel))
		protocol.EncodeVLQInt(output, int32(volts*1e6))
		protocol.EncodeVLQUint(output, uint32(edge))
		protocol.EncodeVLQUint(output, timeoutSamples)
	})
	return err
}

// SetGain programs the amplifier on CH1 or CH2.
func (c *Client) SetGain(channel Channel, gain Gain) error {
	_, err := c.call(cmdOscSetGain, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(channel))
		protocol.EncodeVLQUint(output, uint32(gain))
	})
	return err
}

// ReadBuffer drains count raw samples starting at offset from the
// device sample buffer, chunking to fit the frame size.
func (c *Client) ReadBuffer(offset, count uint32) ([]uint16, error) {
	samples := make([]uint16, 0, count)
	for uint32(len(samples)) < count {
		chunkOffset := offset + uint32(len(samples))
		remaining := count - uint32(len(samples))
		fields, err := c.call(cmdBufferRead, func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, chunkOffset)
			protocol.EncodeVLQUint(output, remaining)
		})
		if err != nil {
			return nil, err
		}

		gotOffset, err := protocol.DecodeVLQUint(&fields)
		if err != nil {
			return nil, err
		}
		if gotOffset != chunkOffset {
			return nil, fmt.Errorf("offset mismatch: requested %d, got %d", chunkOffset, gotOffset)
		}
		n, err := protocol.DecodeVLQUint(&fields)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		for i := uint32(0); i < n; i++ {
			s, err := protocol.DecodeVLQUint(&fields)
			if err != nil {
				return nil, err
			}
			samples = append(samples, uint16(s))
		}
	}
	return samples, nil
}

// FetchScopeChannel reads one channel's samples from a completed
// oscilloscope session and applies its scale to produce volts.
func (c *Client) FetchScopeChannel(channel Channel, numChannels uint8, samples uint32, scale ChannelScale) ([]float64, error) {
	regionSize := c.identity.BufferCapacity / uint32(numChannels)
	raw, err := c.ReadBuffer(uint32(channel)*regionSize, samples)
	if err != nil {
		return nil, err
	}
	volts := make([]float64, len(raw))
	for i, s := range raw {
		volts[i] = float64(s)*scale.VoltsPerCount + scale.Offset
	}
	return volts, nil
}
