// Package core implements the instrument controllers: a multi-channel
// logic analyzer (timestamped digital edge capture) and an oscilloscope
// (triggered analog waveform capture). The controllers sequence the
// peripheral capability drivers (edge capture, capture clock, change
// notification, analog converter, DMA) into a race-free capture
// pipeline shared between the main command context and interrupt
// callbacks on a single core.
package core

import "errors"

// Channel identifies one of the four parallel capture lanes. Each lane
// has its own edge detector / converter slot and DMA mover.
type Channel uint8

const (
	Channel1 Channel = iota
	Channel2
	Channel3
	Channel4

	// ChannelCount is the number of capture lanes per instrument.
	ChannelCount = 4

	// ChannelNone means "no channel selected" (e.g. no trigger pin).
	ChannelNone Channel = 0xFF
)

// Edge is a logic level transition type.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeAny
	EdgeFalling
	EdgeRising
)

// Instrument error taxonomy. Every failure is reported synchronously to
// the immediate caller; there is no retry logic and no background
// recovery. Interrupt callbacks never produce caller-visible errors.
var (
	// ErrBusy: capture requested while a previous session is in flight.
	ErrBusy = errors.New("instrument busy")
	// ErrInvalidArgument: channel count out of range, null edge type,
	// requested samples exceeding buffer capacity, bad gain selector.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrFailed: generic operational failure, e.g. an unsupported
	// sub-peripheral configuration.
	ErrFailed = errors.New("operation failed")
)
