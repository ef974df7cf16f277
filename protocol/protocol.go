// Package protocol implements the picolab serial link: framed messages
// with a length/sequence header, CRC16 trailer and sync byte, carrying
// VLQ-encoded command IDs and arguments.
package protocol

// Version is the picolab firmware version reported by get_identity.
const Version = "0.1.0"

// Framing constants
const (
	MessageMax     = 512 // Maximum output buffer size (holds several frames)
	MessageMin     = 5   // Minimum message size (header + CRC + sync)
	MessageHeader  = 2   // Message header size
	MessageTrailer = 3   // Message trailer size (CRC + sync)

	// Message sequence masks
	MessageSeqMask  = 0x0F
	MessageSeqShift = 4
)

// Response codes carried as the first field of every command reply.
// Distinct outcomes per the instrument error taxonomy: argument
// validation failures and busy/locked states are reported, never
// silently ignored.
const (
	RspSuccess        = 0
	RspFailed         = 1
	RspArgumentError  = 2
	RspBusy           = 3
	RspUnknownCommand = 4
)
