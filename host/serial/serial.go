// Package serial abstracts the host-side serial link to the device.
package serial

import (
	"io"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Mock serial (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC ignores this)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns a default configuration for the instrument link
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200, // Nominal; the CDC link runs at USB speed
		ReadTimeout: 100,    // 100ms read timeout
	}
}
