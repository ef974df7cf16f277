package core

// BufferCapacity is the number of 16-bit samples in the shared capture
// buffer. Both instruments DMA into regions of the same static array,
// so a capture session's total sample count never exceeds this.
const BufferCapacity = 10000

// SampleBuffer is the statically allocated capture memory. The owning
// instrument divides it into equal per-channel regions for a session;
// hosts read it back piecewise after capture completes.
type SampleBuffer struct {
	data [BufferCapacity]uint16
}

// Buffer is the single shared capture buffer.
var Buffer SampleBuffer

// Region returns the DMA destination for one channel of a session that
// splits the buffer into numChannels equal regions. Region boundaries
// depend only on the split, so a host that knows the session shape can
// locate each channel's samples.
func (b *SampleBuffer) Region(ch Channel, numChannels uint8) []uint16 {
	size := BufferCapacity / int(numChannels)
	start := int(ch) * size
	return b.data[start : start+size]
}

// Zero clears the full buffer.
func (b *SampleBuffer) Zero() {
	for i := range b.data {
		b.data[i] = 0
	}
}

// Read returns a view of count samples starting at offset, shortened if
// the request runs past the end. Returns nil if offset is out of range.
func (b *SampleBuffer) Read(offset, count uint16) []uint16 {
	if int(offset) >= BufferCapacity {
		return nil
	}
	end := int(offset) + int(count)
	if end > BufferCapacity {
		end = BufferCapacity
	}
	return b.data[offset:end]
}
