package core

import "testing"

func TestBufferRegionCarving(t *testing.T) {
	for num := uint8(1); num <= ChannelCount; num++ {
		size := BufferCapacity / int(num)
		total := 0
		for ch := Channel(0); ch < Channel(num); ch++ {
			region := Buffer.Region(ch, num)
			if len(region) != size {
				t.Errorf("num=%d ch=%d: region size %d, want %d", num, ch, len(region), size)
			}
			total += len(region)
		}
		if total > BufferCapacity {
			t.Errorf("num=%d: regions exceed capacity (%d)", num, total)
		}
	}
}

func TestBufferRegionsDoNotOverlap(t *testing.T) {
	Buffer.Zero()
	for ch := Channel(0); ch < 3; ch++ {
		region := Buffer.Region(ch, 3)
		for i := range region {
			region[i] = uint16(ch) + 1
		}
	}
	for ch := Channel(0); ch < 3; ch++ {
		region := Buffer.Region(ch, 3)
		for i, v := range region {
			if v != uint16(ch)+1 {
				t.Fatalf("ch=%d idx=%d clobbered: %d", ch, i, v)
			}
		}
	}
}

func TestBufferRead(t *testing.T) {
	Buffer.Zero()
	Buffer.data[10] = 111
	Buffer.data[11] = 222

	got := Buffer.Read(10, 2)
	if len(got) != 2 || got[0] != 111 || got[1] != 222 {
		t.Errorf("Read(10,2) = %v", got)
	}

	// Shortened at the end.
	got = Buffer.Read(BufferCapacity-3, 10)
	if len(got) != 3 {
		t.Errorf("tail read length = %d, want 3", len(got))
	}

	if Buffer.Read(BufferCapacity, 1) != nil {
		t.Error("out-of-range read did not fail")
	}
}
