package protocol

import "testing"

func TestSliceInputBuffer(t *testing.T) {
	buf := NewSliceInputBuffer([]byte{1, 2, 3, 4, 5})

	if buf.Available() != 5 {
		t.Errorf("Available = %d, want 5", buf.Available())
	}
	if len(buf.Data()) != 5 {
		t.Errorf("Data length = %d, want 5", len(buf.Data()))
	}

	buf.Pop(2)
	if buf.Available() != 3 {
		t.Errorf("Available after Pop(2) = %d, want 3", buf.Available())
	}
	if data := buf.Data(); len(data) != 3 || data[0] != 3 {
		t.Errorf("Data after Pop(2) = %v, want front byte 3", data)
	}
}

func TestScratchOutput(t *testing.T) {
	scratch := NewScratchOutput()

	scratch.Output([]byte{1, 2, 3})
	if scratch.CurPosition() != 3 {
		t.Errorf("CurPosition = %d, want 3", scratch.CurPosition())
	}
	if len(scratch.Result()) != 3 {
		t.Errorf("Result length = %d, want 3", len(scratch.Result()))
	}

	scratch.Output([]byte{4, 5})
	if scratch.CurPosition() != 5 {
		t.Errorf("CurPosition = %d, want 5", scratch.CurPosition())
	}

	// The framer patches the length byte in place.
	scratch.Update(0, 99)
	if scratch.Result()[0] != 99 {
		t.Errorf("byte after Update = %d, want 99", scratch.Result()[0])
	}

	if since := scratch.DataSince(2); len(since) != 3 || since[0] != 3 {
		t.Errorf("DataSince(2) = %v, want [3 4 5]", since)
	}

	scratch.Reset()
	if scratch.CurPosition() != 0 {
		t.Errorf("CurPosition after Reset = %d, want 0", scratch.CurPosition())
	}
}

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(10)

	if !fifo.IsEmpty() {
		t.Error("fresh buffer not empty")
	}
	if fifo.Available() != 0 {
		t.Errorf("Available = %d, want 0", fifo.Available())
	}

	if written := fifo.Write([]byte{1, 2, 3, 4, 5}); written != 5 {
		t.Errorf("Write = %d, want 5", written)
	}
	if fifo.Available() != 5 {
		t.Errorf("Available = %d, want 5", fifo.Available())
	}

	readBuf := make([]byte, 3)
	if read := fifo.Read(readBuf); read != 3 {
		t.Errorf("Read = %d, want 3", read)
	}
	if readBuf[0] != 1 || readBuf[1] != 2 || readBuf[2] != 3 {
		t.Errorf("read bytes = %v, want [1 2 3]", readBuf)
	}
	if fifo.Available() != 2 {
		t.Errorf("Available after Read = %d, want 2", fifo.Available())
	}

	fifo.Pop(1)
	if fifo.Available() != 1 {
		t.Errorf("Available after Pop = %d, want 1", fifo.Available())
	}

	// One slot stays reserved, so a size-10 ring holds 9 bytes.
	fifo.Reset()
	bigData := make([]byte, 12)
	for i := range bigData {
		bigData[i] = byte(i)
	}
	if written := fifo.Write(bigData); written != 9 {
		t.Errorf("Write into full ring = %d, want 9", written)
	}
}

// TestFifoBufferWrapAround reads across the wrap point and checks byte
// order survives.
func TestFifoBufferWrapAround(t *testing.T) {
	fifo := NewFifoBuffer(5)

	fifo.Write([]byte{1, 2, 3, 4})
	fifo.Read(make([]byte, 2))

	if written := fifo.Write([]byte{5, 6}); written != 2 {
		t.Errorf("wrapped Write = %d, want 2", written)
	}

	allData := make([]byte, 4)
	if read := fifo.Read(allData); read != 4 {
		t.Errorf("Read across wrap = %d, want 4", read)
	}
	if allData[0] != 3 || allData[1] != 4 || allData[2] != 5 || allData[3] != 6 {
		t.Errorf("bytes across wrap = %v, want [3 4 5 6]", allData)
	}
}
