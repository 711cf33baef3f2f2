package instrument

// ChannelBuffer is a fixed-capacity sample buffer for one channel. Writes
// are clamped so the buffer never grows past its capacity; samples that do
// not fit are dropped.
type ChannelBuffer struct {
	data    []float64
	written int
}

// NewChannelBuffer allocates a zero-filled buffer of the given capacity
func NewChannelBuffer(capacity int) *ChannelBuffer {
	return &ChannelBuffer{data: make([]float64, capacity)}
}

// Window returns the writable slice of at most count samples at offset.
// It is empty once offset reaches the capacity.
func (b *ChannelBuffer) Window(offset, count int) []float64 {
	if offset < 0 || count <= 0 || offset >= len(b.data) {
		return nil
	}
	end := min(offset+count, len(b.data))
	return b.data[offset:end]
}

// Commit records that n samples were written through a window
func (b *ChannelBuffer) Commit(n int) {
	b.written += n
}

// Written returns the number of samples committed
func (b *ChannelBuffer) Written() int {
	return b.written
}

// Cap returns the buffer capacity
func (b *ChannelBuffer) Cap() int {
	return len(b.data)
}

// Samples returns the full backing slice, gaps included
func (b *ChannelBuffer) Samples() []float64 {
	return b.data
}
