package common

// CircularBuffer keeps the most recent size values of a stream.
// Writing into a full buffer overwrites the oldest value.
type CircularBuffer struct {
	buffer   []float64
	size     int
	writePos int
	readPos  int
	count    int
}

// NewCircularBuffer creates a new circular buffer
func NewCircularBuffer(size int) *CircularBuffer {
	if size <= 0 {
		panic("common: circular buffer size must be positive")
	}
	return &CircularBuffer{
		buffer: make([]float64, size),
		size:   size,
	}
}

// Push appends one value, evicting the oldest when full.
func (cb *CircularBuffer) Push(value float64) {
	cb.buffer[cb.writePos] = value
	cb.writePos = (cb.writePos + 1) % cb.size
	if cb.count < cb.size {
		cb.count++
	} else {
		cb.readPos = (cb.readPos + 1) % cb.size
	}
}

// Write adds data to the buffer
func (cb *CircularBuffer) Write(data []float64) int {
	for _, v := range data {
		cb.Push(v)
	}
	return len(data)
}

// Peek copies buffered values, oldest first, without consuming them
func (cb *CircularBuffer) Peek(data []float64) int {
	read := 0
	pos := cb.readPos
	for read < len(data) && read < cb.count {
		data[read] = cb.buffer[pos]
		pos = (pos + 1) % cb.size
		read++
	}
	return read
}

// Sum adds up the buffered values in insertion order.
func (cb *CircularBuffer) Sum() float64 {
	sum := 0.0
	pos := cb.readPos
	for range cb.count {
		sum += cb.buffer[pos]
		pos = (pos + 1) % cb.size
	}
	return sum
}

// Available returns number of values currently buffered
func (cb *CircularBuffer) Available() int {
	return cb.count
}

// Clear empties the buffer
func (cb *CircularBuffer) Clear() {
	cb.writePos = 0
	cb.readPos = 0
	cb.count = 0
}

// IsFull returns true if buffer is full
func (cb *CircularBuffer) IsFull() bool {
	return cb.count == cb.size
}
