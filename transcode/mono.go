package transcode

import "io"

// MonoReader averages the channels of a Source into a single channel.
// Partial frames left by a short read are carried into the next call.
type MonoReader struct {
	src      Source
	channels int
	tmp      []float32
	carry    int // samples of an incomplete frame at the front of tmp
	err      error
}

// NewMonoReader wraps src. Mono sources pass through untouched.
func NewMonoReader(src Source) *MonoReader {
	return &MonoReader{src: src, channels: src.Channels()}
}

// SampleRate returns the source rate
func (m *MonoReader) SampleRate() int { return m.src.SampleRate() }

// Read fills dst with up to len(dst) mono samples. It returns io.EOF when
// the source is exhausted and no complete frame remains.
func (m *MonoReader) Read(dst []float32) (int, error) {
	if m.channels <= 1 {
		return m.src.ReadSamples(dst)
	}
	if m.err != nil {
		return 0, m.err
	}
	if len(dst) == 0 {
		return 0, nil
	}

	need := len(dst) * m.channels
	if cap(m.tmp) < need {
		grown := make([]float32, need)
		copy(grown, m.tmp[:m.carry])
		m.tmp = grown
	}
	m.tmp = m.tmp[:need]

	n, err := m.src.ReadSamples(m.tmp[m.carry:])
	total := m.carry + n
	frames := total / m.channels
	inv := 1 / float32(m.channels)
	for f := range frames {
		var sum float32
		for _, v := range m.tmp[f*m.channels : (f+1)*m.channels] {
			sum += v
		}
		dst[f] = sum * inv
	}
	m.carry = copy(m.tmp, m.tmp[frames*m.channels:total])

	if err != nil {
		m.err = err
		if frames > 0 {
			// report the samples now, the error on the next call
			return frames, nil
		}
		if err == io.EOF {
			m.carry = 0
		}
		return 0, err
	}
	return frames, nil
}
