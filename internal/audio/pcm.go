package audio

import (
	"encoding/binary"
	"math"
	"sync"
	"time"
)

// pcmCursor is the read position into decoded audio. It is shared between the
// sink and the output device's callback goroutine.
type pcmCursor struct {
	mu     sync.Mutex
	data   *AudioData
	offset int
	repeat bool
}

func newPCMCursor(data *AudioData, repeat bool) *pcmCursor {
	return &pcmCursor{data: data, repeat: repeat}
}

// read copies whole frames into dst and reports whether the end was reached
// without wrapping. Repeating cursors wrap and never end.
func (c *pcmCursor) read(dst []byte) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame := c.data.BytesPerFrame()
	total := len(c.data.Samples)
	if frame == 0 || total == 0 {
		return 0, true
	}

	want := len(dst) - len(dst)%frame
	n := 0
	for n < want {
		if c.offset >= total {
			if !c.repeat {
				break
			}
			c.offset = 0
		}
		copied := copy(dst[n:want], c.data.Samples[c.offset:])
		c.offset += copied
		n += copied
	}
	return n, !c.repeat && c.offset >= total
}

func (c *pcmCursor) atEnd() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset >= len(c.data.Samples)
}

func (c *pcmCursor) rewind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = 0
}

// seek moves to d, aligned down to a frame; positions past the end are rejected
func (c *pcmCursor) seek(d time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d < 0 {
		return false
	}
	frame := c.data.BytesPerFrame()
	offset := int(int64(d) * int64(c.data.BytesPerSecond()) / int64(time.Second))
	if frame > 0 {
		offset -= offset % frame
	}
	if offset > len(c.data.Samples) {
		return false
	}
	c.offset = offset
	return true
}

func (c *pcmCursor) position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytesToDuration(c.offset, c.data.BytesPerSecond())
}

func (c *pcmCursor) remaining() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.data.Samples) - c.offset)
}

// applyGain scales samples in place. A gain of 1 leaves them untouched.
func applyGain(samples []byte, format SampleFormat, gain float32) {
	if gain == 1 {
		return
	}
	if gain <= 0 {
		silence(samples, format)
		return
	}

	switch format {
	case FormatU8:
		for i := range samples {
			centered := float32(int(samples[i]) - 128)
			samples[i] = byte(clampSample(centered*gain, 127) + 128)
		}
	case FormatS16:
		for i := 0; i+1 < len(samples); i += 2 {
			sample := int16(binary.LittleEndian.Uint16(samples[i:]))
			scaled := int16(clampSample(float32(sample)*gain, math.MaxInt16))
			binary.LittleEndian.PutUint16(samples[i:], uint16(scaled))
		}
	case FormatS24:
		for i := 0; i+2 < len(samples); i += 3 {
			sample := int32(samples[i]) | int32(samples[i+1])<<8 | int32(samples[i+2])<<16
			if sample&0x800000 != 0 {
				sample |= ^0xFFFFFF
			}
			scaled := int32(clampSample(float32(sample)*gain, 0x7FFFFF))
			samples[i] = byte(scaled)
			samples[i+1] = byte(scaled >> 8)
			samples[i+2] = byte(scaled >> 16)
		}
	case FormatS32:
		for i := 0; i+3 < len(samples); i += 4 {
			sample := int32(binary.LittleEndian.Uint32(samples[i:]))
			scaled := int32(clampSample(float32(sample)*gain, math.MaxInt32))
			binary.LittleEndian.PutUint32(samples[i:], uint32(scaled))
		}
	case FormatF32:
		for i := 0; i+3 < len(samples); i += 4 {
			sample := math.Float32frombits(binary.LittleEndian.Uint32(samples[i:]))
			binary.LittleEndian.PutUint32(samples[i:], math.Float32bits(sample*gain))
		}
	}
}

func clampSample(v float32, limit float64) float64 {
	return math.Max(-limit-1, math.Min(limit, float64(v)))
}

// silence fills samples with the format's zero level
func silence(samples []byte, format SampleFormat) {
	zero := byte(0)
	if format == FormatU8 {
		zero = 128
	}
	for i := range samples {
		samples[i] = zero
	}
}

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
