package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// monoS16 is one second of 1 kHz mono 16-bit audio: 2000 bytes
func monoS16() *AudioData {
	return &AudioData{
		Samples:    make([]byte, 2000),
		Channels:   1,
		SampleRate: 1000,
		Format:     FormatS16,
	}
}

func TestCursorReadToEnd(t *testing.T) {
	cursor := newPCMCursor(monoS16(), false)

	buf := make([]byte, 1500)
	n, ended := cursor.read(buf)
	assert.Equal(t, 1500, n)
	assert.False(t, ended)
	assert.Equal(t, 750*time.Millisecond, cursor.position())
	assert.Equal(t, int64(500), cursor.remaining())

	n, ended = cursor.read(buf)
	assert.Equal(t, 500, n)
	assert.True(t, ended)
	assert.True(t, cursor.atEnd())

	cursor.rewind()
	assert.Equal(t, time.Duration(0), cursor.position())
}

func TestCursorReadsWholeFrames(t *testing.T) {
	cursor := newPCMCursor(monoS16(), false)

	n, _ := cursor.read(make([]byte, 7))
	assert.Equal(t, 6, n)
}

func TestCursorRepeatWraps(t *testing.T) {
	cursor := newPCMCursor(monoS16(), true)

	n, ended := cursor.read(make([]byte, 3000))
	assert.Equal(t, 3000, n)
	assert.False(t, ended)
	assert.Equal(t, 500*time.Millisecond, cursor.position())
}

func TestCursorSeek(t *testing.T) {
	cursor := newPCMCursor(monoS16(), false)

	assert.True(t, cursor.seek(250*time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, cursor.position())

	assert.True(t, cursor.seek(time.Second))
	assert.True(t, cursor.atEnd())

	assert.False(t, cursor.seek(2*time.Second))
	assert.False(t, cursor.seek(-time.Millisecond))
	assert.Equal(t, time.Second, cursor.position())
}

func TestCursorEmptyData(t *testing.T) {
	cursor := newPCMCursor(&AudioData{}, true)
	n, ended := cursor.read(make([]byte, 16))
	assert.Zero(t, n)
	assert.True(t, ended)
}

func TestApplyGainS16(t *testing.T) {
	samples := make([]byte, 6)
	binary.LittleEndian.PutUint16(samples[0:], uint16(int16(1000)))
	binary.LittleEndian.PutUint16(samples[2:], uint16(int16(-1000)))
	binary.LittleEndian.PutUint16(samples[4:], uint16(int16(math.MaxInt16)))

	applyGain(samples, FormatS16, 0.5)

	assert.Equal(t, int16(500), int16(binary.LittleEndian.Uint16(samples[0:])))
	assert.Equal(t, int16(-500), int16(binary.LittleEndian.Uint16(samples[2:])))
	assert.Equal(t, int16(16383), int16(binary.LittleEndian.Uint16(samples[4:])))
}

func TestApplyGainClamps(t *testing.T) {
	samples := make([]byte, 2)
	binary.LittleEndian.PutUint16(samples, uint16(int16(30000)))

	applyGain(samples, FormatS16, 2)

	assert.Equal(t, int16(math.MaxInt16), int16(binary.LittleEndian.Uint16(samples)))
}

func TestApplyGainS24(t *testing.T) {
	// -2 in 24-bit two's complement
	samples := []byte{0xFE, 0xFF, 0xFF}
	applyGain(samples, FormatS24, 0.5)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF}, samples)
}

func TestApplyGainF32(t *testing.T) {
	samples := binary.LittleEndian.AppendUint32(nil, math.Float32bits(0.8))
	applyGain(samples, FormatF32, 0.5)
	assert.InDelta(t, 0.4, math.Float32frombits(binary.LittleEndian.Uint32(samples)), 1e-6)
}

func TestApplyGainUnityAndSilence(t *testing.T) {
	samples := []byte{1, 2, 3, 4}
	applyGain(samples, FormatS16, 1)
	assert.Equal(t, []byte{1, 2, 3, 4}, samples)

	applyGain(samples, FormatS16, 0)
	assert.Equal(t, []byte{0, 0, 0, 0}, samples)

	unsigned := []byte{200, 50}
	applyGain(unsigned, FormatU8, 0)
	assert.Equal(t, []byte{128, 128}, unsigned)
}
