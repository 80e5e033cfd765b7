package audio

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"audiochan.click/internal/channel"
)

// generateTestWAV builds a 16-bit PCM WAV file. Sample values ramp so that
// positions inside the data are distinguishable.
func generateTestWAV(sampleRate, channels, frames int) []byte {
	dataSize := frames * channels * 2

	wav := make([]byte, 0, 44+dataSize)
	wav = append(wav, "RIFF"...)
	wav = binary.LittleEndian.AppendUint32(wav, uint32(36+dataSize))
	wav = append(wav, "WAVE"...)

	wav = append(wav, "fmt "...)
	wav = binary.LittleEndian.AppendUint32(wav, 16)
	wav = binary.LittleEndian.AppendUint16(wav, 1) // PCM
	wav = binary.LittleEndian.AppendUint16(wav, uint16(channels))
	wav = binary.LittleEndian.AppendUint32(wav, uint32(sampleRate))
	wav = binary.LittleEndian.AppendUint32(wav, uint32(sampleRate*channels*2))
	wav = binary.LittleEndian.AppendUint16(wav, uint16(channels*2))
	wav = binary.LittleEndian.AppendUint16(wav, 16)

	wav = append(wav, "data"...)
	wav = binary.LittleEndian.AppendUint32(wav, uint32(dataSize))
	for i := range frames * channels {
		wav = binary.LittleEndian.AppendUint16(wav, uint16(int16(i%1000)))
	}
	return wav
}

// createMinimalAiffFile builds a silent big-endian AIFF file
func createMinimalAiffFile(sampleRate, channels, bitDepth, numSamples int) []byte {
	dataSize := numSamples * channels * (bitDepth / 8)

	comm := make([]byte, 0, 18)
	comm = binary.BigEndian.AppendUint16(comm, uint16(channels))
	comm = binary.BigEndian.AppendUint32(comm, uint32(numSamples))
	comm = binary.BigEndian.AppendUint16(comm, uint16(bitDepth))
	comm = append(comm, ieeeExtended(sampleRate)...)

	ssnd := make([]byte, 8+dataSize)

	var buf []byte
	buf = append(buf, "FORM"...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(4+8+len(comm)+8+len(ssnd)))
	buf = append(buf, "AIFF"...)
	buf = append(buf, "COMM"...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(comm)))
	buf = append(buf, comm...)
	buf = append(buf, "SSND"...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(ssnd)))
	buf = append(buf, ssnd...)
	return buf
}

// ieeeExtended encodes the sample rates used in tests as 80-bit floats
func ieeeExtended(rate int) []byte {
	switch rate {
	case 48000:
		return []byte{0x40, 0x0E, 0xBB, 0x80, 0, 0, 0, 0, 0, 0}
	case 22050:
		return []byte{0x40, 0x0D, 0xAC, 0x44, 0, 0, 0, 0, 0, 0}
	default:
		return []byte{0x40, 0x0E, 0xAC, 0x44, 0, 0, 0, 0, 0, 0}
	}
}

// fakeBackend hands the pull callback to the test instead of a device
type fakeBackend struct {
	mu        sync.Mutex
	pull      func([]byte) int
	data      *AudioData
	running   bool
	opens     int
	starts    int
	stops     int
	closed    bool
	failOpen  bool
	failStart bool
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Open(data *AudioData, pull func([]byte) int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failOpen {
		return ErrBackendNotAvailable
	}
	b.opens++
	b.data = data
	b.pull = pull
	b.running = false
	return nil
}

func (b *fakeBackend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failStart {
		return ErrBackendNotAvailable
	}
	b.starts++
	b.running = true
	return nil
}

func (b *fakeBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
	b.running = false
	return nil
}

func (b *fakeBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.running = false
	return nil
}

func (b *fakeBackend) isRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// render pulls n bytes as the device would
func (b *fakeBackend) render(n int) []byte {
	b.mu.Lock()
	pull := b.pull
	b.mu.Unlock()

	buf := make([]byte, n)
	pull(buf)
	return buf
}

type mediaErrorReport struct {
	id   channel.SourceID
	code channel.MediaError
}

// reportRecorder is a channel.SinkReporter that remembers everything
type reportRecorder struct {
	mu     sync.Mutex
	states []channel.MediaState
	errors []mediaErrorReport
	focus  []channel.FocusAction
}

func (r *reportRecorder) MediaStateChanged(_ channel.SourceID, state channel.MediaState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *reportRecorder) MediaError(id channel.SourceID, code channel.MediaError, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, mediaErrorReport{id: id, code: code})
}

func (r *reportRecorder) FocusAction(_ channel.SourceID, action channel.FocusAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focus = append(r.focus, action)
}

func (r *reportRecorder) stateList() []channel.MediaState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]channel.MediaState(nil), r.states...)
}

func (r *reportRecorder) errorList() []mediaErrorReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mediaErrorReport(nil), r.errors...)
}

func (r *reportRecorder) last() channel.MediaState {
	states := r.stateList()
	if len(states) == 0 {
		return -1
	}
	return states[len(states)-1]
}

func (r *reportRecorder) waitForState(t *testing.T, state channel.MediaState) {
	t.Helper()
	require.Eventually(t, func() bool { return r.last() == state }, 2*time.Second, 5*time.Millisecond,
		"expected last reported state %v, got %v", state, r.stateList())
}
