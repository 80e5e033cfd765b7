package audio

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	registry := NewDefaultRegistry()

	assert.Equal(t, []string{"WAV", "MP3", "AIFF"}, registry.SupportedFormats())
	assert.Equal(t, []string{".wav", ".mp3", ".aiff"}, registry.Extensions())
}

func TestRegistryIgnoresNilDecoder(t *testing.T) {
	registry := NewDecoderRegistry()
	registry.Register(nil)
	assert.Empty(t, registry.SupportedFormats())
}

func TestDetectFormat(t *testing.T) {
	registry := NewDefaultRegistry()

	testCases := []struct {
		filename string
		expected string
	}{
		{"chime.wav", "WAV"},
		{"chime.MP3", "MP3"},
		{"chime.aif", "AIFF"},
		{"chime.ogg", ""},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.filename, func(t *testing.T) {
			decoder := registry.DetectFormat(tc.filename)
			if tc.expected == "" {
				assert.Nil(t, decoder)
				return
			}
			require.NotNil(t, decoder)
			assert.Equal(t, tc.expected, decoder.FormatName())
		})
	}
}

func TestDetectFormatWithContent(t *testing.T) {
	registry := NewDefaultRegistry()

	t.Run("magic bytes win over extension", func(t *testing.T) {
		decoder := registry.DetectFormatWithContent("mislabeled.mp3", generateTestWAV(44100, 1, 10))
		require.NotNil(t, decoder)
		assert.Equal(t, "WAV", decoder.FormatName())
	})

	t.Run("aiff magic", func(t *testing.T) {
		decoder := registry.DetectFormatWithContent("stream", createMinimalAiffFile(44100, 1, 16, 10))
		require.NotNil(t, decoder)
		assert.Equal(t, "AIFF", decoder.FormatName())
	})

	t.Run("unknown content falls back to extension", func(t *testing.T) {
		decoder := registry.DetectFormatWithContent("chime.wav", []byte("plain text"))
		require.NotNil(t, decoder)
		assert.Equal(t, "WAV", decoder.FormatName())
	})

	t.Run("empty content uses extension", func(t *testing.T) {
		decoder := registry.DetectFormatWithContent("chime.aiff", nil)
		require.NotNil(t, decoder)
		assert.Equal(t, "AIFF", decoder.FormatName())
	})

	t.Run("nothing matches", func(t *testing.T) {
		assert.Nil(t, registry.DetectFormatWithContent("stream", []byte("plain text")))
	})
}

func TestRegistryDecode(t *testing.T) {
	registry := NewDefaultRegistry()

	data, err := registry.Decode("stream", bytes.NewReader(generateTestWAV(8000, 1, 80)))
	require.NoError(t, err)
	assert.Equal(t, uint32(8000), data.SampleRate)
	assert.Len(t, data.Samples, 160)

	_, err = registry.Decode("stream", bytes.NewReader([]byte("plain text")))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestRegistryDecodeReadFailure(t *testing.T) {
	_, err := NewDefaultRegistry().Decode("broken.wav", failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}
