package audio

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLength is how much content is handed to mimetype for magic detection
const sniffLength = 512

// DecoderRegistry manages audio format decoders and provides format detection
type DecoderRegistry struct {
	decoders []Decoder
}

// NewDecoderRegistry creates a new empty decoder registry
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{}
}

// NewDefaultRegistry creates a registry with WAV, MP3 and AIFF decoders
func NewDefaultRegistry() *DecoderRegistry {
	registry := NewDecoderRegistry()
	registry.Register(NewWavDecoder())
	registry.Register(NewMp3Decoder())
	registry.Register(NewAiffDecoder())

	slog.Debug("default decoder registry initialized", "supported_formats", registry.SupportedFormats())
	return registry
}

// Register adds a decoder; earlier registrations win extension ties
func (r *DecoderRegistry) Register(decoder Decoder) {
	if decoder == nil {
		slog.Warn("attempted to register nil decoder")
		return
	}
	r.decoders = append(r.decoders, decoder)
}

// SupportedFormats returns the names of all registered formats
func (r *DecoderRegistry) SupportedFormats() []string {
	formats := make([]string, 0, len(r.decoders))
	for _, decoder := range r.decoders {
		formats = append(formats, decoder.FormatName())
	}
	return formats
}

// Extensions returns the file extensions the registry can resolve, in priority order
func (r *DecoderRegistry) Extensions() []string {
	extensions := make([]string, 0, len(r.decoders))
	for _, decoder := range r.decoders {
		extensions = append(extensions, "."+strings.ToLower(decoder.FormatName()))
	}
	return extensions
}

// DetectFormat detects the decoder from the filename extension only
func (r *DecoderRegistry) DetectFormat(filename string) Decoder {
	if filename == "" {
		return nil
	}
	for _, decoder := range r.decoders {
		if decoder.CanDecode(filename) {
			return decoder
		}
	}
	return nil
}

// DetectFormatWithContent prefers magic bytes and falls back to the extension
func (r *DecoderRegistry) DetectFormatWithContent(filename string, header []byte) Decoder {
	if len(header) == 0 {
		slog.Debug("empty content, using extension fallback", "filename", filename)
		return r.DetectFormat(filename)
	}

	detected := mimetype.Detect(header)
	var decoder Decoder
	switch {
	case detected.Is("audio/wav"):
		decoder = r.findDecoderByFormat("WAV")
	case detected.Is("audio/mpeg"):
		decoder = r.findDecoderByFormat("MP3")
	case detected.Is("audio/aiff"):
		decoder = r.findDecoderByFormat("AIFF")
	}

	if decoder != nil {
		slog.Debug("format detected by magic bytes",
			"filename", filename,
			"format", decoder.FormatName(),
			"mime_type", detected.String())
		return decoder
	}

	decoder = r.DetectFormat(filename)
	if decoder == nil {
		slog.Warn("no format detection method succeeded", "filename", filename, "mime_type", detected.String())
	}
	return decoder
}

func (r *DecoderRegistry) findDecoderByFormat(formatName string) Decoder {
	for _, decoder := range r.decoders {
		if strings.EqualFold(decoder.FormatName(), formatName) {
			return decoder
		}
	}
	return nil
}

// Decode buffers reader, picks a decoder and decodes it. name is used for
// extension fallback and logging only.
func (r *DecoderRegistry) Decode(name string, reader io.Reader) (*AudioData, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("failed to read content for decode", "name", name, "error", err)
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	decoder := r.DetectFormatWithContent(name, content[:min(len(content), sniffLength)])
	if decoder == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	audioData, err := decoder.Decode(bytes.NewReader(content))
	if err != nil {
		slog.Error("decode failed", "name", name, "format", decoder.FormatName(), "error", err)
		return nil, fmt.Errorf("decode %s as %s: %w", name, decoder.FormatName(), err)
	}

	slog.Info("audio decoded",
		"name", name,
		"format", decoder.FormatName(),
		"channels", audioData.Channels,
		"sample_rate", audioData.SampleRate,
		"duration", audioData.Duration())

	return audioData, nil
}
