package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// Supported sink types
const (
	SinkAuto  = "auto"
	SinkMalgo = "malgo"
	SinkOto   = "oto"
	SinkNull  = "null"
)

// Factory errors
var (
	ErrInvalidSinkType    = errors.New("invalid sink type")
	ErrSinkCreationFailed = errors.New("sink creation failed")
)

// SinkFactory creates Sinks from configuration
type SinkFactory struct {
	options  []SinkOption
	backends map[string]func() (OutputBackend, error)
}

// NewSinkFactory creates a factory for the real backends; opts apply to every sink
func NewSinkFactory(opts ...SinkOption) *SinkFactory {
	return &SinkFactory{
		options: opts,
		backends: map[string]func() (OutputBackend, error){
			SinkMalgo: func() (OutputBackend, error) { return NewMalgoBackend() },
			SinkOto:   func() (OutputBackend, error) { return NewOtoBackend() },
			SinkNull:  func() (OutputBackend, error) { return NewNullBackend(), nil },
		},
	}
}

// NewSinkFactoryWithBackends creates a factory with injected backend constructors, for testing
func NewSinkFactoryWithBackends(backends map[string]func() (OutputBackend, error), opts ...SinkOption) *SinkFactory {
	return &SinkFactory{options: opts, backends: backends}
}

// SupportedSinks returns the accepted sink type names
func (f *SinkFactory) SupportedSinks() []string {
	return []string{SinkAuto, SinkMalgo, SinkOto, SinkNull}
}

// IsValidSinkType reports whether sinkType is accepted; empty means auto
func (f *SinkFactory) IsValidSinkType(sinkType string) bool {
	return sinkType == "" || slices.Contains(f.SupportedSinks(), sinkType)
}

// CreateSink builds a sink of the given type. Auto tries malgo, then oto,
// then falls back to the null sink so a channel can always be created.
func (f *SinkFactory) CreateSink(sinkType string) (*Sink, error) {
	if sinkType == "" {
		sinkType = SinkAuto
	}
	slog.Debug("creating audio sink", "type", sinkType)

	if sinkType == SinkAuto {
		return f.createAuto()
	}
	if !f.IsValidSinkType(sinkType) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSinkType, sinkType)
	}
	return f.create(sinkType)
}

func (f *SinkFactory) createAuto() (*Sink, error) {
	var errs []error
	for _, sinkType := range []string{SinkMalgo, SinkOto, SinkNull} {
		sink, err := f.create(sinkType)
		if err == nil {
			slog.Debug("auto-detected audio sink", "type", sinkType)
			return sink, nil
		}
		slog.Debug("audio sink unavailable", "type", sinkType, "error", err)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrSinkCreationFailed, errors.Join(errs...))
}

func (f *SinkFactory) create(sinkType string) (*Sink, error) {
	newBackend, ok := f.backends[sinkType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSinkType, sinkType)
	}

	backend, err := newBackend()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSinkCreationFailed, sinkType, err)
	}
	return NewSink(backend, f.options...), nil
}
