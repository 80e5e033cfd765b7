package audio

import (
	"sync"
	"time"
)

// nullTick is how often the null backend consumes audio
const nullTick = 10 * time.Millisecond

// NullBackend consumes PCM in real time and discards it. Positions, completion
// and buffering behave as with a real device, which makes it usable without
// sound hardware and in tests.
type NullBackend struct {
	mu             sync.Mutex
	pull           func([]byte) int
	bytesPerSecond int
	frame          int
	stop           chan struct{}
	done           chan struct{}
}

// NewNullBackend creates a backend that renders nothing
func NewNullBackend() *NullBackend {
	return &NullBackend{}
}

func (b *NullBackend) Name() string {
	return "null"
}

func (b *NullBackend) Open(data *AudioData, pull func([]byte) int) error {
	if data.BytesPerFrame() == 0 {
		return ErrUnsupportedFormat
	}
	b.Stop()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.pull = pull
	b.bytesPerSecond = data.BytesPerSecond()
	b.frame = data.BytesPerFrame()
	return nil
}

func (b *NullBackend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pull == nil {
		return ErrBackendNotAvailable
	}
	if b.stop != nil {
		return nil
	}

	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go b.run(b.pull, b.bytesPerSecond, b.frame, b.stop, b.done)
	return nil
}

func (b *NullBackend) run(pull func([]byte) int, bytesPerSecond, frame int, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(nullTick)
	defer ticker.Stop()

	last := time.Now()
	carry := 0.0
	var scratch []byte

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			carry += now.Sub(last).Seconds() * float64(bytesPerSecond)
			last = now

			n := int(carry)
			n -= n % frame
			if n == 0 {
				continue
			}
			carry -= float64(n)

			if cap(scratch) < n {
				scratch = make([]byte, n)
			}
			pull(scratch[:n])
		}
	}
}

// Stop halts consumption and waits for the render goroutine to exit
func (b *NullBackend) Stop() error {
	b.mu.Lock()
	stop, done := b.stop, b.done
	b.stop, b.done = nil, nil
	b.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

func (b *NullBackend) Close() error {
	return b.Stop()
}
