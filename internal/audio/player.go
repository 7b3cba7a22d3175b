package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate   = 44100
	FramesPerBuf = 1024
	NumChannels  = 1
)

// Player plays float32 samples on the default output device.
type Player struct {
	stream *portaudio.Stream
	buf    []float32
	mu     sync.Mutex
}

// Init initializes PortAudio.
func Init() error {
	return portaudio.Initialize()
}

// Terminate cleans up PortAudio.
func Terminate() error {
	return portaudio.Terminate()
}

// NewPlayer opens the default output stream at SampleRate.
func NewPlayer() (*Player, error) {
	p := &Player{buf: make([]float32, FramesPerBuf)}
	stream, err := portaudio.OpenDefaultStream(
		0,           // input channels
		NumChannels, // output channels
		float64(SampleRate),
		FramesPerBuf,
		p.buf,
	)
	if err != nil {
		return nil, fmt.Errorf("open output stream: %w", err)
	}
	p.stream = stream
	return p, nil
}

// Play writes samples in FramesPerBuf chunks, zero padding the last one,
// and returns once they have been queued.
func (p *Player) Play(samples []float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return fmt.Errorf("output stream not opened")
	}
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("start output: %w", err)
	}
	defer p.stream.Stop()

	for i := 0; i < len(samples); i += FramesPerBuf {
		n := copy(p.buf, samples[i:])
		clear(p.buf[n:])
		if err := p.stream.Write(); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
	return nil
}

// Close closes the output stream.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}
	err := p.stream.Close()
	p.stream = nil
	return err
}
