package session

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeongseonghan/cpfsk/internal/bitseq"
	"github.com/jeongseonghan/cpfsk/internal/config"
	"github.com/jeongseonghan/cpfsk/internal/modem"
	"github.com/jeongseonghan/cpfsk/internal/protocol"
	"github.com/jeongseonghan/cpfsk/internal/report"
)

type fakePlayer struct {
	samples []float32
	err     error
}

func (p *fakePlayer) Play(samples []float32) error {
	p.samples = samples
	return p.err
}

type recordingSink struct {
	runs []*report.Run
	err  error
}

func (s *recordingSink) Publish(r *report.Run) error {
	s.runs = append(s.runs, r)
	return s.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Modulation.CarrierFrequency = 10
	cfg.Sequence.Seed = 7
	cfg.Sampling.SampleCount = 200
	cfg.Sampling.AudioRate = 800
	cfg.Output.Formulas = filepath.Join(dir, "results.txt")
	cfg.Output.Plot = filepath.Join(dir, "cpfsksignal.png")
	cfg.Output.WAV = filepath.Join(dir, "cpfsk.wav")
	return cfg
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return New(testConfig(t), &out, opts...), &out
}

func TestChange(t *testing.T) {
	s, out := newTestSession(t)

	require.NoError(t, s.Execute("change A 2"))
	require.NoError(t, s.Execute("change f0 -5.5"))
	require.NoError(t, s.Execute("change Tb 0.25"))
	require.NoError(t, s.Execute("change h 0"))

	assert.Equal(t, modem.Params{
		Amplitude:        2,
		CarrierFrequency: -5.5,
		BitDuration:      0.25,
		ModulationIndex:  0,
	}, s.Params())
	assert.Contains(t, out.String(), "A changed to 2.0")
}

func TestChange_Rejected(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"zero amplitude", "change A 0"},
		{"negative bit duration", "change Tb -1"},
		{"not a number", "change h abc"},
		{"infinite", "change f0 Inf"},
		{"unknown parameter", "change x 1"},
		{"missing value", "change A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t)
			before := s.Params()
			assert.Error(t, s.Execute(tt.line))
			assert.Equal(t, before, s.Params())
		})
	}
}

func TestSetBits(t *testing.T) {
	s, _ := newTestSession(t)

	require.NoError(t, s.Execute("set bits 01100110"))
	assert.Equal(t, []byte{0, 1, 1, 0, 0, 1, 1, 0}, s.Bits())

	err := s.Execute("set bits 0110")
	assert.ErrorIs(t, err, bitseq.ErrBadLength)
	err = s.Execute("set bits 0110011x")
	assert.ErrorIs(t, err, bitseq.ErrBadSymbol)
	assert.Equal(t, "01100110", bitseq.String(s.Bits()), "rejected input keeps the old sequence")
}

func TestSetLen(t *testing.T) {
	s, out := newTestSession(t)
	require.NoError(t, s.Execute("set bits 01100110"))

	require.NoError(t, s.Execute("set len 4"))
	assert.Equal(t, 4, s.SequenceLength())
	assert.Nil(t, s.Bits())
	assert.Contains(t, out.String(), "Bit sequence cleared.")

	assert.ErrorIs(t, s.Execute("set len 5"), bitseq.ErrBadLength)
	assert.Equal(t, 4, s.SequenceLength())

	require.NoError(t, s.Execute("set bits 1010"))
}

func TestSetText(t *testing.T) {
	s, _ := newTestSession(t)

	require.NoError(t, s.Execute("set text hello  world"))
	coder, err := config.Default().Coder()
	require.NoError(t, err)
	f, err := protocol.BitsFrame(s.Bits(), coder)
	require.NoError(t, err)
	assert.Equal(t, "hello  world", string(f.Payload))

	long := "set text " + strings.Repeat("x", protocol.MaxPayloadSize+1)
	assert.ErrorIs(t, s.Execute(long), protocol.ErrPayloadTooLarge)
}

func TestSetData(t *testing.T) {
	s, out := newTestSession(t)

	require.NoError(t, s.Execute("set text hi"))
	require.NoError(t, s.Execute("set data 00ff10"))
	assert.Contains(t, out.String(), "Framed TEXT frame #0 (2 bytes)")
	assert.Contains(t, out.String(), "Framed DATA frame #1 (3 bytes)")

	coder, err := config.Default().Coder()
	require.NoError(t, err)
	f, err := protocol.BitsFrame(s.Bits(), coder)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeData, f.Type)
	assert.Equal(t, byte(1), f.SeqNum)
	assert.Equal(t, []byte{0x00, 0xFF, 0x10}, f.Payload)

	before := s.Bits()
	assert.Error(t, s.Execute("set data 0g"))
	assert.Error(t, s.Execute("set data 01 02"))
	assert.Equal(t, before, s.Bits())
}

func TestRun_GeneratesBitsAndWritesFiles(t *testing.T) {
	sink := &recordingSink{}
	s, out := newTestSession(t, WithSinks(sink), WithIDs(func() string { return "run-1" }))

	require.NoError(t, s.Execute("run"))
	assert.Len(t, s.Bits(), bitseq.DefaultLength)
	assert.Contains(t, out.String(), "Generated random sequence: "+bitseq.String(s.Bits()))

	formulas, err := os.ReadFile(s.cfg.Output.Formulas)
	require.NoError(t, err)
	assert.Contains(t, string(formulas), "Bit sequence: "+bitseq.String(s.Bits()))

	png, err := os.ReadFile(s.cfg.Output.Plot)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	require.Len(t, sink.runs, 1)
	assert.Equal(t, "run-1", sink.runs[0].ID)
	assert.True(t, sink.runs[0].Generated)
	assert.Same(t, sink.runs[0], s.LastRun())

	// The generated sequence is kept.
	bits := bitseq.String(s.Bits())
	require.NoError(t, s.Execute("run"))
	assert.Equal(t, bits, bitseq.String(s.Bits()))
	assert.False(t, s.LastRun().Generated)
}

func TestRun_SinkErrorDoesNotFail(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	s, _ := newTestSession(t, WithSinks(sink))

	require.NoError(t, s.Execute("set bits 10101010"))
	assert.NoError(t, s.Execute("run"))
	assert.Len(t, sink.runs, 1)
}

func TestPlay(t *testing.T) {
	s, _ := newTestSession(t)
	assert.ErrorIs(t, s.Execute("play"), ErrNoPlayer)

	player := &fakePlayer{}
	s, _ = newTestSession(t, WithPlayer(player))
	require.NoError(t, s.Execute("change A 4"))
	require.NoError(t, s.Execute("set bits 10101010"))
	require.NoError(t, s.Execute("play"))

	// 8 bits of 1 s at 800 Hz, both ends included.
	require.Len(t, player.samples, 8*800+1)
	for _, v := range player.samples {
		assert.LessOrEqual(t, v, float32(1.0001))
		assert.GreaterOrEqual(t, v, float32(-1.0001))
	}
}

func TestWAV(t *testing.T) {
	s, out := newTestSession(t)
	require.NoError(t, s.Execute("set bits 0101"+"0101"))
	require.NoError(t, s.Execute("wav"))

	info, err := os.Stat(s.cfg.Output.WAV)
	require.NoError(t, err)
	assert.EqualValues(t, report.WAVHeaderSize+2*(8*800+1), info.Size())
	assert.Contains(t, out.String(), "WAV saved to")
}

func TestSpectrum(t *testing.T) {
	s, out := newTestSession(t)
	require.NoError(t, s.Execute("set bits 01010101"))
	require.NoError(t, s.Execute("spectrum"))
	assert.Contains(t, out.String(), "Expected tones: 9.5 Hz and 10.5 Hz")
}

func TestShowAndHelp(t *testing.T) {
	s, out := newTestSession(t)

	require.NoError(t, s.Execute("show"))
	assert.Contains(t, out.String(), "Parameters: A=1.0, f0=10.0, Tb=1.0, h=0.5")
	assert.Contains(t, out.String(), "(random on next run)")

	require.NoError(t, s.Execute("HELP"))
	assert.Contains(t, out.String(), "change A <value>")

	assert.NoError(t, s.Execute("   "))
	assert.ErrorIs(t, s.Execute("frobnicate"), ErrUnknownCommand)
	assert.ErrorIs(t, s.Execute("exit"), ErrQuit)
	assert.ErrorIs(t, s.Execute("quit"), ErrQuit)
}

func TestRunLoop(t *testing.T) {
	s, out := newTestSession(t)

	in := strings.NewReader("change A 3\nbogus\nset bits 11110000\nexit\nchange A 9\n")
	require.NoError(t, s.Run(context.Background(), in))

	assert.Equal(t, 3.0, s.Params().Amplitude, "commands after exit are not run")
	assert.Contains(t, out.String(), "Error: unknown command")
	assert.Contains(t, out.String(), "Exiting...")
}

func TestRunLoop_EOF(t *testing.T) {
	s, _ := newTestSession(t)
	assert.NoError(t, s.Run(context.Background(), strings.NewReader("show")))
}

func TestRunLoop_Cancelled(t *testing.T) {
	s, _ := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx, strings.NewReader("show\n")), context.Canceled)
}

func TestReadLength(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"empty selects default", "\n", 8},
		{"valid", "16\n", 16},
		{"retry after invalid", "5\nabc\n24\n", 24},
		{"no trailing newline", "4", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			n, err := ReadLength(bufio.NewReader(strings.NewReader(tt.input)), &out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}

	var out bytes.Buffer
	_, err := ReadLength(bufio.NewReader(strings.NewReader("7\n")), &out)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "Invalid length, try again.")
}
