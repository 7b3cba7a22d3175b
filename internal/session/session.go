// Package session implements the interactive command loop: parameters and
// bits are edited with text commands and each run writes the formula
// report, the plot and optional audio.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/jeongseonghan/cpfsk/internal/bitseq"
	"github.com/jeongseonghan/cpfsk/internal/config"
	"github.com/jeongseonghan/cpfsk/internal/modem"
	"github.com/jeongseonghan/cpfsk/internal/report"
)

var (
	// ErrQuit is returned by Execute for the exit command.
	ErrQuit = errors.New("quit")

	// ErrUnknownCommand is returned for unrecognized input.
	ErrUnknownCommand = errors.New("unknown command, type 'help' for the list of commands")

	// ErrNoPlayer is returned by play when no audio output is available.
	ErrNoPlayer = errors.New("audio output unavailable")
)

// Player plays mono float32 samples at the configured audio rate.
type Player interface {
	Play(samples []float32) error
}

// Session is the mutable state behind the command loop.
type Session struct {
	cfg    *config.Config
	params modem.Params
	seqLen int
	bits   []byte
	framed bool // bits came from set text
	seqNum byte

	gen    *bitseq.Generator
	out    io.Writer
	player Player
	sinks  []report.Sink
	logger *log.Logger
	newID  func() string
	last   *report.Run
}

// Option configures a Session.
type Option func(*Session)

// WithPlayer enables the play command.
func WithPlayer(p Player) Option {
	return func(s *Session) { s.player = p }
}

// WithSinks adds sinks that receive every run.
func WithSinks(sinks ...report.Sink) Option {
	return func(s *Session) { s.sinks = append(s.sinks, sinks...) }
}

// WithLogger sets the logger for sink failures.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithIDs sets the run ID source.
func WithIDs(newID func() string) Option {
	return func(s *Session) { s.newID = newID }
}

// New creates a session starting from the configured parameters. User
// feedback is written to out.
func New(cfg *config.Config, out io.Writer, opts ...Option) *Session {
	s := &Session{
		cfg:    cfg,
		params: cfg.Modulation,
		seqLen: cfg.Sequence.Length,
		gen:    bitseq.NewGenerator(cfg.Seed()),
		out:    out,
		logger: log.New(io.Discard),
		newID:  func() string { return "" },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Params returns the current modulation parameters.
func (s *Session) Params() modem.Params { return s.params }

// Bits returns the current bit sequence, nil until set or generated.
func (s *Session) Bits() []byte { return s.bits }

// SequenceLength returns the length required by set bits.
func (s *Session) SequenceLength() int { return s.seqLen }

// LastRun returns the most recent run, or nil.
func (s *Session) LastRun() *report.Run { return s.last }

// Run reads commands line by line until exit, end of input or ctx is done.
// Command errors are reported to the user and do not stop the loop.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, "\nEnter a command. Type 'help' for the list of commands, 'exit' to quit.")

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(s.out)
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.Execute(sc.Text())
		if errors.Is(err, ErrQuit) {
			fmt.Fprintln(s.out, "Exiting...")
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
}

// ReadLength prompts for the sequence length until the answer is empty
// (DefaultLength) or one of bitseq.AllowedLengths.
func ReadLength(r *bufio.Reader, out io.Writer) (int, error) {
	for {
		fmt.Fprintf(out, "Enter sequence length %v or leave empty for %d: ",
			bitseq.AllowedLengths, bitseq.DefaultLength)

		line, err := r.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" && err != nil {
			return 0, err
		}
		if line == "" {
			return bitseq.DefaultLength, nil
		}
		if n, convErr := strconv.Atoi(line); convErr == nil && bitseq.ValidLength(n) {
			return n, nil
		}
		fmt.Fprintln(out, "Invalid length, try again.")
		if err != nil {
			return 0, err
		}
	}
}
