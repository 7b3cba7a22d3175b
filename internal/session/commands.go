package session

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jeongseonghan/cpfsk/internal/bitseq"
	"github.com/jeongseonghan/cpfsk/internal/modem"
	"github.com/jeongseonghan/cpfsk/internal/protocol"
	"github.com/jeongseonghan/cpfsk/internal/report"
)

const helpText = `
Available commands:
  change A <value>      - set the signal amplitude (> 0)
  change f0 <value>     - set the carrier frequency
  change Tb <value>     - set the bit duration (> 0)
  change h <value>      - set the modulation index
  set bits <sequence>   - set the bit sequence (0 and 1)
  set len <n>           - set the sequence length (4, 8, 16 or 24)
  set text <message>    - frame a text message into the bit sequence
  set data <hex>        - frame raw bytes into the bit sequence
  show                  - print the current parameters and bits
  run                   - compute, save the formulas and the plot
  play                  - play the signal on the audio output
  wav                   - save the signal as a WAV file
  spectrum              - print the strongest tones of the signal
  help                  - show this list
  exit                  - quit
`

// Execute runs one command line. Blank lines are ignored.
func (s *Session) Execute(line string) error {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch strings.ToLower(fields[0]) {
	case "help":
		fmt.Fprint(s.out, helpText)
		return nil
	case "exit", "quit":
		return ErrQuit
	case "change":
		if len(fields) != 3 {
			return fmt.Errorf("usage: change A|f0|Tb|h <value>")
		}
		return s.change(fields[1], fields[2])
	case "set":
		return s.set(line, fields)
	case "show":
		s.show()
		return nil
	case "run":
		return s.run()
	case "play":
		return s.play()
	case "wav":
		return s.wav()
	case "spectrum":
		return s.spectrum()
	default:
		return ErrUnknownCommand
	}
}

func (s *Session) change(name, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("value must be a finite number, got %q", value)
	}

	p := s.params
	switch name {
	case "A":
		p.Amplitude = v
	case "f0":
		p.CarrierFrequency = v
	case "Tb":
		p.BitDuration = v
	case "h":
		p.ModulationIndex = v
	default:
		return fmt.Errorf("unknown parameter %q", name)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%s must be > 0: %w", name, err)
	}

	s.params = p
	fmt.Fprintf(s.out, "%s changed to %s\n", name, modem.FormatNumber(v))
	return nil
}

func (s *Session) set(line string, fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("usage: set bits|len|text|data <value>")
	}

	switch strings.ToLower(fields[1]) {
	case "bits":
		if len(fields) != 3 {
			return fmt.Errorf("usage: set bits <sequence>")
		}
		bits, err := bitseq.Parse(fields[2], s.seqLen)
		if err != nil {
			return fmt.Errorf("sequence must be %d symbols of 0 and 1: %w", s.seqLen, err)
		}
		s.bits, s.framed = bits, false
		fmt.Fprintf(s.out, "Bit sequence set: %s\n", bitseq.String(bits))

	case "len":
		if len(fields) != 3 {
			return fmt.Errorf("usage: set len <n>")
		}
		n, err := strconv.Atoi(fields[2])
		if err != nil || !bitseq.ValidLength(n) {
			return fmt.Errorf("%w: length must be one of %v", bitseq.ErrBadLength, bitseq.AllowedLengths)
		}
		s.seqLen = n
		if !s.framed && s.bits != nil && len(s.bits) != n {
			s.bits = nil
			fmt.Fprintln(s.out, "Bit sequence cleared.")
		}
		fmt.Fprintf(s.out, "Sequence length set to %d\n", n)

	case "text":
		// Keep the message's inner spacing.
		msg := strings.TrimSpace(line[strings.Index(line, fields[1])+len(fields[1]):])
		return s.setFrame(protocol.NewTextFrame(s.seqNum, msg))

	case "data":
		if len(fields) != 3 {
			return fmt.Errorf("usage: set data <hex>")
		}
		data, err := hex.DecodeString(fields[2])
		if err != nil {
			return fmt.Errorf("data must be hex encoded: %w", err)
		}
		return s.setFrame(protocol.NewDataFrame(s.seqNum, data))

	default:
		return fmt.Errorf("usage: set bits|len|text|data <value>")
	}
	return nil
}

// setFrame replaces the bits with the framed, optionally RS protected, frame.
func (s *Session) setFrame(f *protocol.Frame) error {
	coder, err := s.cfg.Coder()
	if err != nil {
		return err
	}
	bits, err := protocol.FrameBits(f, coder)
	if err != nil {
		return err
	}
	s.seqNum++
	s.bits, s.framed = bits, true
	fmt.Fprintf(s.out, "Framed %s frame #%d (%d bytes) into %d bits\n",
		f.TypeName(), f.SeqNum, len(f.Payload), len(bits))
	return nil
}

func (s *Session) show() {
	fmt.Fprintf(s.out, "Parameters: %s\n", s.params)
	fmt.Fprintf(s.out, "Sequence length: %d\n", s.seqLen)
	if s.bits == nil {
		fmt.Fprintln(s.out, "Bit sequence: (random on next run)")
		return
	}
	fmt.Fprintf(s.out, "Bit sequence: %s\n", bitseq.String(s.bits))
}

// ensureBits draws a random sequence when none is set. The drawn sequence
// is kept for later commands.
func (s *Session) ensureBits() (generated bool) {
	if s.bits != nil {
		return false
	}
	s.bits = s.gen.Bits(s.seqLen)
	fmt.Fprintf(s.out, "Generated random sequence: %s\n", bitseq.String(s.bits))
	return true
}

func (s *Session) run() error {
	generated := s.ensureBits()

	r, err := report.NewRun(s.newID(), s.params, s.bits, report.Options{
		SampleCount: s.cfg.Sampling.SampleCount,
		PhaseMode:   s.cfg.PhaseMode(),
	})
	if err != nil {
		return err
	}
	r.Generated = generated

	fw := report.FormulaWriter{TimestampFormat: s.cfg.Output.TimestampFormat}
	if err := fw.Save(s.cfg.Output.Formulas, r); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Formulas saved to %s\n", s.cfg.Output.Formulas)

	if err := report.SavePlot(s.cfg.Output.Plot, r.Waveform, r.Params); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Plot saved to %s\n", s.cfg.Output.Plot)

	for _, sink := range s.sinks {
		if err := sink.Publish(r); err != nil {
			s.logger.Warn("publish run", "id", r.ID, "err", err)
		}
	}
	s.last = r
	return nil
}

// audio samples the signal at the audio rate with exact phase continuity.
func (s *Session) audio() (modem.Waveform, error) {
	s.ensureBits()
	return modem.SampleAtRate(s.params, s.bits, s.cfg.Sampling.AudioRate,
		modem.WithPhaseMode(modem.PhaseExact))
}

func (s *Session) play() error {
	if s.player == nil {
		return ErrNoPlayer
	}
	w, err := s.audio()
	if err != nil {
		return err
	}

	samples := w.Float32()
	if s.params.Amplitude > 1 {
		g := float32(1 / s.params.Amplitude)
		for i := range samples {
			samples[i] *= g
		}
	}

	fmt.Fprintf(s.out, "Playing %d samples...\n", len(samples))
	return s.player.Play(samples)
}

func (s *Session) wav() error {
	w, err := s.audio()
	if err != nil {
		return err
	}
	if err := report.SaveWAV(s.cfg.Output.WAV, w.Amplitude, int(s.cfg.Sampling.AudioRate)); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "WAV saved to %s\n", s.cfg.Output.WAV)
	return nil
}

func (s *Session) spectrum() error {
	s.ensureBits()
	peaks, err := modem.Tones(s.params, s.bits, 2)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "Expected tones: %s Hz and %s Hz\n",
		modem.FormatNumber(s.params.InstFrequency(0)), modem.FormatNumber(s.params.InstFrequency(1)))
	for _, b := range peaks {
		fmt.Fprintf(s.out, "  %10.2f Hz  magnitude %.3f\n", b.Frequency, b.Magnitude)
	}
	return nil
}
