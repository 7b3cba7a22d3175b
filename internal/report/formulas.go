package report

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/lestrrat-go/strftime"
)

// FormulaWriter writes the text report of a run.
type FormulaWriter struct {
	// TimestampFormat is a strftime pattern for the "Generated" line.
	// Empty omits the line.
	TimestampFormat string
}

// Write renders r to w.
func (fw FormulaWriter) Write(w io.Writer, r *Run) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "=== CPFSK ANALYSIS ===")
	fmt.Fprintln(bw)
	if fw.TimestampFormat != "" && !r.Time.IsZero() {
		stamp, err := strftime.Format(fw.TimestampFormat, r.Time)
		if err != nil {
			return fmt.Errorf("timestamp format %q: %w", fw.TimestampFormat, err)
		}
		fmt.Fprintf(bw, "Generated: %s\n", stamp)
	}
	fmt.Fprintf(bw, "Parameters: %s\n", r.Params)
	fmt.Fprintf(bw, "Bit sequence: %s\n", r.Bits)

	sections := []struct {
		title string
		lines []string
	}{
		{"1. Integrals", r.Formulas.Integrals},
		{"2. Phase", r.Formulas.Phases},
		{"3. Instantaneous frequency", r.Formulas.Frequencies},
		{"4. Piecewise signal", r.Formulas.Signals},
	}
	for _, s := range sections {
		fmt.Fprintf(bw, "\n%s:\n", s.title)
		for _, line := range s.lines {
			fmt.Fprintf(bw, "  %s\n", line)
		}
	}
	return bw.Flush()
}

// Save writes the report to a file, replacing it if it exists.
func (fw FormulaWriter) Save(path string, r *Run) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fw.Write(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
