package report

import (
	"fmt"
	"io"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/jeongseonghan/cpfsk/internal/modem"
)

// Plot size and resolution of the saved image.
const (
	PlotWidth  = 10 * vg.Inch
	PlotHeight = 4 * vg.Inch
	PlotDPI    = 150
)

// PlotWaveform builds the amplitude-over-time plot of a waveform.
func PlotWaveform(w modem.Waveform, p modem.Params) (*plot.Plot, error) {
	pts := make(plotter.XYs, w.Len())
	for i := range pts {
		pts[i].X = w.Time[i]
		pts[i].Y = w.Amplitude[i]
	}

	pl := plot.New()
	pl.Title.Text = "CPFSK signal"
	pl.X.Label.Text = "Time"
	pl.Y.Label.Text = "Amplitude"
	pl.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("plot line: %w", err)
	}
	pl.Add(line)
	pl.Legend.Add(fmt.Sprintf("CPFSK signal (%s)", p), line)
	pl.Legend.Top = true
	return pl, nil
}

// WritePNG renders the waveform plot as PNG.
func WritePNG(out io.Writer, w modem.Waveform, p modem.Params) error {
	pl, err := PlotWaveform(w, p)
	if err != nil {
		return err
	}

	c := vgimg.NewWith(vgimg.UseWH(PlotWidth, PlotHeight), vgimg.UseDPI(PlotDPI))
	pl.Draw(draw.New(c))

	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(out); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SavePlot writes the waveform plot to a PNG file.
func SavePlot(path string, w modem.Waveform, p modem.Params) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WritePNG(f, w, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
