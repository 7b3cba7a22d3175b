package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/jeongseonghan/cpfsk/internal/bitseq"
	"github.com/jeongseonghan/cpfsk/internal/config"
	"github.com/jeongseonghan/cpfsk/internal/modem"
	"github.com/jeongseonghan/cpfsk/internal/protocol"
	"github.com/jeongseonghan/cpfsk/internal/report"
)

// Request limits.
const (
	maxBodyBytes   = 64 << 10
	maxBits        = 4096
	maxSampleCount = 1 << 20
	maxPeaks       = 16
)

// ModulateRequest is the body of /api/modulate and /api/plot. Fields left
// out keep the configured defaults. Bits, if empty, are drawn at random
// unless Text is set, in which case the text is framed into bits.
type ModulateRequest struct {
	modem.Params
	Bits        string `json:"bits"`
	Text        string `json:"text"`
	SampleCount int    `json:"sample_count"`
	PhaseMode   string `json:"phase_mode"`
	Peaks       int    `json:"peaks"`
}

// badRequest marks errors caused by the client's input.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

// Handlers holds the HTTP API handlers.
type Handlers struct {
	cfg     *config.Config
	wsHub   *WSHub
	metrics *Metrics
	logger  *log.Logger
	sinks   []report.Sink

	mu  sync.Mutex // guards gen
	gen *bitseq.Generator
}

// NewHandlers creates new API handlers. Every successful run is sent to the
// WebSocket hub and then to sinks.
func NewHandlers(cfg *config.Config, metrics *Metrics, logger *log.Logger, sinks ...report.Sink) *Handlers {
	h := &Handlers{
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		gen:     bitseq.NewGenerator(cfg.Seed()),
	}
	h.wsHub = NewWSHub(logger, metrics.SetClients)
	h.sinks = append([]report.Sink{h.wsHub}, sinks...)
	return h
}

// Hub returns the WebSocket hub.
func (h *Handlers) Hub() *WSHub {
	return h.wsHub
}

// HandleWebSocket handles WebSocket upgrade requests.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade error", "err", err)
		return
	}

	h.wsHub.AddClient(conn)

	// Reads only detect the close; clients have nothing to send.
	go func() {
		defer h.wsHub.RemoveClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// HandleModulate computes a run and returns it as JSON.
func (h *Handlers) HandleModulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	run, ok := h.run(w, r)
	if !ok {
		return
	}

	if err := writeJSON(w, run); err != nil {
		h.logger.Error("write response", "id", run.ID, "err", err)
	}
}

// HandlePlot computes a run and returns its waveform plot as PNG.
func (h *Handlers) HandlePlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	run, ok := h.run(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Run-Id", run.ID)
	if err := report.WritePNG(w, run.Waveform, run.Params); err != nil {
		h.logger.Error("render plot", "id", run.ID, "err", err)
	}
}

// HandleDefaults returns the configured defaults a request starts from.
func (h *Handlers) HandleDefaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	err := writeJSON(w, map[string]any{
		"params":          h.cfg.Modulation,
		"sequence_length": h.cfg.Sequence.Length,
		"allowed_lengths": bitseq.AllowedLengths,
		"sample_count":    h.cfg.Sampling.SampleCount,
		"phase_mode":      h.cfg.Sampling.PhaseMode,
	})
	if err != nil {
		h.logger.Error("write defaults", "err", err)
	}
}

// writeJSON writes v as JSON. An encoding failure is answered with 500
// and nothing of v reaches w.
func writeJSON(w http.ResponseWriter, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("encode response: %v", err), http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(append(data, '\n'))
	return err
}

// run decodes the request, computes the run and hands it to the sinks. On
// failure it writes the error response and returns false.
func (h *Handlers) run(w http.ResponseWriter, r *http.Request) (*report.Run, bool) {
	start := time.Now()

	run, err := h.compute(w, r)
	if err != nil {
		var bad badRequest
		if errors.As(err, &bad) {
			h.metrics.ObserveRun(OutcomeInvalid, time.Since(start), 0)
			h.wsHub.BroadcastLog("warn", fmt.Sprintf("Rejected request: %v", bad))
			http.Error(w, bad.Error(), http.StatusBadRequest)
			return nil, false
		}
		h.metrics.ObserveRun(OutcomeError, time.Since(start), 0)
		h.logger.Error("run failed", "err", err)
		h.wsHub.BroadcastLog("error", fmt.Sprintf("Run failed: %v", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}

	h.metrics.ObserveRun(OutcomeOK, time.Since(start), len(run.Timeline))
	h.logger.Info("run computed", "id", run.ID, "bits", run.Bits, "samples", run.Waveform.Len())

	for _, s := range h.sinks {
		if err := s.Publish(run); err != nil {
			h.logger.Warn("publish run", "id", run.ID, "err", err)
		}
	}
	h.wsHub.BroadcastLog("info", fmt.Sprintf("Run %s: %d bits, %d samples",
		run.ID, len(run.Timeline), run.Waveform.Len()))
	return run, true
}

func (h *Handlers) compute(w http.ResponseWriter, r *http.Request) (*report.Run, error) {
	req := ModulateRequest{
		Params:      h.cfg.Modulation,
		SampleCount: h.cfg.Sampling.SampleCount,
		PhaseMode:   h.cfg.Sampling.PhaseMode,
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, badRequest{fmt.Errorf("parse request: %w", err)}
	}

	if err := req.Params.Validate(); err != nil {
		return nil, badRequest{err}
	}
	if req.SampleCount < 2 || req.SampleCount > maxSampleCount {
		return nil, badRequest{fmt.Errorf("%w: sample_count %d must be in [2, %d]",
			modem.ErrSampleCount, req.SampleCount, maxSampleCount)}
	}
	mode, err := modem.ParsePhaseMode(req.PhaseMode)
	if err != nil {
		return nil, badRequest{err}
	}
	if req.Peaks < 0 || req.Peaks > maxPeaks {
		return nil, badRequest{fmt.Errorf("peaks %d must be in [0, %d]", req.Peaks, maxPeaks)}
	}

	bits, generated, err := h.bits(req)
	if err != nil {
		return nil, err
	}

	run, err := report.NewRun(uuid.New().String(), req.Params, bits, report.Options{
		SampleCount: req.SampleCount,
		PhaseMode:   mode,
		Peaks:       req.Peaks,
	})
	if errors.Is(err, modem.ErrInvalidParams) {
		return nil, badRequest{err}
	}
	if err != nil {
		return nil, err
	}
	run.Generated = generated
	return run, nil
}

func (h *Handlers) bits(req ModulateRequest) ([]byte, bool, error) {
	switch {
	case req.Text != "":
		coder, err := h.cfg.Coder()
		if err != nil {
			return nil, false, err
		}
		f := protocol.NewTextFrame(0, req.Text)
		bits, err := protocol.FrameBits(f, coder)
		if errors.Is(err, protocol.ErrPayloadTooLarge) {
			return nil, false, badRequest{err}
		}
		return bits, false, err

	case req.Bits != "":
		bits, err := bitseq.Parse(req.Bits, 0)
		if err != nil {
			return nil, false, badRequest{err}
		}
		if len(bits) > maxBits {
			return nil, false, badRequest{fmt.Errorf("%w: %d bits exceeds %d",
				bitseq.ErrBadLength, len(bits), maxBits)}
		}
		return bits, false, nil

	default:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.gen.Bits(h.cfg.Sequence.Length), true, nil
	}
}
