package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/jeongseonghan/cpfsk/internal/audio"
	"github.com/jeongseonghan/cpfsk/internal/bitseq"
	"github.com/jeongseonghan/cpfsk/internal/config"
	"github.com/jeongseonghan/cpfsk/internal/publish"
	"github.com/jeongseonghan/cpfsk/internal/report"
	"github.com/jeongseonghan/cpfsk/internal/server"
	"github.com/jeongseonghan/cpfsk/internal/session"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := pflag.StringP("config", "c", "cpfsk.yaml", "Configuration file. A missing file selects the defaults.")
	seqLen := pflag.IntP("seq-len", "n", 0, "Sequence length (4, 8, 16 or 24). Prompted for when not given.")
	seed := pflag.Uint64("seed", 0, "Random seed for generated bit sequences. 0 uses the configured or a time based seed.")
	serve := pflag.String("serve", "", "Serve the HTTP API on this address instead of reading commands.")
	pflag.Lookup("serve").NoOptDefVal = "config"
	listDevices := pflag.Bool("list-devices", false, "List audio output devices and exit.")
	noAudio := pflag.Bool("no-audio", false, "Do not open the audio output.")
	logLevel := pflag.String("log-level", "info", "Log level: debug, info, warn or error.")
	help := pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - CPFSK phase trajectory and waveform calculator.\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level %q\n", *logLevel)
		os.Exit(2)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})

	if *listDevices {
		if err := audio.Init(); err != nil {
			logger.Fatal("Failed to initialize PortAudio", "err", err)
		}
		defer audio.Terminate()
		if err := audio.PrintDevices(); err != nil {
			logger.Fatal("Failed to list devices", "err", err)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", "err", err)
	}
	if pflag.CommandLine.Changed("seed") {
		cfg.Sequence.Seed = *seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sinks []report.Sink
	if cfg.MQTT.Broker != "" {
		pub, err := publish.NewMQTTPublisher(publish.Config{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}, logger)
		if err != nil {
			logger.Warn("MQTT publishing disabled", "err", err)
		} else {
			defer pub.Close()
			sinks = append(sinks, pub)
		}
	}

	if *serve != "" {
		addr := *serve
		if addr == "config" {
			addr = cfg.Server.Listen
		}
		if err := runServer(ctx, addr, cfg, logger, sinks); err != nil {
			logger.Fatal("Server error", "err", err)
		}
		return
	}

	if err := runInteractive(ctx, cfg, logger, sinks, *seqLen, *noAudio); err != nil &&
		!errors.Is(err, context.Canceled) {
		logger.Fatal("Session error", "err", err)
	}
}

func runServer(ctx context.Context, addr string, cfg *config.Config, logger *log.Logger, sinks []report.Sink) error {
	metrics := server.NewMetrics()
	handlers := server.NewHandlers(cfg, metrics, logger, sinks...)
	srv := server.NewServer(addr, handlers, metrics, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	fmt.Printf("\n  CPFSK server running at http://%s\n\n", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runInteractive(ctx context.Context, cfg *config.Config, logger *log.Logger, sinks []report.Sink, seqLen int, noAudio bool) error {
	in := bufio.NewReader(os.Stdin)

	switch {
	case seqLen == 0:
		n, err := session.ReadLength(in, os.Stdout)
		if err != nil {
			return err
		}
		cfg.Sequence.Length = n
	case bitseq.ValidLength(seqLen):
		cfg.Sequence.Length = seqLen
	default:
		return fmt.Errorf("%w: --seq-len must be one of %v", bitseq.ErrBadLength, bitseq.AllowedLengths)
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithSinks(sinks...),
		session.WithIDs(func() string { return uuid.New().String() }),
	}
	if !noAudio {
		player, err := openPlayer(cfg)
		if err != nil {
			logger.Warn("Audio playback disabled", "err", err)
		} else {
			defer func() {
				player.Close()
				audio.Terminate()
			}()
			opts = append(opts, session.WithPlayer(player))
		}
	}

	sess := session.New(cfg, os.Stdout, opts...)

	// Reading stdin cannot be interrupted, so a signal ends the program
	// without waiting for the loop.
	done := make(chan error, 1)
	go func() {
		done <- sess.Run(ctx, in)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		fmt.Println()
		return ctx.Err()
	}
}

func openPlayer(cfg *config.Config) (*audio.Player, error) {
	if cfg.Sampling.AudioRate != audio.SampleRate {
		return nil, fmt.Errorf("audio_rate %v does not match the output rate %d", cfg.Sampling.AudioRate, audio.SampleRate)
	}
	if err := audio.Init(); err != nil {
		return nil, fmt.Errorf("initialize PortAudio: %w", err)
	}
	if !audio.HasOutputDevice() {
		audio.Terminate()
		return nil, errors.New("no audio output device")
	}
	player, err := audio.NewPlayer()
	if err != nil {
		audio.Terminate()
		return nil, err
	}
	return player, nil
}
