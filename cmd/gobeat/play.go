package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	pa "github.com/gordonklaus/portaudio"

	"github.com/sandrolain/gobeat/pkg/stream"
)

// play writes s to the default output device until ctx is done.
func play(ctx context.Context, s *stream.Stream, rate int, logger *slog.Logger) error {
	if err := pa.Initialize(); err != nil {
		return fmt.Errorf("unable to setup portaudio: %w", err)
	}
	defer func() {
		if err := pa.Terminate(); err != nil {
			logger.Warn("portaudio termination error", "error", err)
		}
	}()

	d, err := pa.DefaultOutputDevice()
	if err != nil {
		return fmt.Errorf("error opening default output via portaudio: %w", err)
	}

	n := s.Root().BufferSize()
	buf := make([]float32, n)
	out, err := pa.OpenDefaultStream(0, 1, float64(rate), n, &buf)
	if err != nil {
		return fmt.Errorf("unable to open portaudio stream: %w", err)
	}
	defer out.Close()

	logger.Info("playing",
		"portaudio", strings.Split(pa.VersionText(), ",")[0],
		"device", d.Name,
		"rate", rate,
		"buffer", n)

	if err := out.Start(); err != nil {
		return fmt.Errorf("unable to start portaudio stream: %w", err)
	}
	defer out.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for window := range s.Windows(ctx) {
		clear(buf)
		stream.NormalizeInto(buf, window[:min(len(window), n)], s.Resolution())
		if err := out.Write(); err != nil {
			if errors.Is(err, pa.OutputUnderflowed) {
				logger.Debug("output underflowed")
				continue
			}
			return fmt.Errorf("write error: %w", err)
		}
	}
	return nil
}
