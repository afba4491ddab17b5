package stream

import (
	"context"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavPCM is the WAVE format tag for integer PCM.
const wavPCM = 1

// WriteWAV encodes the next samples of s as a mono WAV file at rate Hz.
// The container size follows the stream's resolution when writing starts.
func WriteWAV(ctx context.Context, w io.WriteSeeker, s *Stream, samples, rate int) error {
	if samples < 0 {
		return fmt.Errorf("stream: negative sample count %d", samples)
	}
	if rate <= 0 {
		return fmt.Errorf("stream: invalid sample rate %d", rate)
	}

	res := s.Resolution()
	bits := BytesPerSample(res) * 8
	enc := wav.NewEncoder(w, rate, bits, 1, wavPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		SourceBitDepth: bits,
	}

	for remaining := samples; remaining > 0; {
		if err := ctx.Err(); err != nil {
			enc.Close()
			return err
		}
		window := s.Next()
		n := min(len(window), remaining)
		buf.Data = buf.Data[:0]
		for _, v := range window[:n] {
			buf.Data = append(buf.Data, Level(v, res))
		}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("stream: write wav: %w", err)
		}
		remaining -= n
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("stream: close wav: %w", err)
	}
	return nil
}
