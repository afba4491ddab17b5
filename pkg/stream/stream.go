// Package stream pulls successive sample windows from a compiled graph and
// turns them into PCM for sinks.
//
// A Stream owns the time offset. Each call to Next invalidates the root,
// generates the window at the current offset and advances the offset by the
// buffer size. The root can be replaced while a consumer is pulling: Swap
// installs a new graph that takes effect at the next window, so a live
// session can recompile its source without restarting playback.
//
// # Example
//
//	out := compiler.New(compiler.WithBufferSize(1024)).MustCompileSource("t*(t>>8|t>>9)&46&t>>8")
//	s := stream.New(out.Root, stream.WithOffset(out.Program.Start))
//	io.CopyN(os.Stdout, s, 8000) // one second of 8-bit PCM at 8 kHz
package stream

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/sandrolain/gobeat/pkg/evaluator"
)

// Stream is a pull source over an evaluator root.
//
// Next, Read and Windows are meant for a single consumer; Swap, Offset and
// Resolution may be called from any goroutine.
type Stream struct {
	root   atomic.Pointer[evaluator.Evaluator]
	offset atomic.Int32
	logger *slog.Logger
	debug  bool

	mu      sync.Mutex // consumer side: Next and Read
	pending []byte
	packed  []byte
}

// Options configures a Stream.
type Options struct {
	// Offset is the time value of the first sample.
	Offset int32
	// Debug enables debug logging of swaps.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
}

// Option configures stream behavior.
type Option func(*Options)

// WithOffset sets the time value of the first sample.
func WithOffset(offset int32) Option {
	return func(opts *Options) {
		opts.Offset = offset
	}
}

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) Option {
	return func(opts *Options) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// New creates a stream over root.
func New(root *evaluator.Evaluator, opts ...Option) *Stream {
	if root == nil {
		panic("stream: nil root")
	}
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	s := &Stream{
		logger: options.Logger,
		debug:  options.Debug,
	}
	s.root.Store(root)
	s.offset.Store(options.Offset)
	return s
}

// Next returns the window at the current offset and advances the offset by
// one buffer, wrapping around the int32 range. The slice is borrowed from
// the graph and is only valid until the following call.
func (s *Stream) Next() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	window, _ := s.next()
	return window
}

// next also reports the resolution of the root that produced the window.
func (s *Stream) next() ([]int32, int) {
	root := s.root.Load()
	start := s.offset.Load()
	root.Invalidate()
	window := root.Generate(start)
	s.offset.Store(start + int32(len(window)))
	return window, root.Resolution()
}

// Swap installs root for the following windows and returns the previous
// one. The offset is preserved.
func (s *Stream) Swap(root *evaluator.Evaluator) *evaluator.Evaluator {
	if root == nil {
		panic("stream: nil root")
	}
	old := s.root.Swap(root)
	if s.debug {
		s.logger.Debug("swapped stream root",
			"offset", s.offset.Load(),
			"graph", root.String())
	}
	return old
}

// Root returns the current root.
func (s *Stream) Root() *evaluator.Evaluator {
	return s.root.Load()
}

// Offset returns the time value of the next sample to be produced.
func (s *Stream) Offset() int32 {
	return s.offset.Load()
}

// Seek moves the stream to offset and drops any partially read window.
func (s *Stream) Seek(offset int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset.Store(offset)
	s.pending = nil
}

// Resolution returns the bit depth of the current root.
func (s *Stream) Resolution() int {
	return s.root.Load().Resolution()
}

// Read implements io.Reader over little-endian PCM packed for the current
// root's resolution (see Quantize). The stream never ends; wrap it in an
// io.LimitReader to bound it.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for n < len(p) {
		if len(s.pending) == 0 {
			window, res := s.next()
			s.packed = AppendPCM(s.packed[:0], window, res)
			s.pending = s.packed
		}
		c := copy(p[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

// Windows produces copies of successive windows on a channel until ctx is
// cancelled. The channel is closed when the producer stops.
//
// It is the caller's responsibility to drain the channel or cancel the
// context to avoid goroutine leaks.
func (s *Stream) Windows(ctx context.Context) <-chan []int32 {
	ch := make(chan []int32, 2)

	go func() {
		defer close(ch)
		for {
			window := append([]int32(nil), s.Next()...)
			select {
			case <-ctx.Done():
				return
			case ch <- window:
			}
		}
	}()

	return ch
}
