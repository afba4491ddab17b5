// Package compiler lowers gobeat expression trees into evaluator graphs.
//
// Lowering applies three transformations while it builds the graph:
//   - structurally equal sub-expressions are lowered once and shared,
//   - sub-expressions whose value does not depend on t are folded to
//     constants, using the same scalar semantics as the runtime,
//   - binary operations with a constant operand are specialised so the
//     constant is not materialised as a buffer.
//
// # Example
//
//	c := compiler.New(compiler.WithBufferSize(1024))
//	out, err := c.CompileSource("#resolution 8\nt*(t>>8|t>>9)&46&t>>8")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	samples := out.Root.Generate(out.Program.Start)
package compiler

import (
	"fmt"
	"log/slog"

	"github.com/sandrolain/gobeat/pkg/cache"
	"github.com/sandrolain/gobeat/pkg/evaluator"
	"github.com/sandrolain/gobeat/pkg/parser"
	"github.com/sandrolain/gobeat/pkg/types"
)

// DefaultBufferSize is the window length used when none is configured.
const DefaultBufferSize = 4096

// Compile lowers expr into a graph producing bufferSize samples per window
// at the given resolution, and returns its root.
//
// Configuration is checked before any node is built: a bufferSize below 1
// fails with C0101, a resolution outside [1, 32] with C0102 and a nil expr
// with E0101.
func Compile(expr types.Expr, bufferSize, resolution int) (*evaluator.Evaluator, error) {
	root, _, err := lower(expr, bufferSize, resolution)
	return root, err
}

// Compiler parses and lowers sources with a fixed configuration.
// It is safe for concurrent use; each compilation builds its own graph.
type Compiler struct {
	opts   Options
	logger *slog.Logger
	cache  *cache.Cache // non-nil when Caching is enabled
}

// Options configures compiler behavior.
type Options struct {
	// BufferSize is the number of samples per window.
	BufferSize int
	// Resolution overrides the program's #resolution when non-zero.
	Resolution int
	// Caching enables the parse cache.
	// When true, parsed programs are cached by source text.
	// The default cache holds up to 256 entries with LRU eviction.
	Caching bool
	// CacheSize sets the maximum number of cached programs.
	// Only used when Caching is true and no explicit Cache is provided.
	// Defaults to 256.
	CacheSize int
	// Cache is a custom parse cache. If non-nil, Caching is implicitly enabled.
	Cache *cache.Cache
	// MaxDepth limits parser nesting depth.
	MaxDepth int
	// Debug enables debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
}

// Option configures compilation behavior.
type Option func(*Options)

// New creates a new Compiler with default options.
func New(opts ...Option) *Compiler {
	options := Options{
		BufferSize: DefaultBufferSize,
		MaxDepth:   parser.DefaultMaxDepth,
	}

	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	var c *cache.Cache
	if options.Cache != nil {
		c = options.Cache
	} else if options.Caching {
		size := options.CacheSize
		if size <= 0 {
			size = 256
		}
		c = cache.New(size)
	}

	return &Compiler{
		opts:   options,
		logger: options.Logger,
		cache:  c,
	}
}

// Cache returns the parse cache, or nil if caching is disabled.
func (c *Compiler) Cache() *cache.Cache {
	return c.cache
}

// Options returns the effective configuration.
func (c *Compiler) Options() Options {
	return c.opts
}

// Compiled is the result of compiling one program.
type Compiled struct {
	Program *types.Program
	Root    *evaluator.Evaluator
	Stats   Stats
}

// Stats describes one lowering pass.
type Stats struct {
	// Emitted is the number of nodes added to the graph.
	Emitted int
	// Reachable is the number of nodes the root depends on.
	Reachable int
	// Folded counts operations replaced by their constant value.
	Folded int
	// Shared counts sub-expressions served from the hash-consing table.
	Shared int
}

// Parse parses source, going through the parse cache when enabled.
func (c *Compiler) Parse(source string) (*types.Program, error) {
	parse := func() (*types.Program, error) {
		return parser.Parse(source, parser.WithMaxDepth(c.opts.MaxDepth))
	}
	if c.cache == nil {
		return parse()
	}
	return c.cache.GetOrParse(source, parse)
}

// CompileSource parses and lowers source.
func (c *Compiler) CompileSource(source string) (*Compiled, error) {
	prog, err := c.Parse(source)
	if err != nil {
		return nil, err
	}
	return c.CompileProgram(prog)
}

// CompileProgram lowers an already parsed program.
func (c *Compiler) CompileProgram(prog *types.Program) (*Compiled, error) {
	if prog == nil {
		return nil, types.NewError(types.ErrNilExpression, "program is nil", -1)
	}

	res := prog.Resolution
	if c.opts.Resolution != 0 {
		res = c.opts.Resolution
	}

	root, stats, err := lower(prog.AST(), c.opts.BufferSize, res)
	if err != nil {
		return nil, err
	}

	if c.opts.Debug {
		c.logger.Debug("compiled program",
			"resolution", res,
			"buffer", c.opts.BufferSize,
			"emitted", stats.Emitted,
			"reachable", stats.Reachable,
			"folded", stats.Folded,
			"shared", stats.Shared,
			"graph", root.String())
	}

	return &Compiled{Program: prog, Root: root, Stats: stats}, nil
}

// MustCompileSource is like CompileSource but panics on error.
func (c *Compiler) MustCompileSource(source string) *Compiled {
	out, err := c.CompileSource(source)
	if err != nil {
		panic(fmt.Sprintf("compiler: CompileSource(%q): %v", source, err))
	}
	return out
}

// WithBufferSize sets the number of samples per window.
func WithBufferSize(n int) Option {
	return func(opts *Options) {
		opts.BufferSize = n
	}
}

// WithResolution forces the output resolution, ignoring #resolution.
func WithResolution(bits int) Option {
	return func(opts *Options) {
		opts.Resolution = bits
	}
}

// WithCaching enables or disables the parse cache.
// When enabled, a default LRU cache of 256 entries is created.
// To control the cache size use WithCacheSize; to supply your own cache use WithCache.
func WithCaching(enabled bool) Option {
	return func(opts *Options) {
		opts.Caching = enabled
	}
}

// WithCacheSize sets the maximum number of cached programs.
// Only effective when combined with WithCaching(true).
func WithCacheSize(size int) Option {
	return func(opts *Options) {
		opts.CacheSize = size
	}
}

// WithCache attaches an external parse cache.
// The compiler will use this cache regardless of the Caching flag.
func WithCache(c *cache.Cache) Option {
	return func(opts *Options) {
		opts.Cache = c
	}
}

// WithMaxDepth sets the parser nesting limit.
func WithMaxDepth(depth int) Option {
	return func(opts *Options) {
		opts.MaxDepth = depth
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
