// Command gobeat compiles and renders gobeat programs.
//
// Usage:
//
//	gobeat [-e src | -f file | -load name] [-o out.wav | -raw] [-seconds n]
//	       [-play] [-save name] [-list] [-history name] [-db path]
//	       [-buffer n] [-dump] [-debug]
//
// With no source and a terminal on stdin, gobeat starts an interactive
// session. Piped input is read as the program source.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/sandrolain/gobeat/pkg/compiler"
	"github.com/sandrolain/gobeat/pkg/store"
	"github.com/sandrolain/gobeat/pkg/stream"
)

// defaultSeconds is the length rendered to files when -seconds is not set.
const defaultSeconds = 10

// previewSamples is the number of samples printed when there is no sink.
const previewSamples = 16

type config struct {
	evalStr string
	file    string
	load    string
	out     string
	raw     bool
	seconds float64
	play    bool
	save    string
	list    bool
	history string
	dbPath  string
	buffer  int
	dump    bool
	debug   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet("gobeat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.evalStr, "e", "", "Compile program source")
	fs.StringVar(&cfg.file, "f", "", "Compile program file")
	fs.StringVar(&cfg.load, "load", "", "Compile a program from the library")
	fs.StringVar(&cfg.out, "o", "", "Write a WAV file")
	fs.BoolVar(&cfg.raw, "raw", false, "Write raw little-endian PCM to stdout")
	fs.Float64Var(&cfg.seconds, "seconds", 0, "Length to render; 0 renders 10 seconds to files and plays until interrupted")
	fs.BoolVar(&cfg.play, "play", false, "Play through the default audio device")
	fs.StringVar(&cfg.save, "save", "", "Save the program to the library under this name")
	fs.BoolVar(&cfg.list, "list", false, "List the programs in the library")
	fs.StringVar(&cfg.history, "history", "", "Show the versions of a library program")
	fs.StringVar(&cfg.dbPath, "db", "gobeat.db", "SQLite library path (empty for an in-memory library)")
	fs.IntVar(&cfg.buffer, "buffer", compiler.DefaultBufferSize, "Samples per window")
	fs.BoolVar(&cfg.dump, "dump", false, "Print the compiled graph")
	fs.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	sources := 0
	for _, s := range []string{cfg.evalStr, cfg.file, cfg.load} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		return nil, errors.New("-e, -f and -load are mutually exclusive")
	}
	if cfg.out != "" && cfg.raw {
		return nil, errors.New("-o and -raw are mutually exclusive")
	}
	if cfg.seconds < 0 {
		return nil, fmt.Errorf("invalid -seconds %v", cfg.seconds)
	}
	return cfg, nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func openStore(path string) (store.Store, error) {
	if path == "" {
		return store.NewMemory(), nil
	}
	return store.NewSQLite(path)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	logger := newLogger(stderr, cfg.debug)
	comp := compiler.New(
		compiler.WithBufferSize(cfg.buffer),
		compiler.WithCaching(true),
		compiler.WithDebug(cfg.debug),
		compiler.WithLogger(logger),
	)

	// The library is only opened when a flag or the REPL needs it.
	var lib store.Store
	library := func() (store.Store, error) {
		if lib != nil {
			return lib, nil
		}
		s, err := openStore(cfg.dbPath)
		if err != nil {
			return nil, err
		}
		lib = s
		return lib, nil
	}
	defer func() {
		if lib != nil {
			lib.Close()
		}
	}()

	fail := func(err error) int {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if cfg.list {
		s, err := library()
		if err != nil {
			return fail(err)
		}
		if err := printList(stdout, s); err != nil {
			return fail(err)
		}
		return 0
	}
	if cfg.history != "" {
		s, err := library()
		if err != nil {
			return fail(err)
		}
		if err := printHistory(stdout, s, cfg.history); err != nil {
			return fail(err)
		}
		return 0
	}

	var source string
	switch {
	case cfg.evalStr != "":
		source = cfg.evalStr

	case cfg.file != "":
		data, err := os.ReadFile(cfg.file)
		if err != nil {
			return fail(err)
		}
		source = string(data)

	case cfg.load != "":
		s, err := library()
		if err != nil {
			return fail(err)
		}
		e, err := s.Get(cfg.load)
		if err != nil {
			return fail(err)
		}
		if e == nil {
			return fail(fmt.Errorf("program %q not found", cfg.load))
		}
		source = e.Source

	case !isTerminal(stdin):
		// Piped input
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fail(fmt.Errorf("reading stdin: %w", err))
		}
		source = string(data)

	default:
		s, err := library()
		if err != nil {
			return fail(err)
		}
		r := &repl{comp: comp, lib: s, play: cfg.play, logger: logger, out: stdout}
		if err := r.run(ctx); err != nil {
			return fail(err)
		}
		return 0
	}

	out, err := comp.CompileSource(source)
	if err != nil {
		return fail(err)
	}

	if cfg.save != "" {
		s, err := library()
		if err != nil {
			return fail(err)
		}
		if err := s.Put(cfg.save, source); err != nil {
			return fail(err)
		}
		logger.Info("saved program", "name", cfg.save)
	}

	if cfg.dump {
		printDump(stdout, out)
	}

	rate := out.Program.Rate
	s := stream.New(out.Root,
		stream.WithOffset(out.Program.Start),
		stream.WithDebug(cfg.debug),
		stream.WithLogger(logger))

	switch {
	case cfg.out != "":
		err = writeFile(ctx, cfg.out, s, sampleCount(cfg.seconds, rate), rate)
	case cfg.raw:
		w := bufio.NewWriter(stdout)
		bytes := int64(sampleCount(cfg.seconds, rate) * stream.BytesPerSample(s.Resolution()))
		if _, err = io.CopyN(w, s, bytes); err == nil {
			err = w.Flush()
		}
	case cfg.play:
		if cfg.seconds > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, secondsDuration(cfg.seconds))
			defer cancel()
		}
		err = play(ctx, s, rate, logger)
	case !cfg.dump:
		printPreview(stdout, s.Next())
	}
	if err != nil {
		return fail(err)
	}
	return 0
}

func sampleCount(seconds float64, rate int) int {
	if seconds == 0 {
		seconds = defaultSeconds
	}
	return int(seconds * float64(rate))
}

func secondsDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func writeFile(ctx context.Context, path string, s *stream.Stream, samples, rate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := stream.WriteWAV(ctx, f, s, samples, rate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printDump(w io.Writer, out *compiler.Compiled) {
	fmt.Fprintf(w, "source: %s\n", out.Program.AST())
	fmt.Fprintf(w, "graph: %s\n", out.Root)
	fmt.Fprintf(w, "resolution: %d, rate: %d, start: %d\n",
		out.Program.Resolution, out.Program.Rate, out.Program.Start)
	fmt.Fprintf(w, "nodes: %d emitted, %d reachable, %d folded, %d shared\n",
		out.Stats.Emitted, out.Stats.Reachable, out.Stats.Folded, out.Stats.Shared)
}

func printPreview(w io.Writer, window []int32) {
	n := min(len(window), previewSamples)
	parts := make([]string, n)
	for i, v := range window[:n] {
		parts[i] = fmt.Sprint(v)
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
}

func printList(w io.Writer, s store.Store) error {
	entries, err := s.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s\tv%d\t%s\n", e.Name, e.Version, oneLine(e.Source))
	}
	return nil
}

func printHistory(w io.Writer, s store.Store, name string) error {
	versions, err := s.History(name, 0)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return fmt.Errorf("program %q not found", name)
	}
	for _, v := range versions {
		fmt.Fprintf(w, "v%d\t%s\t%s\n", v.Version, v.Updated.Format("2006-01-02 15:04:05"), oneLine(v.Source))
	}
	return nil
}

func oneLine(src string) string {
	return strings.Join(strings.Fields(src), " ")
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
