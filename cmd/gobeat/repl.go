package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/sandrolain/gobeat/pkg/compiler"
	"github.com/sandrolain/gobeat/pkg/store"
	"github.com/sandrolain/gobeat/pkg/stream"
)

const (
	historyFile = ".gobeat_history"
	prompt      = "beat> "
)

const banner = "gobeat REPL (Ctrl+D to exit, :help for commands)"

const helpText = `Enter a program to compile it. Commands:
  :save <name>   save the current program to the library
  :load <name>   compile a program from the library
  :list          list the library
  :dump          print the current graph
  :quit          exit
`

// repl is an interactive session. When play is set, the first compiled
// program starts playback and later ones are swapped in without a gap.
type repl struct {
	comp   *compiler.Compiler
	lib    store.Store
	play   bool
	logger *slog.Logger
	out    io.Writer

	current *compiler.Compiled
	source  string
	player  *stream.Stream
	done    chan error
}

func (r *repl) run(ctx context.Context) error {
	fmt.Fprintln(r.out, banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	// Load history (best-effort)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil { // Ctrl+D or EOF
			fmt.Fprintln(r.out)
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		if strings.HasPrefix(line, ":") {
			if r.command(ctx, line) {
				break
			}
			continue
		}
		r.compile(ctx, line)
	}

	// Persist history (best-effort)
	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}

	if r.done != nil {
		cancel()
		return <-r.done
	}
	return nil
}

// command handles a ':' line and reports whether the session should end.
func (r *repl) command(ctx context.Context, line string) (exit bool) {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ":help":
		fmt.Fprint(r.out, helpText)

	case ":quit", ":exit":
		return true

	case ":save":
		if len(fields) < 2 {
			fmt.Fprintln(r.out, "usage: :save <name>")
			return false
		}
		if r.current == nil {
			fmt.Fprintln(r.out, "nothing to save")
			return false
		}
		if err := r.lib.Put(fields[1], r.source); err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			return false
		}
		fmt.Fprintf(r.out, "saved %s\n", fields[1])

	case ":load":
		if len(fields) < 2 {
			fmt.Fprintln(r.out, "usage: :load <name>")
			return false
		}
		e, err := r.lib.Get(fields[1])
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			return false
		}
		if e == nil {
			fmt.Fprintf(r.out, "program %q not found\n", fields[1])
			return false
		}
		fmt.Fprintln(r.out, oneLine(e.Source))
		r.compile(ctx, e.Source)

	case ":list":
		if err := printList(r.out, r.lib); err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
		}

	case ":dump":
		if r.current == nil {
			fmt.Fprintln(r.out, "nothing compiled")
			return false
		}
		printDump(r.out, r.current)

	default:
		fmt.Fprintln(r.out, "unknown command. Type :help for help.")
	}
	return false
}

// compile compiles source, prints a preview and updates playback.
func (r *repl) compile(ctx context.Context, source string) {
	out, err := r.comp.CompileSource(source)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	r.current, r.source = out, source

	// The preview runs on its own compilation so the playing graph is only
	// touched by the player goroutine.
	preview, err := r.comp.CompileProgram(out.Program)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	printPreview(r.out, preview.Root.Generate(out.Program.Start))

	if !r.play {
		return
	}
	if r.player != nil {
		r.player.Swap(out.Root)
		return
	}
	r.player = stream.New(out.Root,
		stream.WithOffset(out.Program.Start),
		stream.WithDebug(r.comp.Options().Debug),
		stream.WithLogger(r.logger))
	r.done = make(chan error, 1)
	go func() {
		r.done <- play(ctx, r.player, out.Program.Rate, r.logger)
	}()
}
