// SPDX-License-Identifier: Apache-2.0

// Command arenabox-demo propagates an arena-backed error through a chain of
// calls, annotating it at every frame, and reports the arena usage.
package main

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wundergraph/go-arenabox"
)

var (
	EnvPrefix = "ARENABOX_"
	ChunkSize = pflag.IntP("chunk-size", "c", 4096, "arena chunk size in bytes")
	Depth     = pflag.IntP("depth", "d", 3, "number of frames the error passes through")
	Pooled    = pflag.Bool("pooled", false, "take arenas from a pool")
	LogLevel  = levelP("log-level", "L", slog.LevelInfo, "log level")
	LogJSON   = pflag.Bool("log-json", false, "use json logs")
	Help      = pflag.BoolP("help", "h", false, "show this help text")
)

func main() {
	parseEnv(EnvPrefix)
	pflag.Parse()

	if *Help || pflag.NArg() != 0 {
		fmt.Printf("usage: %s [options]\n%s", os.Args[0], pflag.CommandLine.FlagUsages())
		if *Help {
			return
		}
		os.Exit(2)
	}

	if *LogJSON {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: LogLevel,
		})))
	} else {
		slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level: LogLevel,
		})))
	}

	if LogLevel.Level() <= slog.LevelDebug {
		l, err := zap.NewDevelopment()
		if err != nil {
			slog.Error("failed to create arena logger", "error", err)
			os.Exit(1)
		}
		defer l.Sync() //nolint:errcheck
		arenabox.SetLogger(l.Named("arenabox"))
	}

	if err := run(); err != nil {
		slog.Error("demo failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if *Depth < 0 {
		return fmt.Errorf("invalid depth %d", *Depth)
	}

	var opts []arenabox.Option
	if *Pooled {
		opts = append(opts, arenabox.WithPool(arenabox.NewPool(), 1))
	} else {
		opts = append(opts, arenabox.WithArenaOptions(arenabox.WithMinBufferSize(*ChunkSize)))
	}

	err := call(*Depth, opts)
	var oe *OpError
	if !errors.As(err, &oe) {
		return fmt.Errorf("unexpected error: %w", err)
	}
	slog.Info("error propagated", "error", oe.Error())

	stats := oe.Box.Stats()
	report := arenabox.NewFrom(oe.Box, func(a arenabox.Allocator, old opFailure) opReport {
		return opReport{
			Summary: a.Sprintf("%s (%d frames)", a.String(old.Op), old.Frames.Len()),
			Op:      old.Op,
			Code:    old.Code,
		}
	})
	defer report.Release()

	v := report.Get()
	slog.Info("report",
		"summary", v.String(v.Data().Summary),
		"op", v.String(v.Data().Op),
		"code", v.Data().Code,
		"arena_len", stats.Len,
		"arena_cap", stats.Cap,
		"arena_chunks", stats.Chunks,
		"arena_utilization", fmt.Sprintf("%.2f%%", stats.Utilization*100))
	return nil
}

// call recurses depth times and fails at the bottom; every frame annotates
// the error on the way up.
func call(depth int, opts []arenabox.Option) error {
	if depth == 0 {
		return newOpError("read config.yaml", 2, opts...)
	}
	if err := call(depth-1, opts); err != nil {
		return annotate(err, fmt.Sprintf("frame %d", depth))
	}
	return nil
}

func annotate(err error, frame string) error {
	var oe *OpError
	if !errors.As(err, &oe) {
		return fmt.Errorf("%s: %w", frame, err)
	}
	if merr := oe.Box.Mutate(func(s *arenabox.Scope[opFailure]) error {
		d := s.Data()
		d.Frames = arenabox.AppendSlice(s, d.Frames, s.AllocString(frame))
		return nil
	}); merr != nil {
		return errors.Join(err, merr)
	}
	slog.Debug("annotated error", "frame", frame)
	return err
}

type opFailure struct {
	Op     arenabox.Str
	Frames arenabox.Slice[arenabox.Str]
	Code   int32
}

func (f opFailure) Display(r arenabox.Reader) string {
	var b strings.Builder
	b.WriteString(r.String(f.Op))
	frames := arenabox.LoadSlice(r, f.Frames)
	for i := len(frames) - 1; i >= 0; i-- {
		b.WriteString(" <- ")
		b.WriteString(r.String(frames[i]))
	}
	return b.String()
}

func (f *opFailure) Handles(r arenabox.Reader) iter.Seq[arenabox.Handle] {
	return func(yield func(arenabox.Handle) bool) {
		if !yield(f.Op) {
			return
		}
		for h := range arenabox.SliceHandles(r, f.Frames) {
			if !yield(h) {
				return
			}
		}
	}
}

type opReport struct {
	Summary arenabox.Str
	Op      arenabox.Str
	Code    int32
}

// OpError carries a boxed opFailure as an error.
type OpError struct {
	Box *arenabox.Box[opFailure]
}

func newOpError(op string, code int32, opts ...arenabox.Option) *OpError {
	return &OpError{Box: arenabox.New(func(a arenabox.Allocator) opFailure {
		return opFailure{Op: a.AllocString(op), Code: code}
	}, opts...)}
}

func (e *OpError) Error() string {
	return e.Box.String()
}

func levelP(name, shorthand string, value slog.Level, usage string) *slog.LevelVar {
	level := new(slog.LevelVar)
	def := new(slog.LevelVar)
	def.Set(value)
	pflag.TextVarP(level, name, shorthand, def, usage)
	return level
}

// parseEnv sets flags from PREFIX_FLAG_NAME environment variables.
func parseEnv(prefix string) {
	for _, env := range os.Environ() {
		k, v, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		s, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		n := strings.Map(func(r rune) rune {
			if r == '_' {
				return '-'
			}
			return unicode.ToLower(r)
		}, s)
		f := pflag.CommandLine.Lookup(n)
		if f == nil {
			fmt.Fprintf(os.Stderr, "env %s: unknown flag --%s\n", k, n)
			continue
		}
		if err := f.Value.Set(v); err != nil {
			fmt.Fprintf(os.Stderr, "env %s: flag --%s: invalid argument: %v\n", k, n, err)
			os.Exit(2)
		}
	}
}
