// Package log provides the process-wide logging shell. It is init-once and
// lock-guarded: cmd/anvil-node installs it with SetupShell, and the other
// packages derive their component loggers from it through New, so how
// output is ultimately rendered (terminal, JSON, file) is decided in one
// place.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a thin wrapper around slog.Logger adding the "with" ergonomics
// (key/value pairs as variadic args) the rest of the tree expects.
type Logger struct {
	inner *slog.Logger
}

func wrap(l *slog.Logger) *Logger { return &Logger{inner: l} }

func (l *Logger) With(ctx ...any) *Logger { return wrap(l.inner.With(ctx...)) }

func (l *Logger) Trace(msg string, ctx ...any) { l.inner.Log(context.Background(), levelTrace, msg, ctx...) }
func (l *Logger) Debug(msg string, ctx ...any) { l.inner.Debug(msg, ctx...) }
func (l *Logger) Info(msg string, ctx ...any)  { l.inner.Info(msg, ctx...) }
func (l *Logger) Warn(msg string, ctx ...any)  { l.inner.Warn(msg, ctx...) }
func (l *Logger) Error(msg string, ctx ...any) { l.inner.Error(msg, ctx...) }
func (l *Logger) Crit(msg string, ctx ...any) {
	l.inner.Log(context.Background(), levelCrit, msg, ctx...)
	os.Exit(1)
}

const (
	levelTrace = slog.Level(-8)
	levelCrit  = slog.Level(12)
)

var (
	shellOnce sync.Once
	shell     *Logger = wrap(slog.New(slog.NewTextHandler(os.Stderr, nil)))
)

// Root returns the process-wide logger shell. Init is idempotent; the first
// caller to invoke SetupShell wins. cmd/anvil-node owns this global mutable
// shell; other packages reach it through New.
func Root() *Logger { return shell }

// ShellConfig configures the single process-wide logger.
type ShellConfig struct {
	Verbosity int    // 0=error, 1=warn, 2=info, 3=debug, 4 and above=trace
	JSON      bool   // structured JSON output instead of the colored terminal format
	LogFile   string // optional rotating file sink (lumberjack)
}

// SetupShell installs the process-wide logger according to cfg. Safe to
// call once at process start; later calls are ignored.
func SetupShell(cfg ShellConfig) {
	shellOnce.Do(func() {
		level := verbosityToLevel(cfg.Verbosity)
		var out io.Writer = os.Stderr
		useColor := !cfg.JSON && isatty.IsTerminal(os.Stderr.Fd())
		if useColor {
			out = colorable.NewColorableStderr()
		}
		if cfg.LogFile != "" {
			out = io.MultiWriter(out, &lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    100,
				MaxBackups: 3,
				MaxAge:     28,
			})
		}
		var handler slog.Handler
		opts := &slog.HandlerOptions{Level: level}
		if cfg.JSON {
			handler = slog.NewJSONHandler(out, opts)
		} else {
			handler = newTerminalHandler(out, opts, useColor)
		}
		shell = wrap(slog.New(handler))
	})
}

func verbosityToLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError
	case v == 1:
		return slog.LevelWarn
	case v == 2:
		return slog.LevelInfo
	case v == 3:
		return slog.LevelDebug
	default:
		return levelTrace
	}
}

// terminalHandler renders records as "LVL[time] msg key=val ..." with level
// coloring when the destination is a real terminal, matching the format the
// go-ethereum family of nodes uses for console output.
type terminalHandler struct {
	out   io.Writer
	opts  *slog.HandlerOptions
	color bool
	mu    *sync.Mutex
}

func newTerminalHandler(out io.Writer, opts *slog.HandlerOptions, color bool) *terminalHandler {
	return &terminalHandler{out: out, opts: opts, color: color, mu: &sync.Mutex{}}
}

func (h *terminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.opts != nil && h.opts.Level != nil {
		min = h.opts.Level.Level()
	}
	return level >= min
}

func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	lvl := levelString(r.Level, h.color)
	ts := r.Time.Format(time.RFC3339)
	line := lvl + "[" + ts + "] " + r.Message
	r.Attrs(func(a slog.Attr) bool {
		line += " " + a.Key + "=" + a.Value.String()
		return true
	})
	_, err := io.WriteString(h.out, line+"\n")
	return err
}

func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *terminalHandler) WithGroup(name string) slog.Handler       { return h }

func levelString(l slog.Level, color bool) string {
	var label string
	switch {
	case l <= levelTrace:
		label = "TRACE"
	case l < slog.LevelInfo:
		label = "DEBUG"
	case l < slog.LevelWarn:
		label = "INFO "
	case l < slog.LevelError:
		label = "WARN "
	case l < levelCrit:
		label = "ERROR"
	default:
		label = "CRIT "
	}
	if !color {
		return label
	}
	switch label[0] {
	case 'D':
		return levelColor.cyan.Sprint(label)
	case 'I':
		return levelColor.green.Sprint(label)
	case 'W':
		return levelColor.yellow.Sprint(label)
	case 'E', 'C':
		return levelColor.red.Sprint(label)
	default:
		return label
	}
}

// levelColor holds the fatih/color styles used for terminal level labels;
// colors are force-enabled since useColor already gated on isatty, rather
// than relying on color's own global auto-detection a second time.
var levelColor = struct {
	cyan, green, yellow, red *color.Color
}{
	cyan:   color.New(color.FgCyan),
	green:  color.New(color.FgGreen),
	yellow: color.New(color.FgYellow),
	red:    color.New(color.FgRed),
}

func init() {
	for _, c := range []*color.Color{levelColor.cyan, levelColor.green, levelColor.yellow, levelColor.red} {
		c.EnableColor()
	}
}

// Package-level convenience helpers delegate to the shell, so callers can
// use the package-function logging style (log.Info(...)) instead of always
// threading a *Logger explicitly.
func Trace(msg string, ctx ...any) { Root().Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { Root().Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { Root().Crit(msg, ctx...) }
func New(ctx ...any) *Logger        { return Root().With(ctx...) }
