package log

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"

	constant "github.com/godofwharf/hystrix-function-wrapper/hystrix/constants"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/mdc"
	"github.com/godofwharf/hystrix-function-wrapper/hystrix/security"
	"go.opentelemetry.io/otel/trace"
)

// logControlCharReplacer escapes control characters that can be used for log injection (CWE-117).
var logControlCharReplacer = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func sanitizeLogString(s string) string {
	return logControlCharReplacer.Replace(s)
}

// GoLogger is the Go built-in (log) implementation of Logger.
//
// Each record is a single line: level, fields, logging context, message.
// All strings are sanitized to prevent log injection (CWE-117).
type GoLogger struct {
	Level  Level
	out    *stdlog.Logger
	group  string
	fields []Field
}

// NewGoLogger returns a GoLogger writing to w. A nil w writes to stderr.
func NewGoLogger(w io.Writer, level Level) *GoLogger {
	if w == nil {
		w = os.Stderr
	}

	return &GoLogger{
		Level: level,
		out:   stdlog.New(w, "", stdlog.LstdFlags),
	}
}

// Log implements Logger.
func (l *GoLogger) Log(ctx context.Context, level Level, msg string, fields ...Field) {
	if !l.Enabled(level) {
		return
	}

	l.printer().Print(l.hydrate(ctx, level, msg, fields))
}

// With returns a child logger carrying fields on every record.
//
//nolint:ireturn
func (l *GoLogger) With(fields ...Field) Logger {
	if l == nil {
		return &GoLogger{}
	}

	newFields := make([]Field, 0, len(l.fields)+len(fields))
	newFields = append(newFields, l.fields...)

	for _, f := range fields {
		newFields = append(newFields, Field{Key: l.qualify(f.Key), Value: f.Value})
	}

	return &GoLogger{Level: l.Level, out: l.out, group: l.group, fields: newFields}
}

// WithGroup returns a child logger whose later field keys are prefixed by name.
//
//nolint:ireturn
func (l *GoLogger) WithGroup(name string) Logger {
	if l == nil {
		return &GoLogger{}
	}

	return &GoLogger{Level: l.Level, out: l.out, group: l.qualify(name), fields: l.fields}
}

// Enabled reports whether level is within the logger's verbosity.
func (l *GoLogger) Enabled(level Level) bool {
	if l == nil {
		return false
	}

	return l.Level >= level
}

// Sync is a no-op; the standard logger writes synchronously.
func (l *GoLogger) Sync(_ context.Context) error { return nil }

func (l *GoLogger) printer() *stdlog.Logger {
	if l.out == nil {
		return stdlog.Default()
	}

	return l.out
}

func (l *GoLogger) qualify(key string) string {
	if l.group == "" {
		return key
	}

	return l.group + "." + key
}

func (l *GoLogger) hydrate(ctx context.Context, level Level, msg string, fields []Field) string {
	parts := make([]string, 0, 4)
	parts = append(parts, fmt.Sprintf("[%s]", level.String()))

	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)

	for _, f := range fields {
		all = append(all, Field{Key: l.qualify(f.Key), Value: f.Value})
	}

	if rendered := renderFields(all); rendered != "" {
		parts = append(parts, rendered)
	}

	if rendered := renderContext(ctx); rendered != "" {
		parts = append(parts, rendered)
	}

	parts = append(parts, sanitizeLogString(msg))

	return strings.Join(parts, " ")
}

func renderFields(fields []Field) string {
	if len(fields) == 0 {
		return ""
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if security.IsSensitiveField(f.Key) {
			parts = append(parts, sanitizeLogString(f.Key+"="+security.Redacted))

			continue
		}

		parts = append(parts, sanitizeLogString(fmt.Sprintf("%s=%v", f.Key, f.Value)))
	}

	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}

// renderContext renders the ambient logging context and the active span ids of ctx.
func renderContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	parts := make([]string, 0, 4)

	snapshot := mdc.Capture(ctx)
	for _, k := range snapshot.Keys() {
		parts = append(parts, sanitizeLogString(k+"="+security.Redact(k, snapshot[k])))
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		parts = append(parts,
			constant.LogKeyTraceID+"="+sc.TraceID().String(),
			constant.LogKeySpanID+"="+sc.SpanID().String(),
		)
	}

	if len(parts) == 0 {
		return ""
	}

	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}
