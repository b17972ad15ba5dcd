package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// ANSI color constants
const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"

	colorTime      = "\x1b[38;5;108m" // muted cyan-green for timestamps
	colorFg        = "\x1b[38;5;223m" // soft cream for message text
	colorID        = "\x1b[38;5;109m" // soft blue for ids
	colorNumber    = "\x1b[38;5;175m" // muted purple for numbers
	colorWarnFg    = "\x1b[38;5;214m"
	colorWarnBg    = "\x1b[48;5;58m"
	colorErrFg     = "\x1b[38;5;167m"
	colorErrBg     = "\x1b[48;5;88m"
	colorComponent = "\x1b[38;5;208m" // warm orange for component names
)

// minimalEncoder implements a calm, compact console encoder.
// Format: "13:04:35  registry  Merged module descriptors  sources=3"
type minimalEncoder struct {
	zapcore.Encoder // Embed a base encoder for field serialization
	buf             *buffer.Buffer
}

func newMinimalEncoder() *minimalEncoder {
	// Base JSON encoder handles field serialization (internal use only)
	baseEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	return &minimalEncoder{
		Encoder: baseEncoder,
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{
		Encoder: enc.Encoder.Clone(),
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := buffer.NewPool().Get()

	// Time
	final.AppendString(colorTime)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	// Level: only shown for WARN/ERROR with bold + background
	if ent.Level != zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level))
	}

	// Component name for visual grouping
	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(colorComponent)
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	// Message
	final.AppendString("  ")
	final.AppendString(colorFg)
	final.AppendString(ent.Message)
	final.AppendString(colorReset)

	// Fields: values only, colored by kind
	if len(fields) > 0 {
		final.AppendString("  ")
		final.AppendString(extractFieldValues(fields))
	}

	final.AppendString("\n")
	return final, nil
}

// levelColorString returns bold + colored + background for non-info levels
func levelColorString(level zapcore.Level) string {
	switch level {
	case zapcore.WarnLevel:
		return colorBold + colorWarnBg + colorWarnFg + "WARN" + colorReset
	case zapcore.ErrorLevel:
		return colorBold + colorErrBg + colorErrFg + "ERROR" + colorReset
	case zapcore.DebugLevel:
		return colorID + "DEBUG" + colorReset
	default:
		return level.CapitalString()
	}
}

// abbreviateName shortens dotted logger names to keep the left gutter narrow.
// "atlas.registry" becomes "a.registry".
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return name
	}
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] != "" {
			parts[i] = parts[i][:1]
		}
	}
	return strings.Join(parts, ".")
}

// extractFieldValues renders structured fields as compact key=value pairs
func extractFieldValues(fields []zapcore.Field) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(f.Key)
		b.WriteString("=")
		b.WriteString(fieldValueString(f))
	}
	return b.String()
}

func fieldValueString(f zapcore.Field) string {
	switch f.Type {
	case zapcore.StringType:
		return colorID + f.String + colorReset
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Uint64Type, zapcore.Uint32Type:
		return colorNumber + fmt.Sprintf("%d", f.Integer) + colorReset
	case zapcore.BoolType:
		if f.Integer == 1 {
			return colorNumber + "true" + colorReset
		}
		return colorNumber + "false" + colorReset
	case zapcore.ErrorType:
		if err, ok := f.Interface.(error); ok {
			return colorErrFg + err.Error() + colorReset
		}
	}
	return colorFg + fmt.Sprintf("%v", f.Interface) + colorReset
}
