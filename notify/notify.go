// Package notify provides [regAuth.Notifier] implementations.
//
// [LogNotifier] writes one structured record per issued code and is the delivery channel
// used by the regauth binary until a mail transport is configured. [Func] adapts a plain
// function.
package notify

import (
	"context"
	"log/slog"

	regAuth "github.com/MrEthical07/regAuth"
)

// LogNotifier reports codes through a *slog.Logger. The code itself is only written when
// ExposeCode is set, which the binary allows outside production mode.
type LogNotifier struct {
	Logger     *slog.Logger
	ExposeCode bool
}

// NewLogNotifier returns a LogNotifier writing to logger, or slog.Default when nil.
func NewLogNotifier(logger *slog.Logger, exposeCode bool) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Logger: logger, ExposeCode: exposeCode}
}

func (n *LogNotifier) SendCode(ctx context.Context, email, code, displayName string) (bool, error) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("to", regAuth.MaskEmail(email)),
		slog.String("name", displayName),
	}
	if n.ExposeCode {
		attrs = append(attrs, slog.String("code", code))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "verification code issued", attrs...)
	return true, nil
}

// Func adapts an ordinary function to [regAuth.Notifier].
type Func func(ctx context.Context, email, code, displayName string) (bool, error)

func (f Func) SendCode(ctx context.Context, email, code, displayName string) (bool, error) {
	return f(ctx, email, code, displayName)
}

var (
	_ regAuth.Notifier = (*LogNotifier)(nil)
	_ regAuth.Notifier = Func(nil)
)
