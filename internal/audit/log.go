// Package audit writes the owner-attributed trail of changes to the books.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"artifactlive.org/internal/auth"
	"artifactlive.org/internal/obs"
)

// Event names a change to an owner's books or credentials.
type Event string

const (
	AccountCreated      Event = "ledger.account.create"
	AccountDeactivated  Event = "ledger.account.deactivate"
	TransactionPosted   Event = "ledger.transaction.post"
	PricingConfigUpdate Event = "pricing.config.update"
	TokenIssued         Event = "auth.token.issued"
	TokenDenied         Event = "auth.token.denied"
)

// ErrNoEvent is returned for a blank event name.
var ErrNoEvent = errors.New("event name is required")

type ctxKey struct{}

// WithRequestID attaches the request identifier to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestIDFromContext returns the request id attached by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

// LogEvent writes one audit line carrying the request id and owner found in
// ctx. Fields are emitted in key order. Denials are logged at warn level.
func LogEvent(ctx context.Context, event Event, fields map[string]any) error {
	name := strings.TrimSpace(string(event))
	if name == "" {
		return ErrNoEvent
	}
	attrs := []slog.Attr{
		slog.String("type", "audit"),
		slog.String("event", name),
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	if owner, ok := auth.OwnerFromContext(ctx); ok {
		attrs = append(attrs, slog.String("owner", owner))
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	group := make([]any, 0, len(keys))
	for _, k := range keys {
		group = append(group, slog.Any(k, fields[k]))
	}
	attrs = append(attrs, slog.Group("fields", group...))

	level := slog.LevelInfo
	if strings.HasSuffix(name, ".denied") {
		level = slog.LevelWarn
	}
	obs.Logger().LogAttrs(ctx, level, "audit", attrs...)
	return nil
}
