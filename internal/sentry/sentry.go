// Package sentry reports errors to Better Stack through the Sentry SDK.
// Every function is a no-op until Initialize succeeds with a token.
package sentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// ErrMissingHost is returned when a token is configured without a host.
var ErrMissingHost = errors.New("sentry: host is required when token is provided")

// Config holds Sentry configuration for Better Stack integration.
type Config struct {
	Token       string // Better Stack Errors application token; empty disables reporting
	Host        string // Ingesting host, e.g. "errors.betterstack.com"
	Environment string
	Release     string
	SampleRate  float64 // 0 means 1.0
	Debug       bool
}

// DSN builds the Better Stack DSN https://TOKEN@HOST/1.
// The project id is required by the SDK and ignored by Better Stack.
func (c Config) DSN() string {
	return fmt.Sprintf("https://%s@%s/1", c.Token, c.Host)
}

// Initialize sets up the Sentry SDK. An empty token leaves it disabled.
func Initialize(cfg Config) error {
	if cfg.Token == "" {
		return nil
	}
	if cfg.Host == "" {
		return ErrMissingHost
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN(),
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
		BeforeSend:       dropCanceled,
	})
}

// dropCanceled discards errors caused by a caller going away, such as turns
// interrupted by shutdown.
func dropCanceled(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint != nil && errors.Is(hint.OriginalException, context.Canceled) {
		return nil
	}
	return event
}

// Flush waits for buffered events to be sent to the server.
// Returns true if all events were sent within the timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns true if Sentry is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureTurnError captures err with tags describing the dialogue turn
// (conversation, update kind, command). Empty tag values are skipped.
func CaptureTurnError(ctx context.Context, err error, tags map[string]string) {
	hub := hubFromContext(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			if v != "" {
				scope.SetTag(k, v)
			}
		}
		hub.CaptureException(err)
	})
}

func hubFromContext(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}
