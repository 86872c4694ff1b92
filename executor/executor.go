// Package executor contains the payment middleware around a delegate
// executor: the server-side state machine that requests, verifies, and
// settles payments, and the client-side interceptor that signs and submits
// them.
package executor

import (
	"context"
	"fmt"

	x402a2a "github.com/agentcommerce/x402-a2a"
	"github.com/agentcommerce/x402-a2a/a2a"
	"github.com/agentcommerce/x402-a2a/logger"
	"github.com/agentcommerce/x402-a2a/metrics"
)

// options collects the ambient collaborators shared by both executors.
type options struct {
	config  x402a2a.ExtensionConfig
	log     logger.Logger
	rec     metrics.Recorder
	store   RequirementsStore
	autoPay bool
}

func defaultOptions() options {
	return options{
		config:  x402a2a.DefaultExtensionConfig(),
		log:     logger.NoopLogger{},
		rec:     metrics.NoopRecorder{},
		autoPay: true,
	}
}

// Option configures a server or client executor.
type Option func(*options)

// WithConfig overrides the extension configuration.
func WithConfig(cfg x402a2a.ExtensionConfig) Option {
	return func(o *options) { o.config = cfg }
}

// WithLogger injects a logger.
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics injects a metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(o *options) { o.rec = rec }
}

// WithStore injects the requirements store; the default is an in-memory
// store scoped to the executor instance.
func WithStore(store RequirementsStore) Option {
	return func(o *options) { o.store = store }
}

// WithAutoPay enables or disables automatic payment on the client executor.
// When disabled the client records payment-rejected instead of signing.
func WithAutoPay(enabled bool) Option {
	return func(o *options) { o.autoPay = enabled }
}

// isActive reports whether the peer opted into x402 semantics for this
// request. Inactive requests pass through to the delegate untouched.
func isActive(rc *a2a.RequestContext) bool {
	if rc == nil {
		return false
	}
	return x402a2a.CheckExtensionActivation(rc.Headers)
}

// safeExecute invokes the delegate, converting a panic into an error so a
// misbehaving delegate cannot unwind past the payment middleware.
func safeExecute(ctx context.Context, delegate a2a.Executor, rc *a2a.RequestContext, q a2a.EventQueue) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delegate panicked: %v", r)
		}
	}()
	return delegate.Execute(ctx, rc, q)
}
