package telemetry

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ServerMetrics holds metric instruments for HTTP server telemetry.
type ServerMetrics struct {
	RequestCounter  metric.Int64Counter     // Total HTTP requests
	RequestDuration metric.Float64Histogram // HTTP request latency
	ErrorCounter    metric.Int64Counter     // Total HTTP errors (5xx)
}

// NewServerMetrics creates the HTTP instruments for the named service.
func NewServerMetrics(service string) (*ServerMetrics, error) {
	meter := otel.Meter("taskgate/http/" + service)

	requestCounter, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	// Buckets: 5ms .. 5s
	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"http.server.error.count",
		metric.WithDescription("Total number of HTTP server errors (5xx)"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &ServerMetrics{
		RequestCounter:  requestCounter,
		RequestDuration: requestDuration,
		ErrorCounter:    errorCounter,
	}, nil
}

// RecordRequest records an HTTP request with method, route, status, and duration.
func (m *ServerMetrics) RecordRequest(ctx context.Context, method, route string, status int, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.String("http.status_code", strconv.Itoa(status)),
	)

	m.RequestCounter.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, durationMs, attrs)

	if status >= 500 {
		m.ErrorCounter.Add(ctx, 1, attrs)
	}
}

// AuthMetrics holds instruments for edge verification, authorization
// decisions and token issuance.
type AuthMetrics struct {
	Verifications metric.Int64Counter
	Decisions     metric.Int64Counter
	Issuance      metric.Int64Counter
}

// NewAuthMetrics creates metric instruments for authentication telemetry.
func NewAuthMetrics() (*AuthMetrics, error) {
	meter := otel.Meter("taskgate/auth")

	verifications, err := meter.Int64Counter(
		"auth.verification.count",
		metric.WithDescription("Edge token verification outcomes"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	decisions, err := meter.Int64Counter(
		"authz.decision.count",
		metric.WithDescription("Edge authorization decisions"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	issuance, err := meter.Int64Counter(
		"auth.issuance.count",
		metric.WithDescription("Token issuance attempts by operation and result"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	return &AuthMetrics{
		Verifications: verifications,
		Decisions:     decisions,
		Issuance:      issuance,
	}, nil
}

// RecordVerification counts one edge verification outcome
// (authenticated, public, missing_credential, malformed, ...).
func (m *AuthMetrics) RecordVerification(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Verifications.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordDecision counts one authorization decision.
func (m *AuthMetrics) RecordDecision(ctx context.Context, decision, level string) {
	if m == nil {
		return
	}
	m.Decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("decision", decision),
		attribute.String("policy.level", level),
	))
}

// RecordIssuance counts one signup or signin attempt.
func (m *AuthMetrics) RecordIssuance(ctx context.Context, operation, result string) {
	if m == nil {
		return
	}
	m.Issuance.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("result", result),
	))
}
