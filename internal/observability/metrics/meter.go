// Copyright 2026 The Pulseboard Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter metric.Meter
}

// New creates a new meter instance
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	if !cfg.Enabled {
		return &Meter{
			meter: otel.Meter("noop"),
		}, nil
	}

	meter := otel.Meter(serviceName)

	return &Meter{
		meter: meter,
	}, nil
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// CreateHistogram creates a new histogram metric
func (m *Meter) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return histogram, nil
}

// AuthzMetrics groups the authorization counters recorded by the HTTP layer.
type AuthzMetrics struct {
	decisions metric.Int64Counter
	logins    metric.Int64Counter
}

// NewAuthzMetrics registers the authorization counters on the meter.
func NewAuthzMetrics(m *Meter) (*AuthzMetrics, error) {
	decisions, err := m.CreateCounter("authz_decisions_total", "Authorization decisions by outcome and reason")
	if err != nil {
		return nil, err
	}
	logins, err := m.CreateCounter("logins_total", "Login attempts by outcome")
	if err != nil {
		return nil, err
	}
	return &AuthzMetrics{decisions: decisions, logins: logins}, nil
}

// RecordDecision counts one authorization decision. Reason is empty for
// allowed decisions.
func (a *AuthzMetrics) RecordDecision(ctx context.Context, allowed bool, reason string) {
	a.decisions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.Bool("allowed", allowed),
			attribute.String("reason", reason),
		),
	)
}

// RecordLogin counts one login attempt.
func (a *AuthzMetrics) RecordLogin(ctx context.Context, success bool) {
	a.logins.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("success", success)),
	)
}
