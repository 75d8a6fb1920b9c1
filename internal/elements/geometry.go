// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package elements

import (
	"context"
	"time"

	"regform-scan/internal/dom"
	"regform-scan/internal/resilience"
)

// DefaultGeometryTimeout bounds a single geometry lookup
const DefaultGeometryTimeout = 150 * time.Millisecond

// GeometryProvider reports a node's position when the tree did not carry one
type GeometryProvider interface {
	Rect(ctx context.Context, node *dom.Node) (*dom.Rect, error)
}

// geometry wraps a provider with a per-call timeout and a circuit breaker that
// stops asking a failing host for the rest of the pass
type geometry struct {
	provider GeometryProvider
	timeout  time.Duration
	breaker  *resilience.CircuitBreaker
	failures int
}

func newGeometry(provider GeometryProvider, timeout time.Duration) *geometry {
	if provider == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultGeometryTimeout
	}
	return &geometry{
		provider: provider,
		timeout:  timeout,
		breaker:  resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("geometry")),
	}
}

// rect returns the node's rectangle; failures degrade to nil geometry
func (g *geometry) rect(ctx context.Context, n *dom.Node) *dom.Rect {
	if n.Rect != nil {
		return n.Rect
	}
	if g == nil {
		return nil
	}
	r, err := resilience.GuardedCall(ctx, g.breaker, g.timeout, func(ctx context.Context) (*dom.Rect, error) {
		return g.provider.Rect(ctx, n)
	})
	if err != nil {
		g.failures++
		return nil
	}
	return r
}
