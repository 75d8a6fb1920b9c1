// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package host drives a headless Chrome page and captures its element tree
// for detection passes.
package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"regform-scan/internal/dom"
	"regform-scan/internal/resilience"
)

// Options configures the browser session
type Options struct {
	Headless          bool
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	UserAgent         string
	ExecPath          string
	ViewportWidth     int64
	ViewportHeight    int64
	PollInterval      time.Duration
}

func (o Options) withDefaults() Options {
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 30 * time.Second
	}
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = 1280
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = 900
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.ExecPath == "" {
		o.ExecPath = detectChromePath()
	}
	return o
}

// ErrClosed is returned by calls on a closed session
var ErrClosed = errors.New("browser session closed")

// Session is one browser tab. It implements core.Snapshotter and
// elements.GeometryProvider.
type Session struct {
	opts Options

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewSession starts a browser and opens an empty tab
func NewSession(opts Options) (*Session, error) {
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], allocatorOptions(opts)...)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{opts: opts, ctx: ctx, cancel: cancel, allocCancel: allocCancel}
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetDeviceMetricsOverride(opts.ViewportWidth, opts.ViewportHeight, 1, false).Do(ctx)
	}))
	if err != nil {
		s.Close()
		return nil, resilience.NewPermanentError("failed to start browser", err)
	}
	return s, nil
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	out := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(int(opts.ViewportWidth), int(opts.ViewportHeight)),
	}
	if opts.ExecPath != "" {
		out = append(out, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		out = append(out, chromedp.UserAgent(opts.UserAgent))
	}
	return out
}

// run executes actions in the tab, bounded by both ctx and timeout
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return resilience.NewPermanentError("browser call rejected", ErrClosed)
	}

	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url and waits for the body to be ready. Transient failures
// are retried with backoff.
func (s *Session) Navigate(ctx context.Context, url string) error {
	err := resilience.RetryWithBackoff(ctx, resilience.NavigationRetryConfig(), func(ctx context.Context) error {
		err := s.run(ctx, s.opts.NavigationTimeout,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
		if err == nil || errors.Is(err, ErrClosed) || ctx.Err() != nil {
			return err
		}
		return resilience.NewTransientError("navigation to "+url+" failed", err)
	})
	if err != nil {
		return fmt.Errorf("navigate: %w", err)
	}

	if s.opts.SettleDelay > 0 {
		select {
		case <-time.After(s.opts.SettleDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Snapshot captures the page's element tree with geometry and computed styles
func (s *Session) Snapshot(ctx context.Context) (*dom.Document, error) {
	var raw []byte
	if err := s.run(ctx, s.opts.NavigationTimeout, chromedp.Evaluate(snapshotScript, &raw)); err != nil {
		return nil, fmt.Errorf("snapshot script: %w", err)
	}
	doc, err := dom.DecodeSnapshot(bytes.NewReader(raw))
	if err != nil {
		return nil, resilience.NewInvalidInputError("unreadable snapshot", err)
	}
	return doc, nil
}

// Rect reports the current position of a node captured by Snapshot
func (s *Session) Rect(ctx context.Context, node *dom.Node) (*dom.Rect, error) {
	ref, err := strconv.Atoi(node.Ref)
	if err != nil {
		return nil, resilience.NewInvalidInputError("node has no host reference", err)
	}
	var raw []byte
	if err := s.run(ctx, s.opts.NavigationTimeout, chromedp.Evaluate(fmt.Sprintf(rectScript, ref), &raw)); err != nil {
		return nil, err
	}
	return decodeRect(raw)
}

// Watch installs a mutation observer and calls onChange whenever the page's
// mutation count moved since the previous poll. It returns when ctx ends.
func (s *Session) Watch(ctx context.Context, onChange func()) error {
	var seen int64
	if err := s.run(ctx, s.opts.NavigationTimeout, chromedp.Evaluate(observerScript, &seen)); err != nil {
		return fmt.Errorf("install observer: %w", err)
	}

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		var count int64
		if err := s.run(ctx, s.opts.PollInterval, chromedp.Evaluate(mutationCountScript, &count)); err != nil {
			if errors.Is(err, ErrClosed) {
				return err
			}
			continue
		}
		if count != seen {
			seen = count
			onChange()
		}
	}
}

// Close shuts the tab and the browser process
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.allocCancel()
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
