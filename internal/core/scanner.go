// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"regform-scan/internal/detector"
	"regform-scan/internal/dom"
	"regform-scan/internal/knowledge"
	"regform-scan/internal/region"
	"regform-scan/internal/resilience"
)

// Snapshotter captures the current element tree of a page
type Snapshotter interface {
	Snapshot(ctx context.Context) (*dom.Document, error)
}

// ScannerOptions configures a Scanner
type ScannerOptions struct {
	Pass PassOptions
	// Region forces a jurisdiction code and skips identification
	Region string
	// Debounce collapses bursts of Trigger calls; 0 requests immediately
	Debounce        time.Duration
	SnapshotTimeout time.Duration
}

// Stats are point-in-time counters
type Stats struct {
	Passes         int64 `json:"passes"`
	Requests       int64 `json:"requests"`
	Coalesced      int64 `json:"coalesced"`
	Triggers       int64 `json:"triggers"`
	SnapshotErrors int64 `json:"snapshot_errors"`
}

// Scanner runs detection passes for one page context. Passes never overlap;
// requests arriving while a pass runs collapse into a single rerun.
type Scanner struct {
	store  *knowledge.Store
	source Snapshotter
	opts   ScannerOptions

	passMu sync.Mutex

	mu      sync.Mutex
	last    *detector.Report
	running bool
	pending bool
	closed  bool
	timer   *time.Timer
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	passes         atomic.Int64
	requests       atomic.Int64
	coalesced      atomic.Int64
	triggers       atomic.Int64
	snapshotErrors atomic.Int64
}

// NewScanner creates a scanner. source may be nil when documents are only
// supplied through Scan.
func NewScanner(store *knowledge.Store, source Snapshotter, opts ScannerOptions) *Scanner {
	if store == nil {
		store = knowledge.NewStore(knowledge.NewEmbeddedSource(), nil)
	}
	if opts.SnapshotTimeout <= 0 {
		opts.SnapshotTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scanner{store: store, source: source, opts: opts, ctx: ctx, cancel: cancel}
}

// Scan runs one pass over doc and returns a snapshot of its report
func (s *Scanner) Scan(ctx context.Context, doc *dom.Document) *detector.Report {
	return s.ScanRegion(ctx, doc, "")
}

// ScanRegion is Scan with a per-call jurisdiction code; an empty code falls
// back to the scanner's configured region, then to identification
func (s *Scanner) ScanRegion(ctx context.Context, doc *dom.Document, code string) *detector.Report {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	report := RunPass(ctx, doc, s.patterns(doc, code), s.opts.Pass)
	s.passes.Add(1)

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
	return report.Clone()
}

// Rescan captures a fresh tree from the snapshotter and scans it
func (s *Scanner) Rescan(ctx context.Context) (*detector.Report, error) {
	if s.source == nil {
		return nil, resilience.NewInvalidInputError("scanner has no snapshot source", nil)
	}
	doc, err := resilience.CallWithTimeout(ctx, s.opts.SnapshotTimeout, s.source.Snapshot)
	if err != nil {
		s.snapshotErrors.Add(1)
		return nil, fmt.Errorf("snapshot failed: %w", err)
	}
	return s.Scan(ctx, doc), nil
}

// Request asks for a rescan. If a pass is running the request is deferred;
// any number of deferred requests yield exactly one rerun.
func (s *Scanner) Request() {
	s.requests.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.running {
		s.pending = true
		s.coalesced.Add(1)
		return
	}
	s.running = true
	s.wg.Add(1)
	go s.loop()
}

func (s *Scanner) loop() {
	defer s.wg.Done()
	for {
		if _, err := s.Rescan(s.ctx); err != nil {
			s.opts.Pass.Observer.LogDetail("scanner", err.Error())
		}

		s.mu.Lock()
		if !s.pending || s.closed {
			s.running = false
			s.mu.Unlock()
			return
		}
		s.pending = false
		s.mu.Unlock()
	}
}

// Trigger signals that the page changed. Calls within the debounce window
// restart it; the rescan is requested once the window stays quiet.
func (s *Scanner) Trigger() {
	s.triggers.Add(1)
	if s.opts.Debounce <= 0 {
		s.Request()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.opts.Debounce, s.Request)
		return
	}
	s.timer.Reset(s.opts.Debounce)
}

// LastReport returns a deep copy of the most recent report, or nil
func (s *Scanner) LastReport() *detector.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.Clone()
}

// LastSummary returns the most recent summary and whether a pass has completed
func (s *Scanner) LastSummary() (detector.DetectionSummary, bool) {
	r := s.LastReport()
	if r == nil {
		return detector.DetectionSummary{}, false
	}
	return r.Summary, true
}

// Wait blocks until no requested pass is running
func (s *Scanner) Wait() {
	s.wg.Wait()
}

// Close stops pending triggers, cancels a running snapshot and waits for the
// worker to exit
func (s *Scanner) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// Stats returns the scanner counters
func (s *Scanner) Stats() Stats {
	return Stats{
		Passes:         s.passes.Load(),
		Requests:       s.requests.Load(),
		Coalesced:      s.coalesced.Load(),
		Triggers:       s.triggers.Load(),
		SnapshotErrors: s.snapshotErrors.Load(),
	}
}

// patterns resolves the jurisdiction for doc and returns its effective table
func (s *Scanner) patterns(doc *dom.Document, override string) *knowledge.PatternTable {
	code := strings.TrimSpace(override)
	if code == "" {
		code = strings.TrimSpace(s.opts.Region)
	}
	code = strings.ToUpper(code)
	if code == "" && doc != nil {
		code, _ = region.Identify(doc.Address, doc.HeadingText())
	}
	return s.store.EffectivePatterns(code)
}
