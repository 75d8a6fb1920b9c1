// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regform-scan/internal/config"
	"regform-scan/internal/detector"
	"regform-scan/internal/dom"
	"regform-scan/internal/knowledge"
)

const registrationForm = `<html><body><form>
<label for="bn">Business Name</label><input id="bn" name="businessName" type="text" required>
<label for="ein">EIN</label><input id="ein" name="ein" type="text" placeholder="XX-XXXXXXX">
<fieldset><legend>Entity Type</legend>
<label><input type="radio" name="entity" value="llc"> LLC</label>
<label><input type="radio" name="entity" value="corp"> Corporation</label>
</fieldset>
</form></body></html>`

func unrelatedForm() string {
	var b strings.Builder
	b.WriteString("<html><body><form>")
	i := 0
	for _, adj := range []string{"Favorite", "Lucky", "Preferred", "Secret", "Daily"} {
		for _, noun := range []string{"Color", "Song", "Fruit", "Planet", "Movie", "Sport"} {
			fmt.Fprintf(&b, `<label for="f%d">%s %s</label><input id="f%d" type="text">`, i, adj, noun, i)
			i++
		}
	}
	b.WriteString("</form></body></html>")
	return b.String()
}

func parse(t *testing.T, markup, address string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseHTML(strings.NewReader(markup), address)
	require.NoError(t, err)
	return doc
}

func commonPatterns() *knowledge.PatternTable {
	return knowledge.NewStore(knowledge.NewEmbeddedSource(), nil).EffectivePatterns("")
}

func categoryOf(r *detector.Report, label string) string {
	for _, f := range r.Fields() {
		if f.Label.Text == label {
			return f.Classification.Category
		}
	}
	return ""
}

func TestRunPass_RegistrationFormIsReady(t *testing.T) {
	report := RunPass(context.Background(), parse(t, registrationForm, ""), commonPatterns(), PassOptions{})

	require.Len(t, report.Fields(), 3)
	assert.Equal(t, "business_name", categoryOf(report, "Business Name"))
	assert.Equal(t, "tax_identifier", categoryOf(report, "EIN"))
	assert.Equal(t, "entity_type", categoryOf(report, "Entity Type"))
	for _, f := range report.Fields() {
		assert.GreaterOrEqual(t, f.Classification.Confidence, 80, f.Label.Text)
	}

	s := report.Summary
	assert.Equal(t, 3, s.Classified)
	assert.True(t, s.Ready)
	assert.Equal(t, detector.StateReady, s.State)
	assert.False(t, s.Incomplete)
}

func TestRunPass_UnrelatedFieldsStayBounded(t *testing.T) {
	report := RunPass(context.Background(), parse(t, unrelatedForm(), ""), commonPatterns(), PassOptions{})

	s := report.Summary
	assert.Equal(t, 30, s.Total)
	assert.LessOrEqual(t, len(report.Fields()), 30)
	assert.GreaterOrEqual(t, s.Unclassified, 27)
	assert.False(t, s.Ready)
	assert.Equal(t, detector.StateNeedsImprovement, s.State)
	assert.False(t, s.Incomplete)
	assert.Less(t, s.Duration, 2*time.Second)
}

func TestRunPass_ExpiredDeadlineReturnsPartialSummary(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	report := RunPass(ctx, parse(t, registrationForm, ""), commonPatterns(), PassOptions{})

	require.NotNil(t, report)
	assert.True(t, report.Summary.Incomplete)
	assert.False(t, report.Summary.Ready)
	assert.Equal(t, detector.StateNeedsImprovement, report.Summary.State)
	assert.NotNil(t, report.Sections)
	joined := strings.Join(report.Summary.Diagnostics, "\n")
	assert.Contains(t, joined, "building_controls skipped")
	assert.Contains(t, joined, "pass exceeded")
}

func TestRunPass_FieldLimit(t *testing.T) {
	opts := PassOptions{Limits: Limits{MaxFields: 5}}
	report := RunPass(context.Background(), parse(t, unrelatedForm(), ""), commonPatterns(), opts)

	assert.Equal(t, 5, report.Summary.Total)
	assert.True(t, report.Summary.Incomplete)
	assert.Contains(t, strings.Join(report.Summary.Diagnostics, "\n"), "field limit reached")
}

func TestRunPass_NilInputs(t *testing.T) {
	report := RunPass(context.Background(), nil, nil, PassOptions{})

	assert.Equal(t, 0, report.Summary.Total)
	assert.Empty(t, report.Sections)
	assert.Equal(t, detector.StateNeedsImprovement, report.Summary.State)
}

func TestPassStage_RecoversPanic(t *testing.T) {
	p := &pass{state: detector.StateSegmenting}
	assert.NotPanics(t, func() {
		p.stage(context.Background(), func(context.Context) { panic("boom") })
	})
	assert.True(t, p.incomplete)
	require.Len(t, p.diagnostics, 1)
	assert.Equal(t, "segmenting failed: boom", p.diagnostics[0])
}

func TestSettle_MarksUnreachedFields(t *testing.T) {
	secs := fallbackSections([]detector.FieldRecord{{Label: detector.Label{Text: "EIN"}}})
	settle(secs)

	cls := secs[0].Fields[0].Classification
	assert.Equal(t, detector.Unclassified, cls.Category)
	assert.Equal(t, detector.TierUnclassified, cls.Tier)
	assert.Equal(t, "Form", secs[0].Name)
}

type staticSnapshotter struct {
	doc   *dom.Document
	calls atomic.Int32
}

func (s *staticSnapshotter) Snapshot(context.Context) (*dom.Document, error) {
	s.calls.Add(1)
	return s.doc, nil
}

// gatedSnapshotter blocks its first call until released
type gatedSnapshotter struct {
	doc     *dom.Document
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedSnapshotter) Snapshot(context.Context) (*dom.Document, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
		<-g.release
	}
	return g.doc, nil
}

type failingSnapshotter struct{}

func (failingSnapshotter) Snapshot(context.Context) (*dom.Document, error) {
	return nil, errors.New("target closed")
}

func TestScanner_CoalescesRequestsDuringPass(t *testing.T) {
	src := &gatedSnapshotter{
		doc:     parse(t, registrationForm, ""),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := NewScanner(nil, src, ScannerOptions{})
	defer s.Close()

	s.Request()
	<-src.started
	for i := 0; i < 5; i++ {
		s.Request()
	}
	close(src.release)
	s.Wait()

	assert.Equal(t, int32(2), src.calls.Load())
	stats := s.Stats()
	assert.Equal(t, int64(2), stats.Passes)
	assert.Equal(t, int64(6), stats.Requests)
	assert.Equal(t, int64(5), stats.Coalesced)
}

func TestScanner_DebouncesTriggers(t *testing.T) {
	src := &staticSnapshotter{doc: parse(t, registrationForm, "")}
	s := NewScanner(nil, src, ScannerOptions{Debounce: 30 * time.Millisecond})
	defer s.Close()

	for i := 0; i < 10; i++ {
		s.Trigger()
	}
	require.Eventually(t, func() bool { return s.Stats().Passes == 1 }, 2*time.Second, 5*time.Millisecond)
	s.Wait()
	time.Sleep(100 * time.Millisecond)

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Passes)
	assert.Equal(t, int64(10), stats.Triggers)
	assert.Equal(t, int64(1), stats.Requests)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestScanner_LastReportIsACopy(t *testing.T) {
	s := NewScanner(nil, nil, ScannerOptions{})
	_, ok := s.LastSummary()
	assert.False(t, ok)

	s.Scan(context.Background(), parse(t, registrationForm, ""))

	first := s.LastReport()
	require.NotEmpty(t, first.Fields())
	first.Sections[0].Fields[0].Label.Text = "mutated"
	first.Summary.Categories["mutated"] = 1

	again := s.LastReport()
	assert.NotEqual(t, "mutated", again.Sections[0].Fields[0].Label.Text)
	assert.NotContains(t, again.Summary.Categories, "mutated")

	summary, ok := s.LastSummary()
	assert.True(t, ok)
	assert.Equal(t, 3, summary.Total)
}

func TestScanner_ResolvesRegion(t *testing.T) {
	doc := parse(t, registrationForm, "https://efile.sunbiz.org/llc_file.html")

	identified := NewScanner(nil, nil, ScannerOptions{}).Scan(context.Background(), doc)
	assert.Equal(t, "FL", identified.Summary.Region)

	forced := NewScanner(nil, nil, ScannerOptions{Region: "tx"}).Scan(context.Background(), doc)
	assert.Equal(t, "TX", forced.Summary.Region)
}

func TestScanner_RescanErrors(t *testing.T) {
	_, err := NewScanner(nil, nil, ScannerOptions{}).Rescan(context.Background())
	assert.Error(t, err)

	s := NewScanner(nil, failingSnapshotter{}, ScannerOptions{})
	_, err = s.Rescan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target closed")
	assert.Equal(t, int64(1), s.Stats().SnapshotErrors)
	assert.Nil(t, s.LastReport())
}

func TestScanner_RequestAfterCloseIsIgnored(t *testing.T) {
	src := &staticSnapshotter{doc: parse(t, registrationForm, "")}
	s := NewScanner(nil, src, ScannerOptions{})
	s.Close()

	s.Request()
	s.Trigger()
	s.Wait()
	assert.Zero(t, src.calls.Load())
}

func TestBuildScannerOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Defaults.Region = "ny"
	cfg.Limits.MaxFields = 12
	cfg.Classifier.AcceptanceThreshold = 33

	opts := BuildScannerOptions(cfg, nil, nil)
	assert.Equal(t, "ny", opts.Region)
	assert.Equal(t, 250*time.Millisecond, opts.Debounce)
	assert.Equal(t, 12, opts.Pass.Limits.MaxFields)
	assert.Equal(t, 33, opts.Pass.Classifier.AcceptanceThreshold)
	assert.Equal(t, 0.6, opts.Pass.Gates.MinClassificationRate)
}

func TestParseConfidenceLevels(t *testing.T) {
	all := ParseConfidenceLevels("all")
	for _, level := range []string{"high", "medium", "low"} {
		if !all[level] {
			t.Errorf("expected %s enabled for all", level)
		}
	}

	some := ParseConfidenceLevels(" HIGH , medium,bogus")
	if !some["high"] || !some["medium"] || some["low"] {
		t.Errorf("unexpected levels: %v", some)
	}
	if _, ok := some["bogus"]; ok {
		t.Error("unknown level should not appear in result")
	}
}

func TestFilterReport(t *testing.T) {
	r := &detector.Report{Sections: []detector.Section{{
		Name: "Form",
		Fields: []detector.FieldRecord{
			{Label: detector.Label{Text: "EIN"}, Classification: detector.Classification{Category: "tax_identifier", Confidence: 95}},
			{Label: detector.Label{Text: "Notes"}, Classification: detector.Classification{Category: "business_text", Confidence: 40}},
		},
	}}}

	high := FilterReport(r, ParseConfidenceLevels("high"))
	require.Len(t, high.Sections[0].Fields, 1)
	assert.Equal(t, "EIN", high.Sections[0].Fields[0].Label.Text)
	assert.Len(t, r.Sections[0].Fields, 2)

	assert.Len(t, FilterReport(r, ParseConfidenceLevels("all")).Sections[0].Fields, 2)
}
