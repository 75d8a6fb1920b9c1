// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"regform-scan/internal/classifier"
	"regform-scan/internal/detector"
	"regform-scan/internal/dom"
	"regform-scan/internal/elements"
	"regform-scan/internal/knowledge"
	"regform-scan/internal/observability"
	"regform-scan/internal/readiness"
	"regform-scan/internal/sections"
)

// Limits bound a single detection pass
type Limits struct {
	PassTimeout time.Duration `yaml:"pass_timeout"`
	MaxControls int           `yaml:"max_controls"`
	MaxFields   int           `yaml:"max_fields"`
}

// DefaultLimits returns the stock pass bounds
func DefaultLimits() Limits {
	return Limits{
		PassTimeout: 2 * time.Second,
		MaxControls: elements.DefaultMaxControls,
		MaxFields:   300,
	}
}

// PassOptions configures every stage of a detection pass
type PassOptions struct {
	Limits     Limits
	Elements   elements.Options
	Sections   sections.Options
	Classifier classifier.Options
	Gates      readiness.Gates
	Observer   *observability.StandardObserver
}

func (o PassOptions) withDefaults() PassOptions {
	d := DefaultLimits()
	if o.Limits.PassTimeout <= 0 {
		o.Limits.PassTimeout = d.PassTimeout
	}
	if o.Limits.MaxControls <= 0 {
		o.Limits.MaxControls = d.MaxControls
	}
	if o.Limits.MaxFields <= 0 {
		o.Limits.MaxFields = d.MaxFields
	}
	o.Elements.MaxControls = o.Limits.MaxControls
	return o
}

// pass carries the state of one run through the pipeline
type pass struct {
	opts   PassOptions
	id     string
	target string
	state  detector.PassState

	fields      []detector.FieldRecord
	sections    []detector.Section
	incomplete  bool
	diagnostics []string
}

// RunPass runs one detection pass over doc using the given pattern table.
// It never fails: stage errors, panics and timeouts are reported through
// the summary diagnostics and the Incomplete flag.
func RunPass(ctx context.Context, doc *dom.Document, table *knowledge.PatternTable, opts PassOptions) *detector.Report {
	opts = opts.withDefaults()
	start := time.Now()

	p := &pass{opts: opts, id: opts.Observer.NextPassID(), state: detector.StateIdle}
	if doc != nil {
		p.target = doc.Address
	}
	if table == nil {
		table = knowledge.NewStore(nil, nil).LoadCommon()
	}
	p.diagnostics = append(p.diagnostics, table.Diagnostics...)

	ctx, cancel := context.WithTimeout(ctx, opts.Limits.PassTimeout)
	defer cancel()

	finish := opts.Observer.StartTiming("pass", "run", p.target)
	endStep := opts.Observer.StartStep("pass", "run", p.target)

	p.advance()
	p.stage(ctx, func(ctx context.Context) { p.build(ctx, doc) })

	p.advance()
	p.stage(ctx, func(context.Context) { p.segment(doc) })
	if p.sections == nil && len(p.fields) > 0 {
		p.sections = fallbackSections(p.fields)
	}

	p.advance()
	p.stage(ctx, func(ctx context.Context) { p.classify(ctx, table) })
	settle(p.sections)

	p.advance()
	report := &detector.Report{Sections: p.sections}
	if report.Sections == nil {
		report.Sections = []detector.Section{}
	}
	p.stage(context.WithoutCancel(ctx), func(context.Context) {
		report.Summary = readiness.NewEvaluator(opts.Gates).Evaluate(report.Fields())
	})

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		p.incomplete = true
		p.diag(fmt.Sprintf("pass exceeded %v; partial results returned", opts.Limits.PassTimeout))
	}

	p.state = p.state.Advance(report.Summary.Ready && !p.incomplete)
	report.Summary.Region = table.Region
	report.Summary.Incomplete = p.incomplete
	report.Summary.State = p.state
	report.Summary.Duration = time.Since(start)
	report.Summary.Diagnostics = append(report.Summary.Diagnostics, p.diagnostics...)

	finish(!p.incomplete, map[string]interface{}{
		"pass_id":    p.id,
		"fields":     report.Summary.Total,
		"classified": report.Summary.Classified,
		"state":      string(p.state),
		"incomplete": p.incomplete,
	})
	endStep(!p.incomplete, fmt.Sprintf("%d fields, state %s", report.Summary.Total, p.state))
	return report
}

func (p *pass) diag(msg string) {
	p.diagnostics = append(p.diagnostics, msg)
}

func (p *pass) advance() {
	p.state = p.state.Advance(false)
}

// stage runs one pipeline stage, skipping it once the pass has run out of
// time and converting a panic into a diagnostic
func (p *pass) stage(ctx context.Context, fn func(context.Context)) {
	name := string(p.state)
	if err := ctx.Err(); err != nil {
		p.incomplete = true
		p.diag(fmt.Sprintf("%s skipped: %v", name, err))
		return
	}

	finish := p.opts.Observer.StartTiming("pass", name, p.target)
	endStep := p.opts.Observer.StartStep("pass", name, p.target)
	ok := true
	defer func() {
		if r := recover(); r != nil {
			ok = false
			p.incomplete = true
			p.diag(fmt.Sprintf("%s failed: %v", name, r))
		}
		finish(ok, map[string]interface{}{"pass_id": p.id})
		endStep(ok, "")
	}()
	fn(ctx)
}

func (p *pass) build(ctx context.Context, doc *dom.Document) {
	res := elements.NewBuilder(p.opts.Elements).Build(ctx, doc)
	p.fields = res.Fields
	p.incomplete = p.incomplete || res.Incomplete
	p.diagnostics = append(p.diagnostics, res.Diagnostics...)

	if limit := p.opts.Limits.MaxFields; len(p.fields) > limit {
		p.diag(fmt.Sprintf("field limit reached: %d of %d fields kept", limit, len(p.fields)))
		p.fields = p.fields[:limit]
		p.incomplete = true
	}
	p.opts.Observer.LogDetail("elements", fmt.Sprintf("%d fields built", len(p.fields)))
}

func (p *pass) segment(doc *dom.Document) {
	res := sections.NewSegmenter(p.opts.Sections).Segment(doc, p.fields)
	p.sections = res.Sections
	p.diagnostics = append(p.diagnostics, res.Diagnostics...)
	p.opts.Observer.LogDetail("sections", fmt.Sprintf("%d sections", len(p.sections)))
}

func (p *pass) classify(ctx context.Context, table *knowledge.PatternTable) {
	err := classifier.New(table, p.opts.Classifier).ClassifySections(ctx, p.sections)
	if err != nil {
		p.incomplete = true
		p.diag(fmt.Sprintf("classification interrupted: %v", err))
	}
}

// fallbackSections places every field in one default section; used when
// segmentation could not complete
func fallbackSections(fields []detector.FieldRecord) []detector.Section {
	sec := detector.Section{Name: sections.DefaultSectionName, Origin: detector.OriginDefault}
	for _, f := range fields {
		f.SectionIndex = 0
		sec.Fields = append(sec.Fields, f)
	}
	return []detector.Section{sec}
}

// settle marks fields that no classification stage reached as unclassified
func settle(secs []detector.Section) {
	for i := range secs {
		for j := range secs[i].Fields {
			c := &secs[i].Fields[j].Classification
			if c.Category == "" {
				*c = detector.Classification{
					Category: detector.Unclassified,
					Tier:     detector.TierUnclassified,
					Trace:    []string{"not evaluated: pass interrupted"},
				}
			}
		}
	}
}
