// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classifier

import (
	"context"
	"fmt"
	"math"
	"strings"

	"regform-scan/internal/detector"
	"regform-scan/internal/knowledge"
)

// Per-hit weights of the generic scorer
const (
	LabelWeight       = 30
	AttributeWeight   = 15
	PlaceholderWeight = 20
	OptionWeight      = 10
	KindWeight        = 15
	ExactBonus        = 40
	ExtraHitBonus     = 5
	MaxExtraBonus     = 20
)

// Confidence boosts applied on top of the normalized score
const (
	exactBoost    = 10
	requiredBoost = 5
	labelBoost    = 5
)

const (
	// DefaultAcceptanceThreshold is the minimum score for a pattern category to win
	DefaultAcceptanceThreshold = 25
	// DomainFallbackConfidence is the confidence of generic business_<kind> categories
	DomainFallbackConfidence = 40
)

// kindHints lets a control's native kind vote for its category
var kindHints = map[detector.ControlKind]string{
	detector.KindEmail: "email",
	detector.KindTel:   "phone",
	detector.KindURL:   "website",
}

// Options configures the Classifier
type Options struct {
	AcceptanceThreshold int `yaml:"acceptance_threshold"`
}

// Classifier scores field records against an effective pattern table
type Classifier struct {
	table      *knowledge.PatternTable
	categories []string
	opts       Options
}

// New creates a classifier for the given table
func New(table *knowledge.PatternTable, opts Options) *Classifier {
	if opts.AcceptanceThreshold <= 0 {
		opts.AcceptanceThreshold = DefaultAcceptanceThreshold
	}
	c := &Classifier{table: table, opts: opts}
	if table != nil {
		c.categories = table.Categories()
	}
	return c
}

// candidate is one category's generic score for a field
type candidate struct {
	category string
	priority int
	score    int
	exact    bool
	trace    []string
}

func (a candidate) beats(b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.category < b.category
}

// Classify assigns a category and confidence to one field
func (c *Classifier) Classify(f *detector.FieldRecord) detector.Classification {
	if cls, ok := special(f); ok {
		return cls
	}

	mc := newMatchContext(f)
	var best candidate
	found := false
	for _, category := range c.categories {
		rule := c.table.Rule(category)
		if rule == nil || excluded(category, mc.kind) {
			continue
		}
		cand := scoreRule(rule, mc)
		if cand.score == 0 {
			continue
		}
		if !found || cand.beats(best) {
			best, found = cand, true
		}
	}

	if found && best.score >= c.opts.AcceptanceThreshold {
		return detector.Classification{
			Category:   best.category,
			Confidence: confidence(best, mc),
			Tier:       detector.TierPattern,
			Trace:      best.trace,
		}
	}

	if hasDomainVocabulary(mc.text()) {
		return detector.Classification{
			Category:   "business_" + fallbackKind(f),
			Confidence: DomainFallbackConfidence,
			Tier:       detector.TierDomainFallback,
			Trace:      []string{"fallback:domain vocabulary"},
		}
	}

	cls := detector.Classification{Category: detector.Unclassified, Tier: detector.TierUnclassified}
	if mc.meaningful && found {
		cls.Confidence = clampConfidence(best.score)
		cls.Trace = append([]string{fmt.Sprintf("below threshold: %s=%d", best.category, best.score)}, best.trace...)
	}
	return cls
}

// ClassifySections classifies every field in place. When ctx ends first the
// remaining fields are marked unclassified and the context error is returned.
func (c *Classifier) ClassifySections(ctx context.Context, secs []detector.Section) error {
	for i := range secs {
		for j := range secs[i].Fields {
			f := &secs[i].Fields[j]
			if err := ctx.Err(); err != nil {
				markRemaining(secs, i, j)
				return err
			}
			f.Classification = c.Classify(f)
		}
	}
	return nil
}

func markRemaining(secs []detector.Section, i, j int) {
	for ; i < len(secs); i++ {
		for ; j < len(secs[i].Fields); j++ {
			secs[i].Fields[j].Classification = detector.Classification{
				Category: detector.Unclassified,
				Tier:     detector.TierUnclassified,
				Trace:    []string{"not evaluated: pass interrupted"},
			}
		}
		j = 0
	}
}

// excluded keeps typed controls out of categories they cannot hold
func excluded(category string, kind detector.ControlKind) bool {
	return kind == detector.KindEmail && strings.HasSuffix(category, "_name")
}

// scoreRule computes a category's generic score:
// sum of surface hits plus bonuses, scaled by the rule priority
func scoreRule(rule *knowledge.PatternRule, mc *matchContext) candidate {
	cand := candidate{category: rule.Category, priority: rule.Priority}
	items := make(map[string]bool)
	sum := 0

	for _, s := range mc.surfaces {
		hit := matchSurface(rule, s.texts, items)
		if s.name == "attribute" && hit == "" {
			hit = matchAttributes(rule, mc.attrKeys, items)
		}
		if hit != "" {
			sum += s.weight
			cand.trace = append(cand.trace, s.name+":"+hit)
		}
	}

	if hint, ok := kindHints[mc.kind]; ok && hint == rule.Category {
		sum += KindWeight
		items["kind:"+string(mc.kind)] = true
		cand.trace = append(cand.trace, "kind:"+string(mc.kind))
	}

	if mc.label != "" {
		for _, kw := range rule.Keywords {
			if mc.label == kw {
				cand.exact = true
				sum += ExactBonus
				cand.trace = append(cand.trace, "exact:"+kw)
				break
			}
		}
	}

	if n := len(items); n > 1 {
		sum += min(MaxExtraBonus, (n-1)*ExtraHitBonus)
	}
	if sum == 0 {
		return cand
	}
	cand.score = int(math.Round(float64(sum) * float64(rule.Priority) / 100))
	return cand
}

// matchSurface records every keyword and pattern hitting any of the texts and
// returns the first one found
func matchSurface(rule *knowledge.PatternRule, texts []string, items map[string]bool) string {
	first := ""
	for _, text := range texts {
		for _, kw := range rule.Keywords {
			if knowledge.ContainsPhrase(text, kw) {
				items["kw:"+kw] = true
				if first == "" {
					first = kw
				}
			}
		}
		for i, re := range rule.Regexps() {
			if re.MatchString(text) {
				items["re:"+rule.Patterns[i]] = true
				if first == "" {
					first = rule.Patterns[i]
				}
			}
		}
	}
	return first
}

func matchAttributes(rule *knowledge.PatternRule, keys map[string]bool, items map[string]bool) string {
	first := ""
	for _, a := range rule.Attributes {
		if keys[attrKey(a)] {
			items["attr:"+a] = true
			if first == "" {
				first = a
			}
		}
	}
	return first
}

func confidence(c candidate, mc *matchContext) int {
	conf := c.score
	if c.exact {
		conf += exactBoost
	}
	if mc.required {
		conf += requiredBoost
	}
	if mc.strong {
		conf += labelBoost
	}
	return clampConfidence(conf)
}

func clampConfidence(v int) int {
	return min(100, max(0, v))
}
