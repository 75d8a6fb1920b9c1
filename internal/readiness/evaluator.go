// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package readiness

import (
	"fmt"
	"math"
	"sort"

	"regform-scan/internal/detector"
)

// DefaultCriticalCategories are the categories a registration form is expected to carry
var DefaultCriticalCategories = []string{"business_name", "tax_identifier", "entity_type"}

// Gates are the thresholds a pass must meet to be presented as ready
type Gates struct {
	MinClassificationRate float64  `yaml:"min_classification_rate"`
	MinCriticalCoverage   int      `yaml:"min_critical_coverage"`
	MinDiversity          int      `yaml:"min_diversity"`
	MinAverageConfidence  float64  `yaml:"min_average_confidence"`
	MinValidationPassRate float64  `yaml:"min_validation_pass_rate"`
	CriticalCategories    []string `yaml:"critical_categories"`
}

// DefaultGates returns the stock readiness thresholds
func DefaultGates() Gates {
	return Gates{
		MinClassificationRate: 0.6,
		MinCriticalCoverage:   2,
		MinDiversity:          3,
		MinAverageConfidence:  60,
		MinValidationPassRate: 0.8,
		CriticalCategories:    append([]string(nil), DefaultCriticalCategories...),
	}
}

// GateResult reports one gating condition
type GateResult struct {
	Name      string  `json:"name" yaml:"name"`
	Value     float64 `json:"value" yaml:"value"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Passed    bool    `json:"passed" yaml:"passed"`
}

func (g GateResult) String() string {
	mark := "ok"
	if !g.Passed {
		mark = "below"
	}
	return fmt.Sprintf("%s %.2f (min %.2f) %s", g.Name, g.Value, g.Threshold, mark)
}

// Evaluator aggregates classifications into a DetectionSummary
type Evaluator struct {
	gates  Gates
	checks []check
}

// NewEvaluator creates an evaluator; zero gates take their defaults
func NewEvaluator(gates Gates) *Evaluator {
	d := DefaultGates()
	if gates.MinClassificationRate <= 0 {
		gates.MinClassificationRate = d.MinClassificationRate
	}
	if gates.MinCriticalCoverage <= 0 {
		gates.MinCriticalCoverage = d.MinCriticalCoverage
	}
	if gates.MinDiversity <= 0 {
		gates.MinDiversity = d.MinDiversity
	}
	if gates.MinAverageConfidence <= 0 {
		gates.MinAverageConfidence = d.MinAverageConfidence
	}
	if gates.MinValidationPassRate <= 0 {
		gates.MinValidationPassRate = d.MinValidationPassRate
	}
	if len(gates.CriticalCategories) == 0 {
		gates.CriticalCategories = d.CriticalCategories
	}
	return &Evaluator{gates: gates, checks: defaultChecks}
}

// Evaluate computes the statistics, runs the checks and scores readiness
func (e *Evaluator) Evaluate(fields []detector.FieldRecord) detector.DetectionSummary {
	s := detector.DetectionSummary{
		Total:              len(fields),
		Categories:         make(map[string]int),
		CriticalCategories: []string{},
	}

	confidence := 0
	for i := range fields {
		cls := fields[i].Classification
		confidence += cls.Confidence
		if cls.Classified() {
			s.Classified++
			s.Categories[cls.Category]++
		} else {
			s.Unclassified++
		}
	}
	if s.Total > 0 {
		s.AverageConfidence = math.Round(float64(confidence)/float64(s.Total)*10) / 10
	}

	for _, c := range e.gates.CriticalCategories {
		if s.Categories[c] > 0 {
			s.CriticalCategories = append(s.CriticalCategories, c)
		}
	}
	sort.Strings(s.CriticalCategories)

	for _, c := range e.checks {
		s.Checks = append(s.Checks, c.run(fields))
	}

	s.ReadinessScore, s.Ready = e.Score(&s)
	return s
}

// Gates evaluates each gating condition against a summary
func (e *Evaluator) Gates(s *detector.DetectionSummary) []GateResult {
	g := e.gates
	rate := s.ClassificationRate()
	passRate := ValidationPassRate(s.Checks)
	return []GateResult{
		{Name: "classification_rate", Value: rate, Threshold: g.MinClassificationRate, Passed: rate >= g.MinClassificationRate},
		{Name: "critical_coverage", Value: float64(len(s.CriticalCategories)), Threshold: float64(g.MinCriticalCoverage), Passed: len(s.CriticalCategories) >= g.MinCriticalCoverage},
		{Name: "category_diversity", Value: float64(len(s.Categories)), Threshold: float64(g.MinDiversity), Passed: len(s.Categories) >= g.MinDiversity},
		{Name: "average_confidence", Value: s.AverageConfidence, Threshold: g.MinAverageConfidence, Passed: s.AverageConfidence >= g.MinAverageConfidence},
		{Name: "validation_pass_rate", Value: passRate, Threshold: g.MinValidationPassRate, Passed: passRate >= g.MinValidationPassRate},
	}
}

// Score returns the fraction of satisfied gates and whether all hold. It
// depends only on the summary's statistics and check results.
func (e *Evaluator) Score(s *detector.DetectionSummary) (float64, bool) {
	gates := e.Gates(s)
	satisfied := 0
	for _, g := range gates {
		if g.Passed {
			satisfied++
		}
	}
	return float64(satisfied) / float64(len(gates)), satisfied == len(gates)
}

// ValidationPassRate is the share of applicable checks that passed; 1 when
// no check applied
func ValidationPassRate(checks []detector.CheckResult) float64 {
	applicable, passed := 0, 0
	for _, c := range checks {
		if !c.Applicable {
			continue
		}
		applicable++
		if c.Passed {
			passed++
		}
	}
	if applicable == 0 {
		return 1
	}
	return float64(passed) / float64(applicable)
}
