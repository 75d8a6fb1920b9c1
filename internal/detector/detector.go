// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"time"

	"regform-scan/internal/dom"
)

// ControlKind is the kind of a raw interactive element
type ControlKind string

const (
	KindText     ControlKind = "text"
	KindEmail    ControlKind = "email"
	KindTel      ControlKind = "tel"
	KindNumber   ControlKind = "number"
	KindDate     ControlKind = "date"
	KindURL      ControlKind = "url"
	KindTextarea ControlKind = "textarea"
	KindSelect   ControlKind = "select"
	KindRadio    ControlKind = "radio"
	KindCheckbox ControlKind = "checkbox"
	KindPassword ControlKind = "password"
	KindFile     ControlKind = "file"
)

// FieldType is the type of a resolved field; group types extend the control kinds
type FieldType string

const (
	TypeRadioGroup    FieldType = "radio_group"
	TypeCheckboxGroup FieldType = "checkbox_group"
	TypeBoolean       FieldType = "boolean"
)

// FieldTypeOf maps a single-control kind onto its field type
func FieldTypeOf(kind ControlKind) FieldType {
	return FieldType(kind)
}

// LabelSource records which step of the label fallback chain produced a label
type LabelSource string

const (
	LabelExplicit    LabelSource = "explicit"
	LabelAria        LabelSource = "aria"
	LabelWrapping    LabelSource = "wrapping"
	LabelSibling     LabelSource = "sibling"
	LabelContainer   LabelSource = "container"
	LabelPlaceholder LabelSource = "placeholder"
	LabelTitle       LabelSource = "title"
	LabelDerived     LabelSource = "derived"
	LabelCaption     LabelSource = "caption" // legend / group caption
)

// Label is a resolved human-readable label with its provenance
type Label struct {
	Text   string      `json:"text" yaml:"text"`
	Source LabelSource `json:"source" yaml:"source"`
}

// Derived reports whether the label was synthesized from attribute names
func (l Label) Derived() bool {
	return l.Source == LabelDerived
}

// Control is one raw interactive element
type Control struct {
	Kind        ControlKind `json:"kind" yaml:"kind"`
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
	ID          string      `json:"id,omitempty" yaml:"id,omitempty"`
	Placeholder string      `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Title       string      `json:"title,omitempty" yaml:"title,omitempty"`
	Value       string      `json:"value,omitempty" yaml:"value,omitempty"`
	Required    bool        `json:"required" yaml:"required"`
	Visible     bool        `json:"visible" yaml:"visible"`
	Rect        *dom.Rect   `json:"rect,omitempty" yaml:"rect,omitempty"`
	GroupKey    string      `json:"group_key,omitempty" yaml:"group_key,omitempty"`
}

// Option is one choice of a selection or choice-group field
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// ClassificationTier records which decision layer produced a classification
type ClassificationTier string

const (
	TierSpecial        ClassificationTier = "special"
	TierPattern        ClassificationTier = "pattern"
	TierDomainFallback ClassificationTier = "domain_fallback"
	TierUnclassified   ClassificationTier = "unclassified"
)

// Unclassified is the category assigned to fields without a usable signal
const Unclassified = "unclassified"

// Classification is the outcome of scoring one field
type Classification struct {
	Category   string             `json:"category" yaml:"category"`
	Confidence int                `json:"confidence" yaml:"confidence"`
	Tier       ClassificationTier `json:"tier" yaml:"tier"`
	Trace      []string           `json:"trace,omitempty" yaml:"trace,omitempty"`
}

// Classified reports whether the field received a real category
func (c Classification) Classified() bool {
	return c.Category != "" && c.Category != Unclassified
}

// FieldRecord is a resolved, labeled and possibly grouped control
type FieldRecord struct {
	Label          Label          `json:"label" yaml:"label"`
	Type           FieldType      `json:"type" yaml:"type"`
	Name           string         `json:"name,omitempty" yaml:"name,omitempty"`
	ID             string         `json:"id,omitempty" yaml:"id,omitempty"`
	Placeholder    string         `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Title          string         `json:"title,omitempty" yaml:"title,omitempty"`
	Required       bool           `json:"required" yaml:"required"`
	Options        []Option       `json:"options,omitempty" yaml:"options,omitempty"`
	Rect           *dom.Rect      `json:"rect,omitempty" yaml:"rect,omitempty"`
	SectionIndex   int            `json:"section" yaml:"section"`
	Classification Classification `json:"classification" yaml:"classification"`
	Controls       []Control      `json:"controls" yaml:"controls"`

	// Node is the element the record was built from; the first member for groups
	Node *dom.Node `json:"-" yaml:"-"`
	// Members holds the member elements of a choice group
	Members []*dom.Node `json:"-" yaml:"-"`
}

// HasGeometry reports whether the host reported a position for the field
func (f *FieldRecord) HasGeometry() bool {
	return f.Rect != nil
}

// Top returns the field's top edge, or 0 when geometry is unavailable
func (f *FieldRecord) Top() float64 {
	if f.Rect == nil {
		return 0
	}
	return f.Rect.Top
}

// IsGroup reports whether the record merges several choice controls
func (f *FieldRecord) IsGroup() bool {
	return f.Type == TypeRadioGroup || f.Type == TypeCheckboxGroup
}

// Kind returns the control kind of the record's first control
func (f *FieldRecord) Kind() ControlKind {
	if len(f.Controls) == 0 {
		return KindText
	}
	return f.Controls[0].Kind
}

// ContainedBy reports whether the structural node c contains this field
func (f *FieldRecord) ContainedBy(c *dom.Node) bool {
	if c == nil || f.Node == nil {
		return false
	}
	if len(f.Members) > 0 {
		for _, m := range f.Members {
			if !c.Contains(m) {
				return false
			}
		}
		return true
	}
	return c.Contains(f.Node)
}

// SectionOrigin records how a section was found
type SectionOrigin string

const (
	OriginStructural SectionOrigin = "structural_heading"
	OriginCluster    SectionOrigin = "inferred_cluster"
	OriginDefault    SectionOrigin = "default"
)

// Section is a named, geometrically bounded grouping of field records
type Section struct {
	Name   string        `json:"name" yaml:"name"`
	Index  int           `json:"index" yaml:"index"`
	Top    float64       `json:"top" yaml:"top"`
	Bottom float64       `json:"bottom" yaml:"bottom"`
	Origin SectionOrigin `json:"origin" yaml:"origin"`
	Fields []FieldRecord `json:"fields" yaml:"fields"`

	// Container is the structural element owning the section, if any
	Container *dom.Node `json:"-" yaml:"-"`
}

// CheckResult is the outcome of one sanity check
type CheckResult struct {
	Name       string `json:"name" yaml:"name"`
	Passed     bool   `json:"passed" yaml:"passed"`
	Applicable bool   `json:"applicable" yaml:"applicable"`
	Detail     string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// DetectionSummary aggregates all classifications of one pass
type DetectionSummary struct {
	Total              int            `json:"total" yaml:"total"`
	Classified         int            `json:"classified" yaml:"classified"`
	Unclassified       int            `json:"unclassified" yaml:"unclassified"`
	AverageConfidence  float64        `json:"average_confidence" yaml:"average_confidence"`
	Categories         map[string]int `json:"categories" yaml:"categories"`
	CriticalCategories []string       `json:"critical_categories" yaml:"critical_categories"`
	Checks             []CheckResult  `json:"checks" yaml:"checks"`
	ReadinessScore     float64        `json:"readiness_score" yaml:"readiness_score"`
	Ready              bool           `json:"ready" yaml:"ready"`

	Region      string        `json:"region,omitempty" yaml:"region,omitempty"`
	Incomplete  bool          `json:"incomplete" yaml:"incomplete"`
	State       PassState     `json:"state" yaml:"state"`
	Duration    time.Duration `json:"duration_ns" yaml:"duration_ns"`
	Diagnostics []string      `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// ClassificationRate returns classified/total, or 0 for an empty pass
func (s *DetectionSummary) ClassificationRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Classified) / float64(s.Total)
}

// Report is the output contract handed to the presentation collaborator
type Report struct {
	Summary  DetectionSummary `json:"summary" yaml:"summary"`
	Sections []Section        `json:"sections" yaml:"sections"`
}

// Fields returns every field record in section order
func (r *Report) Fields() []FieldRecord {
	var out []FieldRecord
	for _, s := range r.Sections {
		out = append(out, s.Fields...)
	}
	return out
}

// Clone returns a deep copy so that consumers receive an immutable snapshot
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	out := &Report{Summary: r.Summary}
	out.Summary.Categories = make(map[string]int, len(r.Summary.Categories))
	for k, v := range r.Summary.Categories {
		out.Summary.Categories[k] = v
	}
	out.Summary.CriticalCategories = append([]string(nil), r.Summary.CriticalCategories...)
	out.Summary.Checks = append([]CheckResult(nil), r.Summary.Checks...)
	out.Summary.Diagnostics = append([]string(nil), r.Summary.Diagnostics...)

	out.Sections = make([]Section, len(r.Sections))
	for i, s := range r.Sections {
		cp := s
		cp.Fields = make([]FieldRecord, len(s.Fields))
		for j, f := range s.Fields {
			cp.Fields[j] = f.clone()
		}
		out.Sections[i] = cp
	}
	return out
}

func (f FieldRecord) clone() FieldRecord {
	cp := f
	cp.Options = append([]Option(nil), f.Options...)
	cp.Controls = append([]Control(nil), f.Controls...)
	cp.Members = append([]*dom.Node(nil), f.Members...)
	cp.Classification.Trace = append([]string(nil), f.Classification.Trace...)
	if f.Rect != nil {
		r := *f.Rect
		cp.Rect = &r
	}
	return cp
}

// ConfidenceLevel buckets a confidence into high / medium / low
func ConfidenceLevel(confidence int) string {
	switch {
	case confidence >= 90:
		return "high"
	case confidence >= 60:
		return "medium"
	default:
		return "low"
	}
}
