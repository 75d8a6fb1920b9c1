// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classifier

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regform-scan/internal/detector"
	"regform-scan/internal/knowledge"
)

func commonTable(t *testing.T) *knowledge.PatternTable {
	t.Helper()
	doc, err := knowledge.NewEmbeddedSource().LoadCommon()
	require.NoError(t, err)
	return knowledge.Merge(doc, nil, "")
}

func text(label string) detector.FieldRecord {
	return detector.FieldRecord{
		Label:    detector.Label{Text: label, Source: detector.LabelExplicit},
		Type:     detector.FieldType(detector.KindText),
		Controls: []detector.Control{{Kind: detector.KindText}},
	}
}

func choice(label string, options ...string) detector.FieldRecord {
	f := detector.FieldRecord{
		Label: detector.Label{Text: label, Source: detector.LabelCaption},
		Type:  detector.TypeRadioGroup,
	}
	for _, o := range options {
		f.Options = append(f.Options, detector.Option{Label: o, Value: o})
		f.Controls = append(f.Controls, detector.Control{Kind: detector.KindRadio, Value: o})
	}
	return f
}

func TestClassify_ScenarioA(t *testing.T) {
	c := New(commonTable(t), Options{})

	ein := text("EIN")
	ein.Placeholder = "XX-XXXXXXX"
	fields := []detector.FieldRecord{
		text("Business Name"),
		ein,
		choice("Entity Type", "LLC", "Corporation"),
	}
	want := []string{"business_name", "tax_identifier", "entity_type"}

	for i := range fields {
		cls := c.Classify(&fields[i])
		assert.Equal(t, want[i], cls.Category, fields[i].Label.Text)
		assert.GreaterOrEqual(t, cls.Confidence, 80, fields[i].Label.Text)
	}
}

func TestClassify_FederalEmployerIdentificationNumber(t *testing.T) {
	c := New(commonTable(t), Options{})
	f := text("Federal Employer Identification Number")

	cls := c.Classify(&f)
	assert.Equal(t, "tax_identifier", cls.Category)
	assert.GreaterOrEqual(t, cls.Confidence, 90)
	assert.Equal(t, detector.TierPattern, cls.Tier)
	assert.NotEmpty(t, cls.Trace)
}

func TestClassify_YesNoGroupIsBoolean(t *testing.T) {
	c := New(commonTable(t), Options{})
	f := choice("Does the business have employees in this state?", "Yes", "No")

	cls := c.Classify(&f)
	assert.Equal(t, CategoryBoolean, cls.Category)
	assert.GreaterOrEqual(t, cls.Confidence, 80)
	assert.Equal(t, detector.TierSpecial, cls.Tier)
}

func TestClassify_ConsentCheckboxIsAgreement(t *testing.T) {
	c := New(commonTable(t), Options{})
	f := detector.FieldRecord{
		Label:    detector.Label{Text: "I certify that the information above is true", Source: detector.LabelWrapping},
		Type:     detector.TypeBoolean,
		Controls: []detector.Control{{Kind: detector.KindCheckbox}},
	}

	cls := c.Classify(&f)
	assert.Equal(t, CategoryAgreement, cls.Category)
	assert.Equal(t, 85, cls.Confidence)
}

func TestClassify_ConsentRadioIsAgreement(t *testing.T) {
	c := New(commonTable(t), Options{})
	f := detector.FieldRecord{
		Label:    detector.Label{Text: "I certify the information is true", Source: detector.LabelWrapping},
		Type:     detector.TypeBoolean,
		Controls: []detector.Control{{Kind: detector.KindRadio}},
	}

	cls := c.Classify(&f)
	assert.Equal(t, CategoryAgreement, cls.Category)
	assert.Equal(t, 85, cls.Confidence)
}

func TestClassify_EntityFormOptions(t *testing.T) {
	c := New(commonTable(t), Options{})

	tests := []struct {
		name    string
		label   string
		options []string
		entity  bool
	}{
		{"plain forms", "Structure", []string{"LLC", "Corporation", "Sole Proprietorship"}, true},
		{"qualified forms", "Type", []string{"Domestic LLC", "Foreign Corporation", "L.L.C.", "Other"}, true},
		{"long form with abbreviation", "Kind", []string{"Limited Liability Company (LLC)", "Non-Profit Corporation"}, true},
		{"industry select", "Industry", []string{"Trust and estate services", "Association management", "Retail"}, false},
		{"activity select", "Primary Activity", []string{"Trust administration", "Inc. magazine publishing", "Consulting"}, false},
		{"forms in the minority", "Category", []string{"LLC", "Corporation", "Retail", "Food service", "Construction"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := choice(tt.label, tt.options...)
			f.Type = detector.FieldType(detector.KindSelect)
			cls := c.Classify(&f)
			if tt.entity {
				assert.Equal(t, CategoryEntityType, cls.Category)
				assert.Equal(t, 90, cls.Confidence)
			} else {
				assert.NotContains(t, cls.Trace, "special:entity form options")
				assert.NotEqual(t, detector.TierSpecial, cls.Tier)
			}
		})
	}
}

func TestClassify_OverrideKeepsCommonKeywords(t *testing.T) {
	doc, err := knowledge.NewEmbeddedSource().LoadCommon()
	require.NoError(t, err)
	override := knowledge.Document{"business_name": {Keywords: []string{"entity name"}}}
	c := New(knowledge.Merge(doc, override, "ZZ"), Options{})

	f := text("DBA Name")
	cls := c.Classify(&f)
	assert.Equal(t, "business_name", cls.Category)
}

func TestClassify_Fallbacks(t *testing.T) {
	c := New(commonTable(t), Options{})

	tests := []struct {
		name       string
		field      detector.FieldRecord
		category   string
		tier       detector.ClassificationTier
		confidence int
	}{
		{
			name:       "domain vocabulary",
			field:      text("Filing Notes"),
			category:   "business_text",
			tier:       detector.TierDomainFallback,
			confidence: DomainFallbackConfidence,
		},
		{
			name:       "domain vocabulary on a choice",
			field:      choice("Company Size", "Small", "Large"),
			category:   "business_choice",
			tier:       detector.TierDomainFallback,
			confidence: DomainFallbackConfidence,
		},
		{
			name: "derived label only",
			field: detector.FieldRecord{
				Label:    detector.Label{Text: "Field 7", Source: detector.LabelDerived},
				Name:     "field7",
				Controls: []detector.Control{{Kind: detector.KindText}},
			},
			category:   detector.Unclassified,
			tier:       detector.TierUnclassified,
			confidence: 0,
		},
		{
			name: "below threshold keeps its score",
			field: func() detector.FieldRecord {
				f := text("Remarks")
				f.Name = "purpose"
				return f
			}(),
			category:   detector.Unclassified,
			tier:       detector.TierUnclassified,
			confidence: 11,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := c.Classify(&tt.field)
			assert.Equal(t, tt.category, cls.Category)
			assert.Equal(t, tt.tier, cls.Tier)
			assert.Equal(t, tt.confidence, cls.Confidence)
		})
	}
}

func TestClassify_EmailControlNeverAName(t *testing.T) {
	c := New(commonTable(t), Options{})
	f := detector.FieldRecord{
		Label:    detector.Label{Text: "Contact name email", Source: detector.LabelExplicit},
		Type:     detector.FieldType(detector.KindEmail),
		Controls: []detector.Control{{Kind: detector.KindEmail}},
	}

	cls := c.Classify(&f)
	assert.Equal(t, "email", cls.Category)
}

func TestClassify_AttributeOnlyScoresLowerThanLabel(t *testing.T) {
	table := commonTable(t)
	mcLabel := newMatchContext(&detector.FieldRecord{Label: detector.Label{Text: "Email", Source: detector.LabelExplicit}})
	mcAttr := newMatchContext(&detector.FieldRecord{Label: detector.Label{Source: detector.LabelDerived}, Name: "email"})

	byLabel := scoreRule(table.Rule("email"), mcLabel)
	byAttr := scoreRule(table.Rule("email"), mcAttr)
	assert.Greater(t, byLabel.score, byAttr.score)
}

func TestClassify_RequiredRaisesConfidence(t *testing.T) {
	c := New(commonTable(t), Options{})
	plain := text("Legal Name")
	required := text("Legal Name")
	required.Required = true

	assert.Equal(t, c.Classify(&plain).Confidence+5, c.Classify(&required).Confidence)
}

func randomFields() []detector.FieldRecord {
	var out []detector.FieldRecord
	for _, adj := range []string{"Favorite", "Lucky", "Preferred", "Secret", "Daily"} {
		for _, noun := range []string{"Color", "Song", "Fruit", "Planet", "Movie", "Sport"} {
			out = append(out, text(adj+" "+noun))
		}
	}
	return out
}

func TestClassify_UnrelatedLabelsStayUnclassified(t *testing.T) {
	c := New(commonTable(t), Options{})
	fields := randomFields()
	require.Len(t, fields, 30)

	unclassified := 0
	for i := range fields {
		if !c.Classify(&fields[i]).Classified() {
			unclassified++
		}
	}
	assert.GreaterOrEqual(t, unclassified, 27)
}

func TestClassify_DeterministicAndBounded(t *testing.T) {
	table := commonTable(t)
	ein := text("EIN")
	ein.Placeholder = "XX-XXXXXXX"
	ein.Required = true
	base := append(randomFields(),
		text("Federal Employer Identification Number"),
		ein,
		choice("Entity Type", "LLC", "Corporation", "Limited Partnership"),
		choice("Are you a foreign entity?", "Yes", "No"),
		text("Registered Agent Name"),
		text("Street Address"),
	)

	run := func() []detector.Section {
		secs := []detector.Section{{Name: "Form", Fields: append([]detector.FieldRecord(nil), base...)}}
		require.NoError(t, New(table, Options{}).ClassifySections(context.Background(), secs))
		return secs
	}

	first, second := run(), run()
	if diff := cmp.Diff(first[0].Fields, second[0].Fields); diff != "" {
		t.Errorf("classification not deterministic (-first +second):\n%s", diff)
	}
	for _, f := range first[0].Fields {
		assert.GreaterOrEqual(t, f.Classification.Confidence, 0)
		assert.LessOrEqual(t, f.Classification.Confidence, 100)
	}
}

func TestClassifySections_CanceledMarksRemainder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	secs := []detector.Section{{Fields: []detector.FieldRecord{text("Business Name"), text("EIN")}}}

	err := New(commonTable(t), Options{}).ClassifySections(ctx, secs)
	assert.ErrorIs(t, err, context.Canceled)
	for _, f := range secs[0].Fields {
		assert.Equal(t, detector.Unclassified, f.Classification.Category)
	}
}

func TestClassify_TieBreakByPriorityThenName(t *testing.T) {
	a := candidate{category: "alpha", priority: 50, score: 40}
	b := candidate{category: "beta", priority: 60, score: 40}
	c := candidate{category: "gamma", priority: 60, score: 40}

	assert.True(t, b.beats(a))
	assert.True(t, b.beats(c))
	assert.False(t, c.beats(b))
}
