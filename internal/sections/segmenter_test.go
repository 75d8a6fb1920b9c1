// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sections

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regform-scan/internal/detector"
	"regform-scan/internal/dom"
	"regform-scan/internal/elements"
)

func segment(t *testing.T, markup string) Result {
	t.Helper()
	doc, err := dom.ParseHTML(strings.NewReader(markup), "")
	require.NoError(t, err)
	built := elements.NewBuilder(elements.Options{}).Build(context.Background(), doc)
	require.NotEmpty(t, built.Fields)
	return NewSegmenter(Options{}).Segment(doc, built.Fields)
}

func names(res Result) []string {
	out := make([]string, len(res.Sections))
	for i, s := range res.Sections {
		out[i] = s.Name
	}
	return out
}

func labels(sec detector.Section) []string {
	out := make([]string, len(sec.Fields))
	for i, f := range sec.Fields {
		out[i] = f.Label.Text
	}
	return out
}

func TestSegment_FieldBetweenHeadersBelongsToUpper(t *testing.T) {
	res := segment(t, `<form>
<h2 data-rect="100,0,600,30">Business Information</h2>
<label for="a">Legal Name</label><input id="a" data-rect="150,0,300,24">
<label for="b">Formation Date</label><input id="b" data-rect="250,0,300,24">
<h2 data-rect="400,0,600,30">Contact</h2>
<label for="c">Email</label><input id="c" type="email" data-rect="450,0,300,24">
<label for="d">Phone</label><input id="d" type="tel" data-rect="500,0,300,24">
</form>`)

	require.Equal(t, []string{"Business Information", "Contact"}, names(res))
	assert.Equal(t, []string{"Legal Name", "Formation Date"}, labels(res.Sections[0]))
	assert.Equal(t, []string{"Email", "Phone"}, labels(res.Sections[1]))

	first := res.Sections[0]
	assert.Equal(t, detector.OriginStructural, first.Origin)
	assert.Equal(t, 130.0, first.Top)
	assert.Equal(t, 400.0, first.Bottom)
	assert.Equal(t, 524.0, res.Sections[1].Bottom)
}

func TestSegment_LeadingFieldsGoToGeneral(t *testing.T) {
	res := segment(t, `<form>
<label for="z">Filing Reference</label><input id="z" data-rect="40,0,300,24">
<h2 data-rect="100,0,600,30">Business Information</h2>
<label for="a">Legal Name</label><input id="a" data-rect="150,0,300,24">
<label for="b">Formation Date</label><input id="b" data-rect="200,0,300,24">
</form>`)

	require.Equal(t, []string{LeadingSectionName, "Business Information"}, names(res))
	assert.Equal(t, []string{"Filing Reference"}, labels(res.Sections[0]))
	assert.Equal(t, 40.0, res.Sections[0].Top)
	assert.Equal(t, 100.0, res.Sections[0].Bottom)
}

func TestSegment_StructuralContainmentWinsOverBands(t *testing.T) {
	res := segment(t, `<form>
<fieldset>
  <legend data-rect="100,0,600,20">Registered Agent</legend>
  <label for="a">Agent Name</label><input id="a" data-rect="130,0,300,24">
  <label for="b">Agent Address</label><input id="b" data-rect="600,0,300,24">
</fieldset>
<h3 data-rect="400,0,600,20">Officers</h3>
<label for="c">Officer Name</label><input id="c" data-rect="430,0,300,24">
<label for="d">Officer Title</label><input id="d" data-rect="460,0,300,24">
</form>`)

	require.Equal(t, []string{"Registered Agent", "Officers"}, names(res))
	assert.Equal(t, []string{"Agent Name", "Agent Address"}, labels(res.Sections[0]))
	assert.Equal(t, []string{"Officer Name", "Officer Title"}, labels(res.Sections[1]))
	assert.NotNil(t, res.Sections[0].Container)
}

func TestSegment_FieldCaptionIsNotAHeader(t *testing.T) {
	res := segment(t, `<form>
<h4 data-rect="100,0,600,20">Email</h4>
<label for="a">Email</label><input id="a" type="email" data-rect="130,0,300,24">
<label for="b">Phone</label><input id="b" type="tel" data-rect="160,0,300,24">
</form>`)

	require.Len(t, res.Sections, 1)
	assert.Equal(t, DefaultSectionName, res.Sections[0].Name)
	assert.Equal(t, detector.OriginDefault, res.Sections[0].Origin)
	assert.Len(t, res.Sections[0].Fields, 2)
}

func TestSegment_HeaderCountsOnlyFieldsAboveNextHeader(t *testing.T) {
	res := segment(t, `<form>
<h3 data-rect="100,0,600,20">Contact Email</h3>
<label for="e">Email</label><input id="e" type="email" data-rect="125,0,300,24">
<h2 data-rect="170,0,600,30">Principal Office</h2>
<label for="a">Street Address</label><input id="a" data-rect="210,0,300,24">
<label for="b">City</label><input id="b" data-rect="250,0,300,24">
</form>`)

	require.Equal(t, []string{LeadingSectionName, "Principal Office"}, names(res))
	assert.Equal(t, []string{"Email"}, labels(res.Sections[0]))
	assert.Equal(t, []string{"Street Address", "City"}, labels(res.Sections[1]))
	assert.Equal(t, 200.0, res.Sections[1].Top)
}

func TestSegment_ClustersWhenNoHeaderQualifies(t *testing.T) {
	res := segment(t, `<form>
<h2 data-rect="100,0,600,20">Notes</h2>
<label for="a">Business Purpose</label><input id="a" data-rect="130,0,300,24">
<label for="b">Signature</label><input id="b" data-rect="900,0,300,24">
<label for="c">Date Signed</label><input id="c" type="date" data-rect="940,0,300,24">
</form>`)

	require.Equal(t, []string{"Section 1", "Section 2"}, names(res))
	assert.Equal(t, detector.OriginCluster, res.Sections[0].Origin)
	assert.Equal(t, []string{"Business Purpose"}, labels(res.Sections[0]))
	assert.Equal(t, []string{"Signature", "Date Signed"}, labels(res.Sections[1]))
	assert.NotEmpty(t, res.Diagnostics)
}

func TestSegment_ZeroGeometryFieldsFollowPreviousField(t *testing.T) {
	res := segment(t, `<form>
<label for="a">Legal Name</label><input id="a" data-rect="100,0,300,24">
<label for="b">Trade Name</label><input id="b">
<label for="c">Signature</label><input id="c" data-rect="400,0,300,24">
</form>`)

	require.Len(t, res.Sections, 2)
	assert.Equal(t, []string{"Legal Name", "Trade Name"}, labels(res.Sections[0]))
	assert.Equal(t, []string{"Signature"}, labels(res.Sections[1]))
}

func TestSegment_DocumentOrderWithoutGeometry(t *testing.T) {
	res := segment(t, `<form>
<h2>Business</h2><input name="legal_name"><input name="dba_name">
<h2>Owner</h2><input name="owner_first"><input name="owner_last">
</form>`)

	require.Equal(t, []string{"Business", "Owner"}, names(res))
	assert.Equal(t, []string{"Legal Name", "Dba Name"}, labels(res.Sections[0]))
	assert.Equal(t, []string{"Owner First", "Owner Last"}, labels(res.Sections[1]))
}

func TestSegment_ProminentDivBecomesHeader(t *testing.T) {
	res := segment(t, `<form>
<div style="font-size:24px;font-weight:700" data-rect="100,0,600,30">Principal Office</div>
<label for="a">Street Address</label><input id="a" data-rect="140,0,300,24">
<label for="b">City</label><input id="b" data-rect="180,0,300,24">
</form>`)

	assert.Equal(t, []string{"Principal Office"}, names(res))
}

func TestSegment_EveryFieldInExactlyOneSection(t *testing.T) {
	res := segment(t, `<form>
<label for="z">Filing Reference</label><input id="z" data-rect="40,0,300,24">
<h2 data-rect="100,0,600,30">Business Information</h2>
<label for="a">Legal Name</label><input id="a" data-rect="150,0,300,24">
<label for="b">Formation Date</label><input id="b">
<fieldset><legend>Entity Type</legend>
<label><input type="radio" name="t" value="llc" data-rect="260,0,16,16"> LLC</label>
<label><input type="radio" name="t" value="corp" data-rect="280,0,16,16"> Corporation</label>
</fieldset>
<h2 data-rect="400,0,600,30">Contact</h2>
<label for="c">Email</label><input id="c" type="email" data-rect="450,0,300,24">
<label for="d">Phone</label><input id="d" type="tel" data-rect="500,0,300,24">
</form>`)

	seen := map[string]int{}
	total := 0
	for i, sec := range res.Sections {
		assert.Equal(t, i, sec.Index)
		for _, f := range sec.Fields {
			assert.Equal(t, i, f.SectionIndex)
			seen[f.Label.Text]++
			total++
		}
	}
	assert.Equal(t, 6, total)
	for label, n := range seen {
		assert.Equal(t, 1, n, label)
	}
}

func TestSegment_NoFields(t *testing.T) {
	doc, err := dom.ParseHTML(strings.NewReader(`<form><h2>Empty</h2></form>`), "")
	require.NoError(t, err)
	res := NewSegmenter(Options{}).Segment(doc, nil)
	assert.Empty(t, res.Sections)
}

func TestProminence(t *testing.T) {
	opts := DefaultOptions()

	loud := dom.NewElement("div", map[string]string{"class": "section-title"})
	loud.Style = &dom.Style{FontSize: 24, FontWeight: 700, MarginTop: 24}
	assert.InDelta(t, 1.0, prominence(loud, opts), 1e-9)

	plain := dom.NewElement("div", nil)
	assert.InDelta(t, 0.10, prominence(plain, opts), 1e-9)

	bold := dom.NewElement("span", nil)
	bold.Style = &dom.Style{FontWeight: 700}
	assert.Less(t, prominence(bold, opts), opts.ProminenceThreshold)
}
