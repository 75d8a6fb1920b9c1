// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package readiness

import (
	"fmt"
	"regexp"
	"strings"

	"regform-scan/internal/detector"
)

// check is one sanity check: fields selected by applies must satisfy expect
type check struct {
	name    string
	want    string
	applies func(f *detector.FieldRecord) bool
	expect  func(category string) bool
}

var (
	nameTerm        = regexp.MustCompile(`(?i)\bname\b`)
	businessQualify = regexp.MustCompile(`(?i)\b(business|company|entity|corporate|corporation|legal|llc|organization|trade|dba|fictitious|assumed)\b`)
	taxTerm         = regexp.MustCompile(`(?i)\b(f?ein|tin|tax[\s_-]*id(entification)?|employer[\s_-]*identification)\b`)
	entityTerm      = regexp.MustCompile(`(?i)\b(entity|business|legal|organization)[\s_-]*(type|structure|form)\b|\btype[\s_-]+of[\s_-]+(entity|business)\b`)
	addressTerm     = regexp.MustCompile(`(?i)\b(street|mailing|physical)[\s_-]*address\b|\baddress[\s_-]*line\b|\bcity\b|\bzip([\s_-]*code)?\b|\bpostal[\s_-]*code\b`)
	notAddressTerm  = regexp.MustCompile(`(?i)\be-?mail\b|\bweb\b|\burl\b|\bip\b`)
)

var addressCategories = map[string]bool{
	"street_address": true,
	"address_line2":  true,
	"city":           true,
	"state":          true,
	"zip_code":       true,
	"county":         true,
	"country":        true,
}

func labelMatches(re *regexp.Regexp) func(*detector.FieldRecord) bool {
	return func(f *detector.FieldRecord) bool {
		return re.MatchString(f.Label.Text)
	}
}

func is(category string) func(string) bool {
	return func(c string) bool { return c == category }
}

// defaultChecks is the fixed battery run on every pass
var defaultChecks = []check{
	{
		name: "business_name_terms",
		want: "business_name",
		applies: func(f *detector.FieldRecord) bool {
			return nameTerm.MatchString(f.Label.Text) && businessQualify.MatchString(f.Label.Text)
		},
		expect: is("business_name"),
	},
	{
		name:    "tax_identifier_terms",
		want:    "tax_identifier",
		applies: labelMatches(taxTerm),
		expect:  is("tax_identifier"),
	},
	{
		name:    "entity_type_terms",
		want:    "entity_type",
		applies: labelMatches(entityTerm),
		expect:  is("entity_type"),
	},
	{
		name: "address_terms",
		want: "an address category",
		applies: func(f *detector.FieldRecord) bool {
			return addressTerm.MatchString(f.Label.Text) && !notAddressTerm.MatchString(f.Label.Text)
		},
		expect: func(c string) bool { return addressCategories[c] },
	},
	{
		name: "email_not_name",
		want: "a non-name category",
		applies: func(f *detector.FieldRecord) bool {
			return f.Kind() == detector.KindEmail
		},
		expect: func(c string) bool { return !strings.HasSuffix(c, "_name") },
	},
}

// run evaluates the check over fields. Without applicable fields the check
// passes and is recorded as not applicable.
func (c check) run(fields []detector.FieldRecord) detector.CheckResult {
	res := detector.CheckResult{Name: c.name, Passed: true}
	applicable, failed := 0, 0
	var first string
	for i := range fields {
		f := &fields[i]
		if !c.applies(f) {
			continue
		}
		applicable++
		if !c.expect(f.Classification.Category) {
			failed++
			if first == "" {
				first = fmt.Sprintf("%q classified as %s", f.Label.Text, f.Classification.Category)
			}
		}
	}

	switch {
	case applicable == 0:
		res.Detail = "not applicable"
	case failed == 0:
		res.Applicable = true
		res.Detail = fmt.Sprintf("%d/%d fields mapped to %s", applicable, applicable, c.want)
	default:
		res.Applicable = true
		res.Passed = false
		res.Detail = fmt.Sprintf("%d/%d fields mapped to %s; %s",
			applicable-failed, applicable, c.want, first)
	}
	return res
}
