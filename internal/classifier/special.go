// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classifier

import (
	"sort"
	"strings"
	"unicode"

	"regform-scan/internal/detector"
	"regform-scan/internal/knowledge"
)

// Categories produced by the special-case rules
const (
	CategoryBoolean    = "boolean"
	CategoryAgreement  = "agreement"
	CategoryEntityType = "entity_type"
)

const (
	booleanConfidence    = 85
	agreementConfidence  = 85
	entityTypeConfidence = 90
)

// entityForms are option texts naming legal entity forms
var entityForms = []string{
	"llc", "l.l.c", "limited liability company", "corporation", "corp", "inc", "incorporated",
	"partnership", "general partnership", "limited partnership", "lp", "llp", "lllp",
	"sole proprietorship", "sole proprietor", "nonprofit", "non-profit", "not for profit",
	"cooperative", "co-op", "professional corporation", "s corporation", "c corporation",
	"benefit corporation", "trust", "association", "pllc", "pc",
}

// entityQualifiers may surround an entity form inside one option
var entityQualifiers = map[string]bool{
	"domestic": true, "foreign": true, "professional": true, "limited": true, "general": true,
	"liability": true, "public": true, "private": true, "close": true, "closely": true,
	"held": true, "mutual": true, "statutory": true, "business": true, "company": true,
	"for": true, "profit": true, "non": true, "stock": true, "nonstock": true, "a": true,
	"an": true, "or": true, "and": true, "s": true, "c": true, "b": true,
}

// entityFormTokens holds each form split into normalized words, longest first
var entityFormTokens = func() [][]string {
	out := make([][]string, 0, len(entityForms))
	for _, f := range entityForms {
		out = append(out, optionWords(f))
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}()

const maxEntityOptionWords = 6

// domainTerms signal a business-registration field even when no category matches
var domainTerms = []string{
	"business", "entity", "company", "corporation", "corporate", "registration", "register",
	"filing", "filer", "llc", "organization", "organizer", "incorporator", "incorporation",
	"partnership", "registered", "agent", "officer", "member", "manager", "director",
	"owner", "shareholder", "principal", "license", "permit", "formation", "articles",
	"certificate", "annual report", "statement of information",
}

// special applies the rules that short-circuit generic scoring
func special(f *detector.FieldRecord) (detector.Classification, bool) {
	if isYesNoGroup(f) {
		return detector.Classification{
			Category:   CategoryBoolean,
			Confidence: booleanConfidence,
			Tier:       detector.TierSpecial,
			Trace:      []string{"special:yes-no options"},
		}, true
	}
	if isEntityFormGroup(f) {
		return detector.Classification{
			Category:   CategoryEntityType,
			Confidence: entityTypeConfidence,
			Tier:       detector.TierSpecial,
			Trace:      []string{"special:entity form options"},
		}, true
	}
	if len(f.Controls) == 1 && isBinaryControl(f) && detector.IsConsent(f.Label.Text) {
		return detector.Classification{
			Category:   CategoryAgreement,
			Confidence: agreementConfidence,
			Tier:       detector.TierSpecial,
			Trace:      []string{"special:consent control"},
		}, true
	}
	return detector.Classification{}, false
}

func isYesNoGroup(f *detector.FieldRecord) bool {
	if len(f.Options) != 2 {
		return false
	}
	a, b := f.Options[0].Label, f.Options[1].Label
	return detector.IsYesNoOption(a) && detector.IsYesNoOption(b) && !strings.EqualFold(a, b)
}

// isEntityFormGroup requires at least two options, and most of them, to name
// an entity form outright
func isEntityFormGroup(f *detector.FieldRecord) bool {
	matched := 0
	for _, o := range f.Options {
		if isEntityFormOption(o.Label) {
			matched++
		}
	}
	return matched >= 2 && matched*2 > len(f.Options)
}

// isEntityFormOption reports whether a short option is made only of entity
// forms and their qualifiers, e.g. "Domestic LLC" but not "Trust services"
func isEntityFormOption(label string) bool {
	words := optionWords(label)
	if len(words) == 0 || len(words) > maxEntityOptionWords {
		return false
	}
	found := false
	for i := 0; i < len(words); {
		if n := entityFormAt(words, i); n > 0 {
			found = true
			i += n
			continue
		}
		if !entityQualifiers[words[i]] {
			return false
		}
		i++
	}
	return found
}

func entityFormAt(words []string, i int) int {
	for _, form := range entityFormTokens {
		if i+len(form) > len(words) {
			continue
		}
		match := true
		for j, w := range form {
			if words[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return len(form)
		}
	}
	return 0
}

// optionWords lowercases an option, drops dots so "L.L.C." reads as "llc",
// and splits on anything that is not a letter or digit
func optionWords(s string) []string {
	s = strings.ReplaceAll(strings.ToLower(s), ".", "")
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasDomainVocabulary(text string) bool {
	for _, t := range domainTerms {
		if knowledge.ContainsPhrase(text, t) {
			return true
		}
	}
	return false
}

// fallbackKind names the generic domain category suffix for a field type
func fallbackKind(f *detector.FieldRecord) string {
	switch f.Type {
	case detector.TypeRadioGroup, detector.TypeCheckboxGroup, detector.FieldType(detector.KindSelect),
		detector.FieldType(detector.KindRadio):
		return "choice"
	case detector.TypeBoolean, detector.FieldType(detector.KindCheckbox):
		return "boolean"
	case detector.FieldType(detector.KindDate):
		return "date"
	case detector.FieldType(detector.KindNumber):
		return "number"
	case detector.FieldType(detector.KindFile):
		return "document"
	}
	return "text"
}

// isBinaryControl covers a lone checkbox and any single control the builder
// already promoted to boolean, such as a consent radio
func isBinaryControl(f *detector.FieldRecord) bool {
	return f.Type == detector.TypeBoolean || f.Kind() == detector.KindCheckbox
}
