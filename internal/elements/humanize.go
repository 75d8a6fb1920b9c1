// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package elements

import (
	"regexp"
	"strings"
)

var (
	splitWordsPattern = regexp.MustCompile(`[_\-\s.]+`)
	bracketKey        = regexp.MustCompile(`\[([^\[\]]+)\]$`)
	widgetPrefix      = regexp.MustCompile(`^(txt|tb|ddl|cbo|chk|rb|rdo|sel|inp|fld)([A-Z_])`)
)

// Humanize turns a control name or id into a readable label: form framework
// namespaces are dropped, words are split on separators and camelCase, and
// each word is title-cased. "ctl00$Main$txtBusinessName" becomes "Business Name".
func Humanize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if i := strings.LastIndexAny(name, "$:"); i >= 0 && i < len(name)-1 {
		name = name[i+1:]
	}
	if m := bracketKey.FindStringSubmatch(name); m != nil {
		name = m[1]
	}
	if m := widgetPrefix.FindStringSubmatchIndex(name); m != nil {
		name = name[m[3]:]
	}

	var segments []string
	for _, word := range splitWordsPattern.Split(name, -1) {
		if word == "" {
			continue
		}
		for _, part := range strings.Fields(splitCamel(word)) {
			segments = append(segments, titleCase(part))
		}
	}
	return strings.Join(segments, " ")
}

func splitCamel(input string) string {
	var out strings.Builder
	for i, r := range input {
		if i > 0 && isBoundary(input, i, r) {
			out.WriteRune(' ')
		}
		out.WriteRune(r)
	}
	return out.String()
}

func isBoundary(input string, index int, r rune) bool {
	prev := rune(input[index-1])
	if isUpper(prev) && isUpper(r) && index+1 < len(input) && isLower(rune(input[index+1])) {
		return true
	}
	return (isLower(prev) && isUpper(r)) || (isLetter(prev) && isDigit(r)) || (isDigit(prev) && isLetter(r))
}

func isUpper(r rune) bool  { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool  { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return isUpper(r) || isLower(r) }

// titleCase keeps short all-caps acronyms such as EIN or LLC intact
func titleCase(word string) string {
	if word == "" {
		return ""
	}
	if len(word) <= 4 && strings.ToUpper(word) == word && len(word) > 1 {
		return word
	}
	lower := strings.ToLower(word)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
