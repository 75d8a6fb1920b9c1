// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"strings"
)

var interrogativePrefixes = []string{
	"do you", "does the", "does your", "did you", "is the", "is this", "is your", "are you",
	"are there", "have you", "has the", "has your", "will the", "will you", "would you", "should",
	"can the", "was the",
}

var consentTerms = []string{
	"i agree", "agree to", "i certify", "certify that", "i acknowledge", "acknowledge",
	"consent", "terms and conditions", "terms of use", "terms of service", "i attest",
	"i confirm", "i understand", "under penalty of perjury",
}

var yesNoWords = map[string]bool{
	"yes": true, "no": true, "y": true, "n": true, "true": true, "false": true,
	"agree": true, "disagree": true, "on": true, "off": true,
}

// IsInterrogative reports whether a label reads as a yes/no question
func IsInterrogative(label string) bool {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return false
	}
	if strings.HasSuffix(l, "?") {
		return true
	}
	for _, p := range interrogativePrefixes {
		if strings.HasPrefix(l, p+" ") {
			return true
		}
	}
	return false
}

// IsConsent reports whether a label reads as an agreement or attestation
func IsConsent(label string) bool {
	l := strings.ToLower(label)
	for _, t := range consentTerms {
		if strings.Contains(l, t) {
			return true
		}
	}
	return false
}

// IsYesNoOption reports whether an option label is a yes/no-like answer
func IsYesNoOption(label string) bool {
	l := strings.Trim(strings.ToLower(strings.TrimSpace(label)), ".!")
	return yesNoWords[l]
}
