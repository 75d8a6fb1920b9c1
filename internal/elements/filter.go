// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package elements

import (
	"regexp"
	"strings"

	"regform-scan/internal/detector"
	"regform-scan/internal/dom"
)

var (
	// internalName matches framework state and anti-forgery fields
	internalName = regexp.MustCompile(`(?i)^__|csrf|xsrf|authenticity_token|^_token$|requestverificationtoken|honeypot|^g-recaptcha`)
	// generatedID matches ids minted by UI frameworks rather than form authors
	generatedID = regexp.MustCompile(`^(ember\d+|react-select-\d+-input|:r[0-9a-z]+:|mui-\d+|downshift-\d+-input)$`)
)

var credentialCreationTerms = []string{
	"create account", "create an account", "create your account", "confirm password",
	"new password", "choose a password", "create a password", "sign up", "register",
	"set up your account", "registration account",
}

var loginTerms = []string{
	"sign in", "log in", "login", "forgot password", "forgot your password", "remember me",
}

// interactiveRoles maps ARIA widget roles to control kinds
var interactiveRoles = map[string]detector.ControlKind{
	"textbox":  detector.KindText,
	"combobox": detector.KindSelect,
	"listbox":  detector.KindSelect,
	"radio":    detector.KindRadio,
	"checkbox": detector.KindCheckbox,
	"switch":   detector.KindCheckbox,
}

// controlKind returns the kind of an interactive element, or false when the
// element is not a candidate control
func controlKind(n *dom.Node) (detector.ControlKind, bool) {
	switch n.Tag {
	case "select":
		return detector.KindSelect, true
	case "textarea":
		return detector.KindTextarea, true
	case "input":
		switch strings.ToLower(strings.TrimSpace(n.Attr("type"))) {
		case "", "text", "search":
			return detector.KindText, true
		case "email":
			return detector.KindEmail, true
		case "tel":
			return detector.KindTel, true
		case "number", "range":
			return detector.KindNumber, true
		case "date", "datetime-local", "month", "week", "time":
			return detector.KindDate, true
		case "url":
			return detector.KindURL, true
		case "radio":
			return detector.KindRadio, true
		case "checkbox":
			return detector.KindCheckbox, true
		case "password":
			return detector.KindPassword, true
		case "file":
			return detector.KindFile, true
		case "hidden", "submit", "reset", "button", "image":
			return "", false
		default:
			return detector.KindText, true
		}
	}
	if kind, ok := interactiveRoles[n.Attr("role")]; ok && !n.ContainsControl() {
		return kind, true
	}
	return "", false
}

// isDecorative reports buttons and button-like inputs
func isDecorative(n *dom.Node) bool {
	if n.IsElement("button") {
		return true
	}
	if !n.IsElement("input") {
		return false
	}
	switch strings.ToLower(n.Attr("type")) {
	case "hidden", "submit", "reset", "button", "image":
		return true
	}
	return false
}

// dropReason explains why an interactive element is not a field, or returns ""
func dropReason(n *dom.Node, kind detector.ControlKind, rect *dom.Rect) string {
	switch {
	case n.Hidden():
		return "hidden"
	case rect != nil && rect.Empty():
		return "zero-size"
	case internalName.MatchString(n.Attr("name")) || internalName.MatchString(n.Attr("id")):
		return "internal"
	case generatedID.MatchString(n.Attr("id")) && n.Attr("name") == "":
		return "internal"
	case kind == detector.KindPassword && !credentialCreation(n):
		return "password"
	}
	return ""
}

// credentialCreation decides whether a password control belongs to account
// creation for the registration rather than to a login box
func credentialCreation(n *dom.Node) bool {
	switch strings.ToLower(n.Attr("autocomplete")) {
	case "new-password":
		return true
	case "current-password":
		return false
	}

	scope := n.Closest("form")
	if scope == nil {
		scope = n.Parent
		for i := 0; i < 2 && scope != nil && scope.Parent != nil; i++ {
			scope = scope.Parent
		}
	}
	if scope == nil {
		return false
	}
	text := strings.ToLower(scope.TextWithoutControls() + " " + n.Attr("name") + " " + n.Attr("id"))
	text = strings.NewReplacer("_", " ", "-", " ").Replace(text)

	if containsAny(text, loginTerms) || containsAny(actionText(scope), loginTerms) {
		return false
	}
	return containsAny(text, credentialCreationTerms)
}

// actionText collects the captions of buttons and submit inputs in scope,
// which the field text leaves out
func actionText(scope *dom.Node) string {
	var parts []string
	scope.Walk(func(c *dom.Node) bool {
		switch {
		case c.IsElement("button"):
			parts = append(parts, c.TextContent(), c.Attr("value"), c.Attr("aria-label"))
			return false
		case c.IsElement("input"):
			switch strings.ToLower(c.Attr("type")) {
			case "submit", "button", "image":
				parts = append(parts, c.Attr("value"), c.Attr("alt"), c.Attr("aria-label"))
			}
		}
		return true
	})
	return strings.ToLower(dom.CollapseSpace(strings.Join(parts, " ")))
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
