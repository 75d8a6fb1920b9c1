// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package region

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// hostRule maps a host suffix to a jurisdiction code
type hostRule struct {
	suffix string
	code   string
}

// knownHosts lists filing portals whose host does not follow the
// <code>.gov / state.<code>.us conventions, or that should win over them
var knownHosts = []hostRule{
	{"bizfileonline.sos.ca.gov", "CA"},
	{"sos.ca.gov", "CA"},
	{"corp.delaware.gov", "DE"},
	{"delaware.gov", "DE"},
	{"dos.ny.gov", "NY"},
	{"sunbiz.org", "FL"},
	{"dos.fl.gov", "FL"},
	{"dos.myflorida.com", "FL"},
	{"sos.state.tx.us", "TX"},
	{"sos.texas.gov", "TX"},
	{"ccfs.sos.wa.gov", "WA"},
	{"sos.oregon.gov", "OR"},
	{"nvsos.gov", "NV"},
	{"silverflume.gov", "NV"},
	{"ilsos.gov", "IL"},
	{"ohiosos.gov", "OH"},
	{"coloradosos.gov", "CO"},
	{"azcc.gov", "AZ"},
	{"njportal.com", "NJ"},
	{"sec.state.ma.us", "MA"},
}

// federalHosts are .gov domains whose two-letter label is an agency, not a state
var federalHosts = []string{"va.gov"}

// names maps lowercase jurisdiction names and strong aliases to codes
var names = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR", "california": "CA",
	"colorado": "CO", "connecticut": "CT", "delaware": "DE", "florida": "FL", "georgia": "GA",
	"hawaii": "HI", "idaho": "ID", "illinois": "IL", "indiana": "IN", "iowa": "IA",
	"kansas": "KS", "kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS", "missouri": "MO",
	"montana": "MT", "nebraska": "NE", "nevada": "NV", "new hampshire": "NH", "new jersey": "NJ",
	"new mexico": "NM", "new york": "NY", "north carolina": "NC", "north dakota": "ND", "ohio": "OH",
	"oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT", "vermont": "VT",
	"virginia": "VA", "washington": "WA", "west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
	"district of columbia": "DC", "washington dc": "DC",

	"sunbiz":                        "FL",
	"bizfile":                       "CA",
	"bizfile online":                "CA",
	"sosdirect":                     "TX",
	"silverflume":                   "NV",
	"commonwealth of virginia":      "VA",
	"commonwealth of massachusetts": "MA",
	"commonwealth of pennsylvania":  "PA",
	"commonwealth of kentucky":      "KY",
}

var (
	codes        = map[string]bool{}
	nameRegexp   *regexp.Regexp
	govHost      = regexp.MustCompile(`(?:^|\.)([a-z]{2})\.gov$`)
	stateUSHost  = regexp.MustCompile(`(?:^|\.)state\.([a-z]{2})\.us$`)
	pathSplitter = regexp.MustCompile(`[/_\-.]+`)
)

func init() {
	for _, c := range names {
		codes[c] = true
	}

	alts := make([]string, 0, len(names))
	for n := range names {
		alts = append(alts, regexp.QuoteMeta(n))
	}
	// Longer alternatives first so that "west virginia" beats "virginia"
	sort.Slice(alts, func(i, j int) bool {
		if len(alts[i]) != len(alts[j]) {
			return len(alts[i]) > len(alts[j])
		}
		return alts[i] < alts[j]
	})
	nameRegexp = regexp.MustCompile(`(?i)\b(` + strings.Join(alts, "|") + `)\b`)
}

// Identify infers a jurisdiction code from the page address and, only when
// the address carries no indicator, from prominent heading text. Body text
// must not be passed as headingText; incidental mentions would win otherwise.
func Identify(address, headingText string) (string, bool) {
	if code, ok := FromAddress(address); ok {
		return code, true
	}
	return FromHeading(headingText)
}

// FromAddress matches the address host and path against the indicator table
func FromAddress(address string) (string, bool) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", false
	}

	host, path := splitAddress(address)
	for _, rule := range knownHosts {
		if host == rule.suffix || strings.HasSuffix(host, "."+rule.suffix) {
			return rule.code, true
		}
	}
	for _, re := range []*regexp.Regexp{govHost, stateUSHost} {
		if re == govHost && isFederalHost(host) {
			continue
		}
		if m := re.FindStringSubmatch(host); m != nil {
			if code := strings.ToUpper(m[1]); codes[code] {
				return code, true
			}
		}
	}

	governmental := strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".us")
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		seg = strings.ToLower(seg)
		if seg == "" {
			continue
		}
		if code, ok := names[strings.Join(pathSplitter.Split(seg, -1), " ")]; ok {
			return code, true
		}
		if governmental && len(seg) == 2 && codes[strings.ToUpper(seg)] {
			return strings.ToUpper(seg), true
		}
	}
	return "", false
}

// FromHeading scans heading text for the first jurisdiction name or alias
func FromHeading(headingText string) (string, bool) {
	if strings.TrimSpace(headingText) == "" {
		return "", false
	}
	m := nameRegexp.FindString(headingText)
	if m == "" {
		return "", false
	}
	code, ok := names[strings.ToLower(m)]
	return code, ok
}

// splitAddress returns the lowercase host and the path of an address. Inputs
// that do not parse as URLs are treated as a bare host followed by a path.
func splitAddress(address string) (string, string) {
	raw := address
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return strings.ToLower(u.Hostname()), u.Path
	}

	rest := address
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	host, path, _ := strings.Cut(rest, "/")
	if i := strings.IndexAny(host, ":?#"); i >= 0 {
		host = host[:i]
	}
	return strings.ToLower(host), "/" + path
}

func isFederalHost(host string) bool {
	for _, f := range federalHosts {
		if host == f || strings.HasSuffix(host, "."+f) {
			return true
		}
	}
	return false
}
