// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"regform-scan/internal/knowledge"
)

// fileReport is the validation outcome of one override document
type fileReport struct {
	File   string            `json:"file"`
	Issues []knowledge.Issue `json:"issues"`
	Valid  bool              `json:"valid"`
}

func main() {
	var (
		commonFile  = flag.String("common", "", "Common pattern document to validate against (default: built-in)")
		minCoverage = flag.Int("min-coverage", knowledge.DefaultMinCoverage, "Minimum number of common categories an override must refine")
		asJSON      = flag.Bool("json", false, "Print issues as JSON")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Println("Error: at least one override document is required")
		fmt.Println("Usage: validate-region [--common common.yaml] [--min-coverage N] [--json] <override.yaml>...")
		os.Exit(1)
	}

	common, err := loadCommon(*commonFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	reports := validateFiles(flag.Args(), common, *minCoverage)
	if *asJSON {
		err = printJSON(os.Stdout, reports)
	} else {
		printText(os.Stdout, reports)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, r := range reports {
		if !r.Valid {
			os.Exit(1)
		}
	}
}

func loadCommon(path string) (knowledge.Document, error) {
	if path == "" {
		return knowledge.NewEmbeddedSource().LoadCommon()
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read common document: %w", err)
	}
	return knowledge.ParseDocument(data)
}

// validateFiles checks every override document. Unreadable or unparseable
// files are reported as a single error issue.
func validateFiles(files []string, common knowledge.Document, minCoverage int) []fileReport {
	reports := make([]fileReport, 0, len(files))
	for _, file := range files {
		var issues []knowledge.Issue
		data, err := os.ReadFile(filepath.Clean(file))
		if err == nil {
			var doc knowledge.Document
			if doc, err = knowledge.ParseDocument(data); err == nil {
				issues = knowledge.ValidateOverride(doc, common, minCoverage)
			}
		}
		if err != nil {
			issues = []knowledge.Issue{{Severity: knowledge.SeverityError, Message: err.Error()}}
		}
		if issues == nil {
			issues = []knowledge.Issue{}
		}
		reports = append(reports, fileReport{File: file, Issues: issues, Valid: !knowledge.HasErrors(issues)})
	}
	return reports
}

func printText(w io.Writer, reports []fileReport) {
	for _, r := range reports {
		status := "ok"
		if !r.Valid {
			status = "INVALID"
		}
		fmt.Fprintf(w, "%s: %s\n", r.File, status)
		for _, issue := range r.Issues {
			fmt.Fprintf(w, "  %s\n", issue)
		}
	}
}

func printJSON(w io.Writer, reports []fileReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}
