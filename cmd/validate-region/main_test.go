// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validOverride = `
business_name:
  keywords: [assumed name]
tax_identifier:
  keywords: [state tax id]
entity_type:
  keywords: [organization type]
`

const brokenOverride = `
business_name:
  patterns: ['(unclosed']
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestValidateFiles(t *testing.T) {
	common, err := loadCommon("")
	require.NoError(t, err)

	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", validOverride)
	bad := writeFile(t, dir, "bad.yaml", brokenOverride)
	missing := filepath.Join(dir, "missing.yaml")

	reports := validateFiles([]string{good, bad, missing}, common, 3)
	require.Len(t, reports, 3)

	assert.True(t, reports[0].Valid, "issues: %v", reports[0].Issues)
	assert.False(t, reports[1].Valid)
	assert.False(t, reports[2].Valid)
	require.Len(t, reports[2].Issues, 1)
}

func TestPrintOutputs(t *testing.T) {
	reports := []fileReport{{File: "tx.yaml", Valid: true, Issues: nil}}

	var text bytes.Buffer
	printText(&text, reports)
	assert.Equal(t, "tx.yaml: ok\n", text.String())

	var out bytes.Buffer
	require.NoError(t, printJSON(&out, reports))
	var decoded []fileReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "tx.yaml", decoded[0].File)
}
