// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource serves fixed documents
type stubSource struct {
	common    Document
	regions   map[string]Document
	commonErr error
	calls     int
	mu        sync.Mutex
}

func (s *stubSource) LoadCommon() (Document, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.common, s.commonErr
}

func (s *stubSource) LoadRegion(code string) (Document, error) {
	doc, ok := s.regions[code]
	if !ok {
		return nil, ErrRegionNotFound
	}
	return doc, nil
}

func intp(v int) *int { return &v }

func TestEffectivePatterns_SupersetOfCommon(t *testing.T) {
	store := NewStore(NewEmbeddedSource(), nil)
	common := store.LoadCommon()
	require.NotEmpty(t, common.Rules)

	for _, code := range NewEmbeddedSource().Regions() {
		t.Run(code, func(t *testing.T) {
			effective := store.EffectivePatterns(code)
			for category, base := range common.Rules {
				rule := effective.Rule(category)
				require.NotNil(t, rule, "category %s lost in %s", category, code)
				assert.Subset(t, rule.Keywords, base.Keywords)
				assert.Subset(t, rule.Patterns, base.Patterns)
				assert.Subset(t, rule.Attributes, base.Attributes)
				assert.GreaterOrEqual(t, rule.Priority, base.Priority)
			}
		})
	}
}

func TestMerge_UnionsKeywordLists(t *testing.T) {
	common := Document{"business_name": {Keywords: []string{"business name", "DBA name"}, Priority: intp(90)}}
	override := Document{"business_name": {Keywords: []string{"entity name", "dba NAME"}}}

	table := Merge(common, override, "XX")
	rule := table.Rule("business_name")
	require.NotNil(t, rule)
	assert.Equal(t, []string{"business name", "dba name", "entity name"}, rule.Keywords)
	assert.Equal(t, 90, rule.Priority)
}

func TestMerge_PriorityRaisesOnly(t *testing.T) {
	common := Document{
		"a": {Keywords: []string{"a"}, Priority: intp(70)},
		"b": {Keywords: []string{"b"}, Priority: intp(70)},
	}
	override := Document{
		"a": {Priority: intp(90)},
		"b": {Priority: intp(10)},
	}
	table := Merge(common, override, "")
	assert.Equal(t, 90, table.Rule("a").Priority)
	assert.Equal(t, 70, table.Rule("b").Priority)
}

func TestMerge_OverrideValidationWins(t *testing.T) {
	common := Document{"tax_identifier": {Keywords: []string{"ein"}, Validation: &Validation{MinLength: 9}}}
	override := Document{"tax_identifier": {Validation: &Validation{Pattern: `^\d{9}$`}}}

	rule := Merge(common, override, "").Rule("tax_identifier")
	require.NotNil(t, rule.Validation)
	assert.Equal(t, `^\d{9}$`, rule.Validation.Pattern)
	assert.Zero(t, rule.Validation.MinLength)
}

func TestMerge_MalformedPatternSkipped(t *testing.T) {
	common := Document{"zip_code": {Patterns: []string{`\bzip\b`, `([unclosed`}, Keywords: []string{"zip"}}}

	table := Merge(common, nil, "")
	rule := table.Rule("zip_code")
	require.NotNil(t, rule)
	assert.Equal(t, []string{`\bzip\b`}, rule.Patterns)
	assert.Len(t, rule.Regexps(), 1)
	require.Len(t, table.Diagnostics, 1)
	assert.Contains(t, table.Diagnostics[0], "pattern compile error in zip_code")
}

func TestStore_CommonLoadFailureUsesDefaults(t *testing.T) {
	store := NewStore(&stubSource{commonErr: errors.New("disk on fire")}, nil)

	table := store.LoadCommon()
	assert.NotNil(t, table.Rule("business_name"))
	assert.NotNil(t, table.Rule("tax_identifier"))
	require.NotEmpty(t, table.Diagnostics)
	assert.Contains(t, table.Diagnostics[0], "disk on fire")
}

func TestStore_UnknownRegionIsNil(t *testing.T) {
	store := NewStore(NewEmbeddedSource(), nil)
	assert.Nil(t, store.LoadRegion("ZZ"))
	assert.NotNil(t, store.LoadRegion("ca"))
	assert.Equal(t, store.LoadCommon().Categories(), store.EffectivePatterns("ZZ").Categories())
}

func TestStore_CachesPerCode(t *testing.T) {
	src := &stubSource{
		common:  Document{"email": {Keywords: []string{"email"}}},
		regions: map[string]Document{"CA": {"email": {Keywords: []string{"correo"}}}},
	}
	cache := NewCache()
	store := NewStore(src, cache)

	first := store.EffectivePatterns("ca")
	second := store.EffectivePatterns("CA")
	assert.Same(t, first, second)
	assert.Equal(t, "CA", first.Region)
	assert.Contains(t, first.Rule("email").Keywords, "correo")
	assert.Equal(t, 1, src.calls)

	store.EffectivePatterns("")
	assert.Equal(t, 2, cache.Len())
	cache.Invalidate()
	assert.Zero(t, cache.Len())
}

func TestStore_ConcurrentReaders(t *testing.T) {
	store := NewStore(NewEmbeddedSource(), nil)
	var wg sync.WaitGroup
	tables := make([]*PatternTable, 16)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tables[i] = store.EffectivePatterns("DE")
		}(i)
	}
	wg.Wait()
	for _, tbl := range tables[1:] {
		assert.Same(t, tables[0], tbl)
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "regions"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "common.json"),
		[]byte(`{"email": {"keywords": ["email"], "priority": 80}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "regions", "wa.yml"),
		[]byte("email:\n  keywords: [\"e-mail\"]\n"), 0o644))

	src := NewDirSource(dir)
	common, err := src.LoadCommon()
	require.NoError(t, err)
	assert.Equal(t, 80, *common["email"].Priority)

	region, err := src.LoadRegion("WA")
	require.NoError(t, err)
	assert.Equal(t, []string{"e-mail"}, region["email"].Keywords)

	_, err = src.LoadRegion("../etc")
	assert.ErrorIs(t, err, ErrRegionNotFound)
	_, err = src.LoadRegion("OR")
	assert.ErrorIs(t, err, ErrRegionNotFound)
}

func TestContainsPhrase(t *testing.T) {
	tests := []struct {
		text, phrase string
		want         bool
	}{
		{"fein", "ein", false},
		{"federal ein number", "ein", true},
		{"tin", "tin", true},
		{"setting", "tin", false},
		{"dba name", "dba name", true},
		{"business name:", "business name", true},
		{"", "x", false},
		{"x", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContainsPhrase(tt.text, tt.phrase), "%q in %q", tt.phrase, tt.text)
	}
}
