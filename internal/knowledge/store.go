// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Cache holds effective pattern tables keyed by region code. Writes are
// idempotent: the first stored table for a code is the one every reader sees.
type Cache struct {
	tables sync.Map
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the cached table for a code
func (c *Cache) Get(code string) (*PatternTable, bool) {
	v, ok := c.tables.Load(code)
	if !ok {
		return nil, false
	}
	return v.(*PatternTable), true
}

// Put stores a table unless one is already present and returns the stored one
func (c *Cache) Put(code string, table *PatternTable) *PatternTable {
	v, _ := c.tables.LoadOrStore(code, table)
	return v.(*PatternTable)
}

// Invalidate drops every cached table
func (c *Cache) Invalidate() {
	c.tables.Range(func(k, _ any) bool {
		c.tables.Delete(k)
		return true
	})
}

// Len returns the number of cached tables
func (c *Cache) Len() int {
	n := 0
	c.tables.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Store layers jurisdiction overrides on the common pattern document
type Store struct {
	source PatternSource
	cache  *Cache

	commonOnce  sync.Once
	common      Document
	commonDiags []string
}

// NewStore creates a store over source. A nil cache gets a private one.
func NewStore(source PatternSource, cache *Cache) *Store {
	if cache == nil {
		cache = NewCache()
	}
	return &Store{source: source, cache: cache}
}

// Cache returns the store's table cache
func (s *Store) Cache() *Cache {
	return s.cache
}

// commonDocument loads the common document once, falling back to the built-in defaults
func (s *Store) commonDocument() (Document, []string) {
	s.commonOnce.Do(func() {
		if s.source == nil {
			s.common = defaultDocument()
			s.commonDiags = []string{"data load error: no pattern source configured, using built-in defaults"}
			return
		}
		doc, err := s.source.LoadCommon()
		if err != nil || len(doc) == 0 {
			if err == nil {
				err = errors.New("common document is empty")
			}
			s.common = defaultDocument()
			s.commonDiags = []string{fmt.Sprintf("data load error: %v, using built-in defaults", err)}
			return
		}
		s.common = doc
	})
	return s.common, s.commonDiags
}

// LoadCommon returns the base pattern table. It never fails: a source error
// yields the built-in defaults and a diagnostic.
func (s *Store) LoadCommon() *PatternTable {
	return s.EffectivePatterns("")
}

// LoadRegion returns the override fragment for code, or nil when the code is
// unknown or its document cannot be loaded.
func (s *Store) LoadRegion(code string) Document {
	doc, _ := s.loadRegion(code)
	return doc
}

func (s *Store) loadRegion(code string) (Document, string) {
	if code == "" || s.source == nil {
		return nil, ""
	}
	doc, err := s.source.LoadRegion(code)
	if err != nil {
		if errors.Is(err, ErrRegionNotFound) {
			return nil, ""
		}
		return nil, fmt.Sprintf("data load error: region %s: %v", code, err)
	}
	return doc, ""
}

// EffectivePatterns returns the common table merged with the override for
// code. Tables are built once per code and served from the cache afterwards.
func (s *Store) EffectivePatterns(code string) *PatternTable {
	code = strings.ToUpper(strings.TrimSpace(code))
	if table, ok := s.cache.Get(code); ok {
		return table
	}

	common, diags := s.commonDocument()
	override, regionDiag := s.loadRegion(code)

	table := Merge(common, override, code)
	table.Diagnostics = append(append(append([]string(nil), diags...), table.Diagnostics...), nonEmpty(regionDiag)...)
	return s.cache.Put(code, table)
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
