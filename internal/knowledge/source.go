// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Embedded pattern documents
//
//go:embed data/common.yaml data/regions/*.yaml
var embeddedData embed.FS

// ErrRegionNotFound is returned by a source that has no override for a code
var ErrRegionNotFound = errors.New("region override not found")

// PatternSource supplies raw pattern documents to the Store
type PatternSource interface {
	LoadCommon() (Document, error)
	LoadRegion(code string) (Document, error)
}

// EmbeddedSource serves the documents compiled into the binary
type EmbeddedSource struct {
	once   sync.Once
	common Document
	err    error
}

// NewEmbeddedSource creates a source over the embedded data set
func NewEmbeddedSource() *EmbeddedSource {
	return &EmbeddedSource{}
}

// LoadCommon parses data/common.yaml once and returns the cached document
func (s *EmbeddedSource) LoadCommon() (Document, error) {
	s.once.Do(func() {
		data, err := embeddedData.ReadFile("data/common.yaml")
		if err != nil {
			s.err = fmt.Errorf("failed to read embedded common patterns: %w", err)
			return
		}
		s.common, s.err = ParseDocument(data)
	})
	return s.common, s.err
}

// LoadRegion parses data/regions/<code>.yaml
func (s *EmbeddedSource) LoadRegion(code string) (Document, error) {
	name := "data/regions/" + strings.ToLower(code) + ".yaml"
	data, err := embeddedData.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrRegionNotFound
		}
		return nil, fmt.Errorf("failed to read embedded region %s: %w", code, err)
	}
	return ParseDocument(data)
}

// Regions lists the region codes available in the embedded data set
func (s *EmbeddedSource) Regions() []string {
	entries, err := embeddedData.ReadDir("data/regions")
	if err != nil {
		return nil
	}
	var codes []string
	for _, e := range entries {
		codes = append(codes, strings.ToUpper(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))))
	}
	return codes
}

// DirSource reads documents from a directory laid out as
// common.{yaml,yml,json} and regions/<code>.{yaml,yml,json}
type DirSource struct {
	Dir string
}

// NewDirSource creates a source rooted at dir
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

var documentExtensions = []string{".yaml", ".yml", ".json"}

// LoadCommon reads the common document
func (s *DirSource) LoadCommon() (Document, error) {
	data, err := s.readFirst(filepath.Join(s.Dir, "common"))
	if err != nil {
		return nil, fmt.Errorf("failed to load common patterns from %s: %w", s.Dir, err)
	}
	return ParseDocument(data)
}

// LoadRegion reads regions/<code>.*
func (s *DirSource) LoadRegion(code string) (Document, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || strings.ContainsAny(code, `/\.`) {
		return nil, ErrRegionNotFound
	}
	data, err := s.readFirst(filepath.Join(s.Dir, "regions", code))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrRegionNotFound
		}
		return nil, err
	}
	return ParseDocument(data)
}

func (s *DirSource) readFirst(base string) ([]byte, error) {
	for _, ext := range documentExtensions {
		data, err := os.ReadFile(base + ext)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fs.ErrNotExist
}
