// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
)

// CoverageArtifact is the report produced by the test stage and consumed
// by the reporters.
type CoverageArtifact struct {
	// Path is the absolute path of the XML report.
	Path string `yaml:"path"`

	// Percent is the total line coverage, 0 to 100.
	Percent float64 `yaml:"percent"`

	// LinesValid and LinesCovered are the raw counts when the report
	// carries them.
	LinesValid   int `yaml:"lines_valid"`
	LinesCovered int `yaml:"lines_covered"`
}

// coberturaRoot is the root element of a Cobertura report as written by
// coverage.py.
type coberturaRoot struct {
	XMLName      xml.Name `xml:"coverage"`
	LineRate     float64  `xml:"line-rate,attr"`
	LinesValid   int      `xml:"lines-valid,attr"`
	LinesCovered int      `xml:"lines-covered,attr"`
}

// ParseCoverageXML reads a Cobertura XML report.
func ParseCoverageXML(path string) (CoverageArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CoverageArtifact{}, fmt.Errorf("reading coverage report: %w", err)
	}
	var root coberturaRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return CoverageArtifact{}, fmt.Errorf("parsing coverage report %s: %w", path, err)
	}
	if root.LineRate < 0 || root.LineRate > 1 {
		return CoverageArtifact{}, fmt.Errorf("coverage report %s: line-rate %v out of range", path, root.LineRate)
	}
	return CoverageArtifact{
		Path:         path,
		Percent:      math.Round(root.LineRate*10000) / 100,
		LinesValid:   root.LinesValid,
		LinesCovered: root.LinesCovered,
	}, nil
}
