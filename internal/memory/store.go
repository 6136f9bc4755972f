// Package memory persists the project/section style hierarchy so later
// sessions inherit earlier style decisions. A cloud document store is
// preferred; a local JSON file store is both the fallback and an
// always-written backup. Memory is append/merge-only, there is no
// delete.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectMemory is the top of the hierarchy: the project-wide style and
// an overview of all its sections. The overview is always rebuilt from
// the sections, never patched incrementally.
type ProjectMemory struct {
	Style            string                     `json:"style,omitempty" firestore:"style,omitempty"`
	StyleSummary     string                     `json:"style_summary,omitempty" firestore:"style_summary,omitempty"`
	SectionsOverview map[string]SectionOverview `json:"sections_overview,omitempty" firestore:"sections_overview,omitempty"`
}

// SectionOverview is the per-section digest stored on the project.
type SectionOverview struct {
	Type         string `json:"type" firestore:"type"`
	StyleSummary string `json:"style_summary" firestore:"style_summary"`
}

// SectionMemory is one section's style memory: its type, summary, and a
// snapshot of its most recent specification.
type SectionMemory struct {
	Type         string `json:"type,omitempty" firestore:"type,omitempty"`
	StyleSummary string `json:"style_summary,omitempty" firestore:"style_summary,omitempty"`
	LastSpec     string `json:"last_spec,omitempty" firestore:"last_spec,omitempty"`
}

// Store is the document-store contract. Set operations merge: zero
// fields never clobber stored values. Reads of missing documents return
// the zero value, not an error.
type Store interface {
	GetProject(ctx context.Context, projectID string) (ProjectMemory, error)
	SetProject(ctx context.Context, projectID string, m ProjectMemory) error
	GetSection(ctx context.Context, projectID, sectionID string) (SectionMemory, error)
	SetSection(ctx context.Context, projectID, sectionID string, m SectionMemory) error
	ListSections(ctx context.Context, projectID string) (map[string]SectionMemory, error)
}

// FileStore keeps memory as JSON files under one directory:
// <project>.json and <project>__<section>.json.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) projectPath(projectID string) string {
	return filepath.Join(s.dir, projectID+".json")
}

func (s *FileStore) sectionPath(projectID, sectionID string) string {
	return filepath.Join(s.dir, projectID+"__"+sectionID+".json")
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, out)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *FileStore) GetProject(ctx context.Context, projectID string) (ProjectMemory, error) {
	var m ProjectMemory
	if err := readJSON(s.projectPath(projectID), &m); err != nil {
		return ProjectMemory{}, fmt.Errorf("failed to read project memory: %w", err)
	}
	return m, nil
}

func (s *FileStore) SetProject(ctx context.Context, projectID string, m ProjectMemory) error {
	existing, err := s.GetProject(ctx, projectID)
	if err != nil {
		existing = ProjectMemory{}
	}
	if m.Style != "" {
		existing.Style = m.Style
	}
	if m.StyleSummary != "" {
		existing.StyleSummary = m.StyleSummary
	}
	if m.SectionsOverview != nil {
		existing.SectionsOverview = m.SectionsOverview
	}
	return writeJSON(s.projectPath(projectID), existing)
}

func (s *FileStore) GetSection(ctx context.Context, projectID, sectionID string) (SectionMemory, error) {
	var m SectionMemory
	if err := readJSON(s.sectionPath(projectID, sectionID), &m); err != nil {
		return SectionMemory{}, fmt.Errorf("failed to read section memory: %w", err)
	}
	return m, nil
}

func (s *FileStore) SetSection(ctx context.Context, projectID, sectionID string, m SectionMemory) error {
	existing, err := s.GetSection(ctx, projectID, sectionID)
	if err != nil {
		existing = SectionMemory{}
	}
	if m.Type != "" {
		existing.Type = m.Type
	}
	if m.StyleSummary != "" {
		existing.StyleSummary = m.StyleSummary
	}
	if m.LastSpec != "" {
		existing.LastSpec = m.LastSpec
	}
	return writeJSON(s.sectionPath(projectID, sectionID), existing)
}

func (s *FileStore) ListSections(ctx context.Context, projectID string) (map[string]SectionMemory, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, projectID+"__*.json"))
	if err != nil {
		return nil, err
	}
	sections := make(map[string]SectionMemory, len(matches))
	for _, path := range matches {
		base := strings.TrimSuffix(filepath.Base(path), ".json")
		_, sectionID, ok := strings.Cut(base, "__")
		if !ok {
			continue
		}
		var m SectionMemory
		if err := readJSON(path, &m); err != nil {
			continue
		}
		sections[sectionID] = m
	}
	return sections, nil
}
