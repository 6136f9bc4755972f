package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/novasvilla/facelift/internal/logging"
)

// specSnapshotLimit caps the last-specification excerpt in the context
// digest, in runes.
const specSnapshotLimit = 500

// Propagator is the hierarchy's write path and digest builder. It
// prefers the cloud store, always writes the local backup, and rebuilds
// the project's section overview from scratch on every section save.
// Store failures are soft: logged and absorbed, never surfaced.
type Propagator struct {
	cloud Store // may be nil
	local *FileStore
}

func NewPropagator(cloud Store, local *FileStore) *Propagator {
	return &Propagator{cloud: cloud, local: local}
}

func (p *Propagator) getProject(ctx context.Context, projectID string) ProjectMemory {
	if p.cloud != nil {
		m, err := p.cloud.GetProject(ctx, projectID)
		if err == nil && (m.Style != "" || m.StyleSummary != "" || len(m.SectionsOverview) > 0) {
			return m
		}
		if err != nil {
			logging.MemoryWarn("cloud project read failed for %s, using local: %v", projectID, err)
		}
	}
	m, err := p.local.GetProject(ctx, projectID)
	if err != nil {
		logging.MemoryWarn("local project read failed for %s: %v", projectID, err)
	}
	return m
}

func (p *Propagator) getSection(ctx context.Context, projectID, sectionID string) SectionMemory {
	if p.cloud != nil {
		m, err := p.cloud.GetSection(ctx, projectID, sectionID)
		if err == nil && (m.Type != "" || m.StyleSummary != "" || m.LastSpec != "") {
			return m
		}
		if err != nil {
			logging.MemoryWarn("cloud section read failed for %s/%s, using local: %v", projectID, sectionID, err)
		}
	}
	m, err := p.local.GetSection(ctx, projectID, sectionID)
	if err != nil {
		logging.MemoryWarn("local section read failed for %s/%s: %v", projectID, sectionID, err)
	}
	return m
}

// SaveProject merges project data into both stores.
func (p *Propagator) SaveProject(ctx context.Context, projectID string, m ProjectMemory) {
	if p.cloud != nil {
		if err := p.cloud.SetProject(ctx, projectID, m); err != nil {
			logging.MemoryWarn("cloud project write failed for %s: %v", projectID, err)
		}
	}
	if err := p.local.SetProject(ctx, projectID, m); err != nil {
		logging.MemoryWarn("local project write failed for %s: %v", projectID, err)
	}
}

// SaveSection merges section data into both stores, then rebuilds the
// parent project's sections overview from all known sections.
func (p *Propagator) SaveSection(ctx context.Context, projectID, sectionID string, m SectionMemory) {
	if p.cloud != nil {
		if err := p.cloud.SetSection(ctx, projectID, sectionID, m); err != nil {
			logging.MemoryWarn("cloud section write failed for %s/%s: %v", projectID, sectionID, err)
		}
	}
	if err := p.local.SetSection(ctx, projectID, sectionID, m); err != nil {
		logging.MemoryWarn("local section write failed for %s/%s: %v", projectID, sectionID, err)
	}
	p.rebuildOverview(ctx, projectID)
}

// rebuildOverview recomputes the project's section overview by
// re-scanning every known section. Linear in section count, but immune
// to drift.
func (p *Propagator) rebuildOverview(ctx context.Context, projectID string) {
	var sections map[string]SectionMemory
	if p.cloud != nil {
		var err error
		sections, err = p.cloud.ListSections(ctx, projectID)
		if err != nil {
			logging.MemoryWarn("cloud sections list failed for %s: %v", projectID, err)
			sections = nil
		}
	}
	if len(sections) == 0 {
		var err error
		sections, err = p.local.ListSections(ctx, projectID)
		if err != nil {
			logging.MemoryWarn("local sections list failed for %s: %v", projectID, err)
			return
		}
	}

	overview := make(map[string]SectionOverview, len(sections))
	for id, sec := range sections {
		typ := sec.Type
		if typ == "" {
			typ = "otro"
		}
		overview[id] = SectionOverview{Type: typ, StyleSummary: sec.StyleSummary}
	}
	p.SaveProject(ctx, projectID, ProjectMemory{SectionsOverview: overview})
	logging.Memory("rebuilt overview for %s: %d section(s)", projectID, len(overview))
}

// Context assembles the human-readable style digest injected into
// prompts: project style, global summary, sibling section summaries,
// and the current section's summary plus a truncated snapshot of its
// last specification. Empty when nothing is remembered yet.
func (p *Propagator) Context(ctx context.Context, projectID, sectionID string) string {
	proj := p.getProject(ctx, projectID)
	sec := p.getSection(ctx, projectID, sectionID)

	var lines []string
	if proj.Style != "" {
		lines = append(lines, fmt.Sprintf("Estilo del proyecto: %s", proj.Style))
	}
	if proj.StyleSummary != "" {
		lines = append(lines, fmt.Sprintf("Resumen global: %s", proj.StyleSummary))
	}
	siblings := make([]string, 0, len(proj.SectionsOverview))
	for id := range proj.SectionsOverview {
		siblings = append(siblings, id)
	}
	sort.Strings(siblings)
	for _, id := range siblings {
		overview := proj.SectionsOverview[id]
		if id == sectionID || overview.StyleSummary == "" {
			continue
		}
		typ := overview.Type
		if typ == "" {
			typ = "?"
		}
		lines = append(lines, fmt.Sprintf("Sección %s (%s): %s", id, typ, overview.StyleSummary))
	}
	if sec.StyleSummary != "" {
		lines = append(lines, fmt.Sprintf("Esta sección (%s): %s", sectionID, sec.StyleSummary))
	}
	if sec.LastSpec != "" {
		lines = append(lines, fmt.Sprintf("Última especificación de esta sección: %s", truncateRunes(sec.LastSpec, specSnapshotLimit)))
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
