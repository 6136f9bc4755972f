package copilot

import (
	"fmt"
	"strings"

	"github.com/novasvilla/facelift/internal/generate"
	"github.com/novasvilla/facelift/internal/types"
)

// renderProposalReport builds the markdown shown after an initial
// analysis: the element inventory, the design narratives, and one status
// line per generated image.
func renderProposalReport(inv *types.Inventory, specs []*types.Specification, results []generate.Result, reports []types.ConsistencyReport) string {
	var b strings.Builder

	b.WriteString("# Análisis del espacio\n\n")
	fmt.Fprintf(&b, "He identificado **%d elementos** en tus fotos:\n\n", len(inv.Elements))
	for _, e := range inv.Elements {
		marker := "🔄"
		if !e.ChangeWorth {
			marker = "✋"
		}
		if e.Protected {
			marker = "🛡️"
		}
		fmt.Fprintf(&b, "- %s **%s** %s", marker, e.ID, e.Name)
		if e.State != "" {
			fmt.Fprintf(&b, " (%s)", e.State)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n# Propuestas de diseño\n")
	for i, spec := range specs {
		fmt.Fprintf(&b, "\n## Alternativa %c: %s\n\n", 'A'+i, spec.Name)
		if spec.Concept != "" {
			fmt.Fprintf(&b, "%s\n\n", spec.Concept)
		}
		writeSpecTable(&b, spec)
	}

	writeResults(&b, results, reports)

	b.WriteString("\nDime qué alternativa te gusta más, o pide cambios (por ejemplo: «la B pero con la puerta en verde»).\n")
	return b.String()
}

// renderRefinementReport builds the markdown shown after a feedback round.
func renderRefinementReport(spec *types.Specification, results []generate.Result, reports []types.ConsistencyReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s (revisión %d)\n\n", spec.Name, spec.Version)
	if spec.Concept != "" {
		fmt.Fprintf(&b, "%s\n\n", spec.Concept)
	}
	writeSpecTable(&b, spec)

	writeResults(&b, results, reports)

	b.WriteString("\n¿Seguimos ajustando algo más?\n")
	return b.String()
}

func writeSpecTable(b *strings.Builder, spec *types.Specification) {
	for _, id := range spec.SortedIDs() {
		t := spec.Treatments[id]
		switch t.Kind {
		case types.TreatChange:
			fmt.Fprintf(b, "- **%s**: %s", id, t.Color)
			if t.Finish != "" {
				fmt.Fprintf(b, ", %s", t.Finish)
			}
			if len(t.Process) > 0 {
				fmt.Fprintf(b, " (%s)", strings.Join(t.Process, " | "))
			}
			b.WriteString("\n")
		default:
			fmt.Fprintf(b, "- **%s**: se mantiene", id)
			if t.Current != "" {
				fmt.Fprintf(b, " (%s)", t.Current)
			}
			b.WriteString("\n")
		}
	}
	for _, a := range spec.Additions {
		fmt.Fprintf(b, "- **Añadir** %s: %s\n", a.Category, a.Description)
	}
}

// writeResults emits one line per generation attempt. Failed alternatives
// are reported inline so a partial batch still reads as a result.
func writeResults(b *strings.Builder, results []generate.Result, reports []types.ConsistencyReport) {
	if len(results) == 0 {
		return
	}
	b.WriteString("\n# Imágenes generadas\n\n")
	for i, r := range results {
		if !r.OK() {
			fmt.Fprintf(b, "- ❌ Alternativa %s: falló la generación (%v)\n", r.Label, r.Err)
			continue
		}
		fmt.Fprintf(b, "- ✅ Alternativa %s: `%s`", r.Label, r.Path)
		if r.URL != "" {
			fmt.Fprintf(b, " ([ver online](%s))", r.URL)
		}
		b.WriteString("\n")
		if i < len(reports) {
			writeConsistency(b, reports[i])
		}
	}
}

func writeConsistency(b *strings.Builder, rep types.ConsistencyReport) {
	if rep.Score == types.JudgeFailureScore {
		b.WriteString("  - Consistencia: no verificada\n")
		return
	}
	status := "✅"
	if !rep.Passed {
		status = "⚠️"
	}
	fmt.Fprintf(b, "  - Consistencia: %s %d/100\n", status, rep.Score)
	for _, issue := range rep.Issues {
		fmt.Fprintf(b, "    - %s\n", issue)
	}
}
