// Package verify judges a generated image against the preservation
// policy: only colors and finishes may change, geometry and protected
// elements must survive intact. The judge is a model and therefore
// unreliable; a failed judgment never blocks the user from receiving
// their image (fail-open).
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/novasvilla/facelift/internal/logging"
	"github.com/novasvilla/facelift/internal/types"
)

const judgePrompt = `Eres un inspector de calidad de imágenes de renovación cosmética (facelift).
Compara la imagen ORIGINAL (primera) con la imagen GENERADA (segunda).

REGLAS DE CONSISTENCIA, la imagen generada SOLO puede cambiar:
PERMITIDO: colores de paredes, pintura, acabados superficiales, iluminación
PERMITIDO: color de puertas, ventanas, rejas (sin cambiar forma)
PERMITIDO: añadir plantas decorativas o maceteros

PROHIBIDO alterar:
- Geometría o forma de la estructura (paredes, tejado, ventanas, puertas)
- Forma o posición de la piscina
- Árboles y vegetación existente (no eliminar ni mover)
- Perspectiva, proporciones o composición de la foto
- Paisaje de fondo
- Textura de piedra natural (solo pintar sobre ella, no alisar)

Responde EXACTAMENTE en este formato JSON:
{"passed": true/false, "score": 0-100, "issues": ["issue1", "issue2"]}

- score 90-100: Excelente, solo cambios cosméticos
- score 70-89: Aceptable, cambios menores no deseados
- score 50-69: Problemas significativos
- score 0-49: Inaceptable, cambios estructurales graves

Si passed=true, issues debe estar vacío. Si passed=false, lista cada problema.`

// Verifier compares original/generated image pairs.
type Verifier struct {
	vision types.VisionClient
}

func NewVerifier(vision types.VisionClient) *Verifier {
	return &Verifier{vision: vision}
}

// Verify judges the generated image against the original. It never
// returns an error: when the judgment call or its decoding fails, the
// report passes with the sentinel score and an issue describing the
// check failure.
func (v *Verifier) Verify(ctx context.Context, original, generated types.Blob) types.ConsistencyReport {
	raw, err := v.vision.DescribeImages(ctx, judgePrompt, []types.Blob{original, generated})
	if err != nil {
		logging.VerifyWarn("consistency check failed, passing through: %v", err)
		return failOpen(err)
	}

	var report types.ConsistencyReport
	if err := json.Unmarshal([]byte(stripFences(raw)), &report); err != nil {
		logging.VerifyWarn("consistency response undecodable, passing through: %v", err)
		return failOpen(fmt.Errorf("malformed judge response: %w", err))
	}

	normalizeReport(&report)
	logging.Verify("consistency: passed=%v score=%d issues=%d", report.Passed, report.Score, len(report.Issues))
	return report
}

func failOpen(err error) types.ConsistencyReport {
	return types.ConsistencyReport{
		Passed: true,
		Score:  types.JudgeFailureScore,
		Issues: []string{fmt.Sprintf("Check error: %v", err)},
	}
}

// stripFences peels markdown code fences and surrounding prose off the
// judge's JSON.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
		text = strings.TrimPrefix(strings.TrimSpace(text), "json")
	}
	// last resort: crop to the outermost braces
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}
	return strings.TrimSpace(text)
}

// normalizeReport enforces the report shape: a pass with a real score
// carries no issues, and scores stay inside 0-100 (the sentinel is the
// verifier's own, never the judge's to claim).
func normalizeReport(r *types.ConsistencyReport) {
	if r.Score < 0 || r.Score > 100 {
		if r.Score > 100 {
			r.Score = 100
		} else {
			r.Score = 0
		}
	}
	if r.Passed {
		r.Issues = nil
	}
	if r.Issues == nil {
		r.Issues = []string{}
	}
}
