// Package compile translates design specifications into self-contained
// image-edit instructions. It degrades rather than fails: a model-written
// creative body is preferred, but every instruction always carries a
// deterministic block derived from the specification and the fixed
// preservation contract, so even total parse failure still yields usable
// instructions.
package compile

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/novasvilla/facelift/internal/logging"
	"github.com/novasvilla/facelift/internal/types"
)

const instructionHeader = "Edita esta imagen aplicando SOLO cambios de pintura y color (facelift/lavado de cara):"

// preservationContract is appended verbatim to every instruction. The
// consistency verifier judges generated images against exactly these
// rules.
const preservationContract = `REGLAS CRÍTICAS, LEE TODAS ANTES DE EDITAR:

ESTO ES UN LAVADO DE CARA (facelift). SOLO se cambian COLORES y ACABADOS.
REGLA DE ORO: Si algo YA está bien (suelo, parquet, techo blanco), NO TOCARLO.

1. UNIFORMIDAD ENTRE PLANTAS: El MISMO tratamiento y color se aplica a TODAS las plantas de la fachada. Planta baja y planta alta IDÉNTICAS en color.
2. PRESERVAR TEXTURAS: La piedra natural mantiene su RELIEVE y TEXTURA original. Solo se cambia el COLOR pintando sobre ella. NO alisar, NO quitar, NO reemplazar piedras.
3. PRESERVAR GEOMETRÍA: NO mover, eliminar, añadir ni modificar la FORMA de ningún elemento (muros, ventanas, puertas, tejado, piscina, edificios).
4. PISCINA: Mantener SIEMPRE visible, en su posición y forma exacta.
5. ÁRBOLES y VEGETACIÓN: Mantener en su posición exacta.
6. Elementos NO mencionados como CAMBIAR quedan EXACTAMENTE como en la original.
7. Aplicar los colores RAL especificados con PRECISIÓN en TODA la superficie indicada.
8. La perspectiva, proporciones y composición deben ser EXACTAS a la foto original.
9. Generar una imagen FOTORREALISTA de ALTA CALIDAD.
10. TEJAS: Si se especifica un color, aplicar a TODAS las tejas por igual.

CAMBIOS PROHIBIDOS:
- NO cambiar la forma de ventanas, puertas o tejado
- NO eliminar ni mover piedras, solo PINTARLAS conservando su textura
- NO cambiar la forma de la piscina ni sus bordes
- NO añadir elementos arquitectónicos nuevos (balcones, terrazas, etc.)
- NO modificar la vegetación existente
- NO cambiar el paisaje de fondo
- NO aplicar tratamientos diferentes entre planta baja y planta alta`

// Compiler builds edit instructions, optionally enriching them with a
// model-written creative body.
type Compiler struct {
	text types.TextClient
}

func NewCompiler(text types.TextClient) *Compiler {
	return &Compiler{text: text}
}

// Compile produces one self-contained edit instruction per specification.
// It never returns an error: model failures or unparseable responses
// degrade to deterministic instructions built from the specifications
// alone.
func (c *Compiler) Compile(ctx context.Context, specs []*types.Specification, inv *types.Inventory) []string {
	bodies := c.creativeBodies(ctx, specs, inv)

	out := make([]string, len(specs))
	for i, spec := range specs {
		var b strings.Builder
		b.WriteString(instructionHeader)
		b.WriteString("\n\n")
		if i < len(bodies) && bodies[i] != "" {
			b.WriteString(bodies[i])
			b.WriteString("\n\n")
		}
		b.WriteString(specBlock(spec, inv))
		b.WriteString("\n\n")
		b.WriteString(preservationContract)
		out[i] = b.String()
	}
	return out
}

// creativeBodies asks the model to write the per-alternative edit prompts
// and decodes them with progressively weaker strategies: delimiters,
// heuristic segmentation, whole text, nothing.
func (c *Compiler) creativeBodies(ctx context.Context, specs []*types.Specification, inv *types.Inventory) []string {
	if len(specs) == 0 {
		return nil
	}
	raw, err := c.text.Complete(ctx, bodiesPrompt(specs, inv))
	if err != nil {
		logging.CompileWarn("creative body generation failed, using deterministic instructions only: %v", err)
		return nil
	}
	return splitBodies(raw, len(specs))
}

func bodiesPrompt(specs []*types.Specification, inv *types.Inventory) string {
	var b strings.Builder
	b.WriteString("Eres un experto en crear prompts para modelos de edición de imagen.\n\n")
	fmt.Fprintf(&b, "INVENTARIO DE ELEMENTOS EN LA IMAGEN:\n%s\n\n", inv.Raw)
	b.WriteString("ESPECIFICACIONES DE DISEÑO:\n\n")
	for i, spec := range specs {
		fmt.Fprintf(&b, "--- Diseño %d: %s ---\n%s\n", i+1, spec.Name, spec.Summary())
	}
	fmt.Fprintf(&b, "\nCrea EXACTAMENTE %d prompts de edición de imagen (uno por diseño).\n", len(specs))
	b.WriteString("Cada prompt debe describir TODOS los cambios a aplicar sobre la foto original.\n\n")
	b.WriteString("Formato OBLIGATORIO (usa EXACTAMENTE estos delimitadores):\n\n")
	for i := 1; i <= len(specs); i++ {
		fmt.Fprintf(&b, "===PROMPT_%d===\n[prompt detallado para el diseño %d]\n===FIN_%d===\n\n", i, i, i)
	}
	b.WriteString(`REGLAS para cada prompt:
- Lista CADA superficie y su nuevo color RAL exacto.
- Escribe EXPLÍCITAMENTE que TODAS las plantas reciben el MISMO color y tratamiento.
- La piedra se PINTA conservando su textura y relieve, no se alisa ni se quita.
- Para elementos que NO cambian escribe "MANTENER SIN CAMBIOS: [elemento]".
- Menciona que la piscina y la vegetación se conservan exactamente.
- Es un LAVADO DE CARA: solo cambios de color y pintura, nunca estructurales.`)
	return b.String()
}

var heuristicHeaderRe = regexp.MustCompile(`(?m)^(?:Prompt|PROMPT|Alternativa|Diseño)\s*[A-C1-9]`)

// splitBodies decodes the model response into count bodies.
func splitBodies(raw string, count int) []string {
	bodies := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		re := regexp.MustCompile(fmt.Sprintf(`(?s)===PROMPT_%d===\s*\n(.*?)\n?===FIN_%d===`, i, i))
		if m := re.FindStringSubmatch(raw); m != nil {
			bodies = append(bodies, strings.TrimSpace(m[1]))
		}
	}
	if len(bodies) == count {
		return bodies
	}

	logging.CompileWarn("delimiter parse got %d/%d bodies, trying heuristic segmentation", len(bodies), count)
	var sections []string
	if locs := heuristicHeaderRe.FindAllStringIndex(raw, -1); len(locs) > 0 {
		for i, loc := range locs {
			end := len(raw)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			sections = append(sections, raw[loc[0]:end])
		}
	} else {
		sections = []string{raw}
	}
	bodies = bodies[:0]
	for _, s := range sections {
		if s = strings.TrimSpace(s); len(s) > 100 {
			bodies = append(bodies, s)
		}
		if len(bodies) == count {
			break
		}
	}
	if len(bodies) > 0 {
		return bodies
	}

	logging.CompileWarn("heuristic segmentation failed, using whole response as single body")
	return []string{strings.TrimSpace(raw)}
}

// specBlock renders the deterministic instruction block: per-surface
// colors, the uniformity and texture statements, a maintain-unchanged
// clause per kept element, and additions.
func specBlock(spec *types.Specification, inv *types.Inventory) string {
	var b strings.Builder
	b.WriteString("CAMBIOS EXACTOS POR SUPERFICIE:\n")
	for _, id := range spec.SortedIDs() {
		t := spec.Treatments[id]
		if t.Kind != types.TreatChange {
			continue
		}
		name := id
		if e, ok := inv.ElementByID(id); ok {
			name = fmt.Sprintf("%s (%s)", e.Name, id)
		}
		fmt.Fprintf(&b, "- Pintar %s: %s", name, t.Color)
		if t.Finish != "" {
			fmt.Fprintf(&b, ", %s", t.Finish)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nTODAS las plantas y unidades repetidas de cada superficie reciben EXACTAMENTE el mismo color y acabado.\n")
	b.WriteString("Los materiales con textura (piedra, estuco) se repintan EN SU SITIO conservando relieve, forma y geometría.\n")

	b.WriteString("\nMANTENER SIN CAMBIOS:\n")
	for _, id := range spec.SortedIDs() {
		t := spec.Treatments[id]
		if t.Kind != types.TreatKeep {
			continue
		}
		name := id
		if e, ok := inv.ElementByID(id); ok {
			name = e.Name
		}
		desc := t.Current
		if desc == "" {
			desc = "en su posición, forma y color actual"
		}
		fmt.Fprintf(&b, "- %s: %s\n", name, desc)
	}

	if len(spec.Additions) > 0 {
		b.WriteString("\nAÑADIR:\n")
		for _, a := range spec.Additions {
			fmt.Fprintf(&b, "- %s: %s\n", a.Category, a.Description)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
