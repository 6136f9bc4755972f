package design

import (
	"fmt"
	"strings"
)

// treatmentGrammar is the line format both prompts request for element
// treatments. The parser in this package matches it, with looser
// fallbacks when the model drifts.
const treatmentGrammar = `FORMATO OBLIGATORIO de cada línea de tratamiento:
CAMBIAR:
- ELEM_XX: color=[RAL XXXX nombre]; acabado=[tipo de pintura para ese sustrato]; proceso=[paso 1 | paso 2 | paso 3]
MANTENER:
- ELEM_XX: [descripción detallada de lo que tiene, para que el modelo de imagen lo conserve]
AÑADIR:
- [categoría: iluminación/maceteros/gravilla/otro]: [descripción con posición y medidas]`

const designRules = `FILOSOFÍA: Esto es un LAVADO DE CARA (facelift) para aumentar el valor de la casa.
Solo pintamos y tratamos superficies. NO cambiamos geometría, forma ni estructura.
La piedra se PINTA conservando su textura y relieve natural, NUNCA se quita ni reemplaza.

REGLA DE ORO: MÁXIMO WOW CON MÍNIMA INVERSIÓN.
- Un parquet/suelo en buen estado SIEMPRE se mantiene. No cambiarlo.
- El inventario marca '¿Merece cambio?: NO' en un elemento: ese elemento va SIEMPRE como MANTENER.
- Si se pintan paredes o techo, SIEMPRE MISMO COLOR EN AMBOS. Nunca techo blanco con paredes de color.
- Griferías de baño: por defecto negro mate RAL 9005 (tendencia 2026).
- Priorizar cambios de ALTO IMPACTO y BAJO COSTE (pintura, iluminación, textiles).

REGLA CRÍTICA DE UNIFORMIDAD ENTRE PLANTAS:
- Las paredes de TODAS las plantas reciben el MISMO color y acabado.
- La piedra de TODAS las plantas recibe el MISMO tratamiento y color.
- NO puede haber una planta con un diseño y otra con otro. Fachada UNIFORME.

PROCESOS POR SUSTRATO:
- Piedra natural: hidrolavado 130bar | secado 48h | imprimación silicato | pintura mineral silicato
- Estuco/enfoscado: limpieza | reparar fisuras | fijador acrílico | pintura siloxánica exterior
- Metal oxidado: lijar óxido | imprimación antioxidante | esmalte poliuretano satinado
- Madera: lijado | lasur protector exterior
- Teja cerámica: hidrolavado | pintura impermeabilizante para tejas
- Gravilla: SOLO en exteriores. NUNCA en interiores, baños ni cocinas.

ELEMENTOS PROTEGIDOS:
- La piscina SIEMPRE aparece como MANTENER, nunca se elimina ni oculta.
- Árboles y vegetación existente SIEMPRE como MANTENER en su posición.
- Edificios auxiliares se unifican con el color de la casa principal.`

// paletteStrategies are the per-alternative palette directions, in
// presentation order. Counts beyond the list get a free palette.
var paletteStrategies = []string{
	"contrastada (negro + gris claro/blanco)",
	"monocromática premium (escala de grises)",
	"cálida y acogedora (grises cálidos/greige)",
}

func proposePrompt(inventoryRaw, memoryContext string, count int) string {
	var b strings.Builder
	b.WriteString("Eres un arquitecto de diseño exterior e interior experto en tendencias 2026.\n\n")
	if memoryContext != "" {
		fmt.Fprintf(&b, "CONTEXTO DEL PROYECTO (decisiones de estilo previas, mantén coherencia):\n%s\n\n", memoryContext)
	}
	fmt.Fprintf(&b, "INVENTARIO COMPLETO DE ELEMENTOS EN LA IMAGEN:\n%s\n\n", inventoryRaw)
	b.WriteString(designRules)
	fmt.Fprintf(&b, "\n\nGENERA EXACTAMENTE %d ALTERNATIVAS. Para CADA una:\n\n", count)
	b.WriteString("## ALTERNATIVA A: [nombre creativo]\n")
	b.WriteString("CONCEPTO: [2-3 frases con la visión, los colores RAL específicos y el efecto final]\n\n")
	b.WriteString(treatmentGrammar)
	if count > 1 {
		fmt.Fprintf(&b, "\n\n(Repite EXACTAMENTE igual hasta ALTERNATIVA %c, cada una con paleta DIFERENTE)\n\n", 'A'+count-1)
	} else {
		b.WriteString("\n\n")
	}
	b.WriteString("IMPORTANTE:\n- CADA alternativa DEBE listar TODOS los ELEM del inventario (en CAMBIAR o en MANTENER).")
	for i := 0; i < count && i < len(paletteStrategies); i++ {
		fmt.Fprintf(&b, "\n- Alternativa %c: %s", 'A'+i, paletteStrategies[i])
	}
	return b.String()
}

// refinePrompt asks for a DELTA against the current specification, not a
// rewrite. Untouched elements are merged in from the prior specification
// verbatim by the engine, so the model is never given a chance to corrupt
// them.
func refinePrompt(inventoryRaw, priorSummary, feedback, memoryContext string) string {
	var b strings.Builder
	b.WriteString("Eres un arquitecto de diseño experto. El usuario quiere ajustar la propuesta actual.\n\n")
	if memoryContext != "" {
		fmt.Fprintf(&b, "CONTEXTO DEL PROYECTO:\n%s\n\n", memoryContext)
	}
	fmt.Fprintf(&b, "INVENTARIO ORIGINAL DE ELEMENTOS:\n%s\n\n", inventoryRaw)
	fmt.Fprintf(&b, "ESPECIFICACIÓN DE DISEÑO ACTUAL:\n%s\n\n", priorSummary)
	fmt.Fprintf(&b, "FEEDBACK DEL USUARIO:\n%s\n\n", feedback)
	b.WriteString(`INSTRUCCIONES:
Devuelve SOLO los cambios que pide el feedback. NO repitas los elementos que no cambian;
esos heredan automáticamente su tratamiento actual.

NOMBRE: [nombre de la propuesta refinada]
RESUMEN: [2-3 frases describiendo el resultado tras aplicar el feedback]

`)
	b.WriteString(treatmentGrammar)
	b.WriteString(`

REGLAS:
- Lista en CAMBIAR/MANTENER SOLO los elementos afectados por el feedback.
- Esto es un LAVADO DE CARA: solo pintura y acabados, no cambios estructurales.
- La piscina y la vegetación NUNCA se cambian.
- Si el feedback pide un cambio en una superficie repetida entre plantas,
  el MISMO cambio aplica a TODAS las plantas salvo que el feedback lo limite
  explícitamente.`)
	return b.String()
}
