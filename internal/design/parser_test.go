package design

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/novasvilla/facelift/internal/types"
)

const proposalResponse = `Aquí tienes las tres propuestas:

## ALTERNATIVA A: Contraste Nórdico
CONCEPTO: Fachada blanca RAL 9010 con piedra en antracita RAL 7016, máximo contraste.

CAMBIAR:
- ELEM_01: color=RAL 9010 blanco; acabado=pintura siloxánica exterior; proceso=limpieza | fijador acrílico | pintura siloxánica
- ELEM_02: color=RAL 9010 blanco; acabado=pintura siloxánica exterior; proceso=limpieza | fijador acrílico | pintura siloxánica
MANTENER:
- ELEM_03: piscina de gresite azul claro en buen estado
- ELEM_04: tejado de teja cerámica roja en buen estado
AÑADIR:
- iluminación: apliques LED IP65 3000K junto a la puerta principal

## ALTERNATIVA B: Monocromo Premium
CONCEPTO: Escala de grises con acabados mate.

CAMBIAR:
- ELEM_01: color=RAL 7035 gris claro; acabado=pintura siloxánica; proceso=limpieza | fijador | pintura
- ELEM_02: color=RAL 7035 gris claro; acabado=pintura siloxánica; proceso=limpieza | fijador | pintura
MANTENER:
- ELEM_03: piscina sin cambios
- ELEM_04: tejado sin cambios

## ALTERNATIVA C: Greige Cálido
CONCEPTO: Grises cálidos y madera.

CAMBIAR:
- ELEM_01: color=RAL 7044 gris seda; acabado=pintura siloxánica; proceso=limpieza | pintura
- ELEM_02: color=RAL 7044 gris seda; acabado=pintura siloxánica; proceso=limpieza | pintura
MANTENER:
- ELEM_03: piscina sin cambios
- ELEM_04: tejado sin cambios
`

func TestParseAlternatives(t *testing.T) {
	specs := ParseAlternatives(proposalResponse)
	if len(specs) != 3 {
		t.Fatalf("parsed %d alternatives, want 3", len(specs))
	}

	a := specs[0]
	if a.Name != "Contraste Nórdico" {
		t.Errorf("name = %q", a.Name)
	}
	if a.Concept == "" {
		t.Error("concept not parsed")
	}
	want := types.Treatment{
		Kind:    types.TreatChange,
		Color:   "RAL 9010 blanco",
		Finish:  "pintura siloxánica exterior",
		Process: []string{"limpieza", "fijador acrílico", "pintura siloxánica"},
	}
	if diff := cmp.Diff(want, a.Treatments["ELEM_01"]); diff != "" {
		t.Errorf("ELEM_01 treatment mismatch (-want +got):\n%s", diff)
	}
	if got := a.Treatments["ELEM_03"]; got.Kind != types.TreatKeep || got.Current == "" {
		t.Errorf("ELEM_03 = %+v, want keep with description", got)
	}
	if len(a.Additions) != 1 || a.Additions[0].Category != "iluminacion" {
		t.Errorf("additions = %+v", a.Additions)
	}
}

func TestParseAlternativesLooseFormat(t *testing.T) {
	raw := `## ALTERNATIVA A: Sencilla
CONCEPTO: Todo gris.

- ELEM_01: pintar en RAL 7016 antracita mate
- ELEM_02: MANTENER tal cual está
`
	specs := ParseAlternatives(raw)
	if len(specs) != 1 {
		t.Fatalf("parsed %d alternatives, want 1", len(specs))
	}
	t1 := specs[0].Treatments["ELEM_01"]
	if t1.Kind != types.TreatChange || t1.Color != "RAL 7016 antracita mate" {
		t.Errorf("loose change line = %+v", t1)
	}
	t2 := specs[0].Treatments["ELEM_02"]
	if t2.Kind != types.TreatKeep {
		t.Errorf("loose keep line = %+v", t2)
	}
}

func TestParseAlternativesGarbage(t *testing.T) {
	if specs := ParseAlternatives("no hay alternativas aquí"); len(specs) != 0 {
		t.Errorf("got %d specs from garbage", len(specs))
	}
}

func TestParseDelta(t *testing.T) {
	raw := `NOMBRE: Contraste Nórdico Oscuro
RESUMEN: Paredes en gris más oscuro según el feedback.

CAMBIAR:
- ELEM_01: color=RAL 7024 gris grafito; acabado=pintura siloxánica; proceso=limpieza | fijador | pintura
AÑADIR:
- maceteros: dos maceteros de fibra antracita flanqueando la entrada
`
	d := ParseDelta(raw)
	if d.Name != "Contraste Nórdico Oscuro" {
		t.Errorf("name = %q", d.Name)
	}
	if d.Concept == "" {
		t.Error("resumen not parsed")
	}
	if len(d.Updates) != 1 {
		t.Fatalf("updates = %+v", d.Updates)
	}
	if d.Updates["ELEM_01"].Color != "RAL 7024 gris grafito" {
		t.Errorf("update = %+v", d.Updates["ELEM_01"])
	}
	if len(d.Additions) != 1 || d.Additions[0].Category != "maceteros" {
		t.Errorf("additions = %+v", d.Additions)
	}
}

func TestCanonicalID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ELEM_01", "ELEM_01"},
		{"elem 3", "ELEM_03"},
		{"ELEM_12", "ELEM_12"},
		{"**ELEM_7**", "ELEM_07"},
		{"paredes", ""},
	}
	for _, tt := range tests {
		if got := canonicalID(tt.in); got != tt.want {
			t.Errorf("canonicalID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
