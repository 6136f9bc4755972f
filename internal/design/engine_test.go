package design

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/novasvilla/facelift/internal/types"
)

type fakeText struct {
	response  string
	err       error
	gotPrompt string
}

func (f *fakeText) Complete(ctx context.Context, prompt string) (string, error) {
	f.gotPrompt = prompt
	return f.response, f.err
}

func (f *fakeText) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	return f.Complete(ctx, user)
}

// facadeInventory is scenario: two stone-facade storeys in one group,
// a protected pool, and a roof that is not worth changing.
func facadeInventory() *types.Inventory {
	return &types.Inventory{
		Raw: "ELEM_01..ELEM_04 fachada con piscina",
		Elements: []types.Element{
			{ID: "ELEM_01", Name: "Piedra fachada PLANTA BAJA", Substrate: "piedra natural", Condition: "gris rústico", ChangeWorth: true, Group: "piedra fachada"},
			{ID: "ELEM_02", Name: "Piedra fachada PLANTA ALTA", Substrate: "piedra natural", Condition: "gris rústico", ChangeWorth: true, Group: "piedra fachada"},
			{ID: "ELEM_03", Name: "Piscina", Substrate: "gresite", Condition: "azul claro", ChangeWorth: false, Protected: true},
			{ID: "ELEM_04", Name: "Tejado", Substrate: "teja cerámica", Condition: "rojo teja", ChangeWorth: false},
		},
	}
}

func TestProposeNoInventory(t *testing.T) {
	e := NewEngine(&fakeText{})
	if _, err := e.Propose(context.Background(), nil, ""); !errors.Is(err, ErrNoPriorAnalysis) {
		t.Fatalf("err = %v, want ErrNoPriorAnalysis", err)
	}
	if _, err := e.Propose(context.Background(), &types.Inventory{}, ""); !errors.Is(err, ErrNoPriorAnalysis) {
		t.Fatalf("empty inventory: err = %v, want ErrNoPriorAnalysis", err)
	}
}

func TestProposeUpstreamErrorPropagates(t *testing.T) {
	upstream := errors.New("model overloaded")
	e := NewEngine(&fakeText{err: upstream})
	if _, err := e.Propose(context.Background(), facadeInventory(), ""); !errors.Is(err, upstream) {
		t.Fatalf("err = %v, want wrapped upstream error", err)
	}
}

func TestProposeTooFewAlternatives(t *testing.T) {
	raw := "## ALTERNATIVA A: Única\nCAMBIAR:\n- ELEM_01: color=RAL 9010\n"
	e := NewEngine(&fakeText{response: raw})
	if _, err := e.Propose(context.Background(), facadeInventory(), ""); err == nil {
		t.Fatal("expected error when fewer than 3 alternatives decode")
	}
}

func TestProposeHonorsConfiguredCount(t *testing.T) {
	fake := &fakeText{response: violatingProposal}
	e := NewEngine(fake).WithAlternatives(2)

	specs, err := e.Propose(context.Background(), facadeInventory(), "")
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2", len(specs))
	}
	if !strings.Contains(fake.gotPrompt, "GENERA EXACTAMENTE 2 ALTERNATIVAS") {
		t.Errorf("prompt does not request 2 alternatives:\n%.200s", fake.gotPrompt)
	}
	if !strings.Contains(fake.gotPrompt, "hasta ALTERNATIVA B") {
		t.Errorf("prompt repeat clause not adjusted to the count")
	}
}

func TestWithAlternativesIgnoresNonPositive(t *testing.T) {
	e := NewEngine(&fakeText{}).WithAlternatives(0)
	if e.alternatives != AlternativeCount {
		t.Fatalf("alternatives = %d, want default %d", e.alternatives, AlternativeCount)
	}
}

// The model response here violates three rules: the two storeys get
// different colors, the pool is changed, and the roof (not change-worthy)
// is changed. Normalization must repair all three in every alternative.
const violatingProposal = `## ALTERNATIVA A: Rebelde
CONCEPTO: Propuesta con errores deliberados.
CAMBIAR:
- ELEM_01: color=RAL 7016 antracita; acabado=pintura silicato; proceso=hidrolavado | imprimación silicato | pintura
- ELEM_02: color=RAL 9005 negro; acabado=pintura silicato; proceso=hidrolavado | imprimación silicato | pintura
- ELEM_03: color=RAL 5012 azul; acabado=pintura piscinas
- ELEM_04: color=RAL 7016 antracita; acabado=pintura tejas

## ALTERNATIVA B: Rebelde II
CONCEPTO: Más errores.
CAMBIAR:
- ELEM_01: color=RAL 7035 gris; acabado=pintura silicato
MANTENER:
- ELEM_03: piscina como está

## ALTERNATIVA C: Rebelde III
CONCEPTO: Y más.
CAMBIAR:
- ELEM_02: color=RAL 7044 gris seda; acabado=pintura silicato
MANTENER:
- ELEM_04: tejado como está
`

func TestProposeEnforcesInvariants(t *testing.T) {
	inv := facadeInventory()
	e := NewEngine(&fakeText{response: violatingProposal})

	specs, err := e.Propose(context.Background(), inv, "")
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("got %d specs", len(specs))
	}

	for i, spec := range specs {
		if len(spec.Treatments) != len(inv.Elements) {
			t.Errorf("spec %d has %d treatments, want %d", i, len(spec.Treatments), len(inv.Elements))
		}
		if got := spec.Treatments["ELEM_03"]; got.Kind != types.TreatKeep {
			t.Errorf("spec %d: pool = %+v, want keep", i, got)
		}
		if got := spec.Treatments["ELEM_04"]; got.Kind != types.TreatKeep {
			t.Errorf("spec %d: roof = %+v, want keep", i, got)
		}
		if diff := cmp.Diff(spec.Treatments["ELEM_01"], spec.Treatments["ELEM_02"]); diff != "" {
			t.Errorf("spec %d: storeys differ (-ELEM_01 +ELEM_02):\n%s", i, diff)
		}
	}

	// alternative A: ELEM_01 was listed first, so its color is canonical
	if got := specs[0].Treatments["ELEM_02"].Color; got != "RAL 7016 antracita" {
		t.Errorf("spec A upper storey color = %q", got)
	}
}

func scenarioPrior() *types.Specification {
	return &types.Specification{
		Name:    "Contraste Nórdico",
		Version: 1,
		Treatments: map[string]types.Treatment{
			"ELEM_01": {Kind: types.TreatChange, Color: "RAL 9010 blanco", Finish: "pintura silicato", Process: []string{"hidrolavado", "imprimación", "pintura"}},
			"ELEM_02": {Kind: types.TreatChange, Color: "RAL 9010 blanco", Finish: "pintura silicato", Process: []string{"hidrolavado", "imprimación", "pintura"}},
			"ELEM_03": {Kind: types.TreatKeep, Current: "piscina gresite azul claro"},
			"ELEM_04": {Kind: types.TreatKeep, Current: "tejado teja cerámica roja"},
		},
	}
}

func TestRefineNoInventory(t *testing.T) {
	e := NewEngine(&fakeText{})
	_, err := e.Refine(context.Background(), nil, scenarioPrior(), "más oscuro", "")
	if !errors.Is(err, ErrNoPriorAnalysis) {
		t.Fatalf("err = %v, want ErrNoPriorAnalysis", err)
	}
}

func TestRefineInheritanceAndPropagation(t *testing.T) {
	inv := facadeInventory()
	prior := scenarioPrior()
	priorCopy := prior.Clone()

	delta := `NOMBRE: Contraste Nórdico Oscuro
RESUMEN: Paredes más oscuras.
CAMBIAR:
- ELEM_01: color=RAL 7024 gris grafito; acabado=pintura silicato; proceso=hidrolavado | imprimación | pintura
`
	e := NewEngine(&fakeText{response: delta})
	next, err := e.Refine(context.Background(), inv, prior, "la piedra de la planta baja más oscura", "")
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}

	if next.Version != 2 {
		t.Errorf("version = %d, want 2", next.Version)
	}
	if next.Name != "Contraste Nórdico Oscuro" {
		t.Errorf("name = %q", next.Name)
	}

	// the change applied and propagated to the sibling storey
	if got := next.Treatments["ELEM_01"].Color; got != "RAL 7024 gris grafito" {
		t.Errorf("ELEM_01 color = %q", got)
	}
	if diff := cmp.Diff(next.Treatments["ELEM_01"], next.Treatments["ELEM_02"]); diff != "" {
		t.Errorf("group propagation failed (-ELEM_01 +ELEM_02):\n%s", diff)
	}

	// untouched elements inherited exactly
	for _, id := range []string{"ELEM_03", "ELEM_04"} {
		if diff := cmp.Diff(prior.Treatments[id], next.Treatments[id]); diff != "" {
			t.Errorf("%s not inherited verbatim (-prior +next):\n%s", id, diff)
		}
	}

	// the prior specification itself was not mutated
	if diff := cmp.Diff(priorCopy, prior); diff != "" {
		t.Errorf("prior specification mutated:\n%s", diff)
	}
}

func TestRefineScopedFeedbackSuppressesPropagation(t *testing.T) {
	inv := facadeInventory()
	prior := scenarioPrior()

	delta := "CAMBIAR:\n- ELEM_01: color=RAL 7024 gris grafito; acabado=pintura silicato\n"
	e := NewEngine(&fakeText{response: delta})
	next, err := e.Refine(context.Background(), inv, prior, "solo la planta baja en gris grafito", "")
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}

	if got := next.Treatments["ELEM_01"].Color; got != "RAL 7024 gris grafito" {
		t.Errorf("ELEM_01 color = %q", got)
	}
	if diff := cmp.Diff(prior.Treatments["ELEM_02"], next.Treatments["ELEM_02"]); diff != "" {
		t.Errorf("scoped feedback should not propagate (-prior +next):\n%s", diff)
	}
}

func TestRefineProtectedClamp(t *testing.T) {
	inv := facadeInventory()
	delta := "CAMBIAR:\n- ELEM_03: color=RAL 5012 azul; acabado=pintura piscinas\n"
	e := NewEngine(&fakeText{response: delta})

	next, err := e.Refine(context.Background(), inv, scenarioPrior(), "pinta la piscina de azul", "")
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if got := next.Treatments["ELEM_03"]; got.Kind != types.TreatKeep {
		t.Errorf("pool = %+v, want keep", got)
	}
}

func TestRefineEmptyDeltaCarriesSpecification(t *testing.T) {
	inv := facadeInventory()
	prior := scenarioPrior()

	e := NewEngine(&fakeText{response: "De acuerdo, la propuesta ya refleja lo que pides."})
	next, err := e.Refine(context.Background(), inv, prior, "me gusta así", "")
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if next.Version != 2 {
		t.Errorf("version = %d", next.Version)
	}
	if diff := cmp.Diff(prior.Treatments, next.Treatments); diff != "" {
		t.Errorf("treatments should carry unchanged:\n%s", diff)
	}
}

func TestFeedbackIsScoped(t *testing.T) {
	tests := []struct {
		feedback string
		want     bool
	}{
		{"solo la planta baja", true},
		{"únicamente la fachada norte", true},
		{"cámbialo solamente arriba", true},
		{"la piedra más oscura", false},
		{"me gusta la A", false},
	}
	for _, tt := range tests {
		if got := feedbackIsScoped(tt.feedback); got != tt.want {
			t.Errorf("feedbackIsScoped(%q) = %v, want %v", tt.feedback, got, tt.want)
		}
	}
}
