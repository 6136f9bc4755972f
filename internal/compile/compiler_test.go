package compile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/novasvilla/facelift/internal/types"
)

type fakeText struct {
	response string
	err      error
}

func (f *fakeText) Complete(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func (f *fakeText) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	return f.response, f.err
}

func testInventory() *types.Inventory {
	return &types.Inventory{
		Raw: "ELEM_01 paredes, ELEM_02 piscina",
		Elements: []types.Element{
			{ID: "ELEM_01", Name: "Paredes estuco", Substrate: "estuco"},
			{ID: "ELEM_02", Name: "Piscina", Protected: true},
		},
	}
}

func testSpecs() []*types.Specification {
	change := types.Treatment{Kind: types.TreatChange, Color: "RAL 9010 blanco", Finish: "siloxánica"}
	keep := types.Treatment{Kind: types.TreatKeep, Current: "gresite azul en buen estado"}
	return []*types.Specification{
		{Name: "A", Treatments: map[string]types.Treatment{"ELEM_01": change, "ELEM_02": keep}},
		{Name: "B", Treatments: map[string]types.Treatment{"ELEM_01": {Kind: types.TreatChange, Color: "RAL 7035"}, "ELEM_02": keep}},
	}
}

func TestCompileWithDelimitedBodies(t *testing.T) {
	raw := `===PROMPT_1===
Cuerpo creativo para el diseño A.
===FIN_1===

===PROMPT_2===
Cuerpo creativo para el diseño B.
===FIN_2===`
	c := NewCompiler(&fakeText{response: raw})

	out := c.Compile(context.Background(), testSpecs(), testInventory())
	if len(out) != 2 {
		t.Fatalf("got %d instructions, want 2", len(out))
	}
	if !strings.Contains(out[0], "Cuerpo creativo para el diseño A.") {
		t.Error("instruction 0 missing its creative body")
	}
	if !strings.Contains(out[1], "Cuerpo creativo para el diseño B.") {
		t.Error("instruction 1 missing its creative body")
	}
	for i, instr := range out {
		if !strings.HasPrefix(instr, instructionHeader) {
			t.Errorf("instruction %d missing header", i)
		}
		if !strings.Contains(instr, preservationContract) {
			t.Errorf("instruction %d missing preservation contract", i)
		}
		if !strings.Contains(instr, "MANTENER SIN CAMBIOS:") {
			t.Errorf("instruction %d missing keep clause", i)
		}
	}
	if !strings.Contains(out[0], "RAL 9010 blanco") {
		t.Error("instruction 0 missing target color")
	}
	if !strings.Contains(out[0], "gresite azul en buen estado") {
		t.Error("instruction 0 missing keep description")
	}
}

func TestCompileHeuristicFallback(t *testing.T) {
	// no delimiters, but clearly segmented sections over 100 chars each
	long := strings.Repeat("pintar todas las superficies indicadas con precisión ", 4)
	raw := "Prompt 1\n" + long + "\nPrompt 2\n" + long
	c := NewCompiler(&fakeText{response: raw})

	out := c.Compile(context.Background(), testSpecs(), testInventory())
	if len(out) != 2 {
		t.Fatalf("got %d instructions", len(out))
	}
	for i, instr := range out {
		if !strings.Contains(instr, preservationContract) {
			t.Errorf("instruction %d missing contract", i)
		}
	}
}

func TestCompileWholeTextFallback(t *testing.T) {
	c := NewCompiler(&fakeText{response: "texto corto sin estructura"})

	out := c.Compile(context.Background(), testSpecs(), testInventory())
	if len(out) != 2 {
		t.Fatalf("got %d instructions", len(out))
	}
	// single recovered body attaches to the first instruction only;
	// the second still gets its deterministic block
	if !strings.Contains(out[0], "texto corto sin estructura") {
		t.Error("whole-text fallback body missing from first instruction")
	}
	if !strings.Contains(out[1], "RAL 7035") {
		t.Error("second instruction missing its deterministic block")
	}
}

func TestCompileModelErrorStillProducesInstructions(t *testing.T) {
	c := NewCompiler(&fakeText{err: errors.New("model down")})

	out := c.Compile(context.Background(), testSpecs(), testInventory())
	if len(out) != 2 {
		t.Fatalf("got %d instructions", len(out))
	}
	for i, instr := range out {
		if !strings.Contains(instr, preservationContract) {
			t.Errorf("instruction %d missing contract", i)
		}
		if !strings.Contains(instr, "CAMBIOS EXACTOS POR SUPERFICIE:") {
			t.Errorf("instruction %d missing deterministic block", i)
		}
	}
}

func TestSplitBodiesPartialDelimiters(t *testing.T) {
	raw := "===PROMPT_1===\ncuerpo uno\n===FIN_1===\ny aquí el modelo se desvió del formato"
	bodies := splitBodies(raw, 2)
	if len(bodies) == 0 {
		t.Fatal("expected at least one body")
	}
}
