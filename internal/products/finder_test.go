package products

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeSearch struct {
	response  string
	err       error
	gotPrompt string
}

func (f *fakeSearch) CompleteWithSearch(ctx context.Context, prompt string) (string, error) {
	f.gotPrompt = prompt
	return f.response, f.err
}

func TestSearchIncludesResultsAndLinks(t *testing.T) {
	search := &fakeSearch{response: "Titan pintura siloxánica 15L, 89,95 EUR en Leroy Merlin"}
	f := NewFinder(search)

	out := f.Search(context.Background(), "pintura siloxánica exterior RAL 7035 15L")

	if !strings.Contains(out, "Titan pintura siloxánica") {
		t.Error("grounded results missing from output")
	}
	if !strings.Contains(search.gotPrompt, "pintura siloxánica exterior RAL 7035 15L") {
		t.Error("query not embedded in the search prompt")
	}
	for _, store := range []string{"Leroy Merlin", "ManoMano", "Bricomart", "Amazon ES"} {
		if !strings.Contains(out, "["+store+"]") {
			t.Errorf("store link for %s missing", store)
		}
	}
}

func TestSearchFailureDegradesToLinks(t *testing.T) {
	f := NewFinder(&fakeSearch{err: errors.New("quota exceeded")})

	out := f.Search(context.Background(), "esmalte antioxidante negro")
	if !strings.Contains(out, "No se encontraron resultados online") {
		t.Error("failure note missing")
	}
	if !strings.Contains(out, "leroymerlin.es/buscador") {
		t.Error("links must survive a failed search")
	}
}

func TestStoreLinksEscapeQuery(t *testing.T) {
	links := StoreLinks("pintura RAL 9005 & esmalte")
	if strings.Contains(links, " & ") {
		t.Error("query not escaped in links")
	}
	if !strings.Contains(links, "pintura+RAL+9005+%26+esmalte") {
		t.Errorf("unexpected escaping:\n%s", links)
	}
}
