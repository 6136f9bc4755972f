// Package products looks up real home-improvement products for the
// shopping list. Web search results are best-effort; the store search
// links are templated and always valid, so a failed search degrades to
// links-only output instead of an error.
package products

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/novasvilla/facelift/internal/logging"
	"github.com/novasvilla/facelift/internal/types"
)

// storeSearches are the Spanish home-improvement stores a query links
// to. Order is the display order.
var storeSearches = []struct {
	Name     string
	Template string
}{
	{"Leroy Merlin", "https://www.leroymerlin.es/buscador?query={q}"},
	{"ManoMano", "https://www.manomano.es/busqueda/{q}"},
	{"Bricomart", "https://www.bricomart.es/catalogsearch/result/?q={q}"},
	{"Amazon ES", "https://www.amazon.es/s?k={q}"},
}

// Finder answers product queries with grounded web results plus store
// search links.
type Finder struct {
	search types.SearchClient
}

func NewFinder(search types.SearchClient) *Finder {
	return &Finder{search: search}
}

func searchPrompt(query string) string {
	return fmt.Sprintf(`Search for this specific product in Spanish home improvement stores: %s

Find and return:
1. Exact product name and brand
2. Price in EUR (current, from a real store listing)
3. Product code/SKU/reference if available
4. The store where you found it (Leroy Merlin, ManoMano, Bricomart, Amazon)
5. Two alternatives at different price points (cheaper and premium)

Search specifically on leroymerlin.es, manomano.es, bricomart.es, amazon.es.
Be specific: provide REAL product names and REAL prices you find on the web.
IMPORTANT: If you cannot find a specific product or price, say so clearly.
Do NOT invent product names, SKUs, or prices. Only report what you actually find.`, query)
}

// Search returns a markdown block for one product query: grounded
// search findings followed by the guaranteed-valid store search links.
// Never returns an error.
func (f *Finder) Search(ctx context.Context, query string) string {
	info, err := f.search.CompleteWithSearch(ctx, searchPrompt(query))
	if err != nil {
		logging.ProductsWarn("search failed for %q: %v", query, err)
		info = fmt.Sprintf("(No se encontraron resultados online: %v)", err)
	} else {
		logging.Products("search for %q returned %d chars", query, len(info))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### 🔍 %s\n\n%s\n\n", query, info)
	b.WriteString("**🔗 Enlaces de búsqueda directa (verificados, siempre funcionan):**\n")
	b.WriteString(StoreLinks(query))
	b.WriteString("\n\n*Precios orientativos. Usa los enlaces de arriba para verificar disponibilidad y precio actual en cada tienda.*")
	return b.String()
}

// StoreLinks renders the templated search links for a query, one
// markdown bullet per store.
func StoreLinks(query string) string {
	encoded := url.QueryEscape(query)
	lines := make([]string, len(storeSearches))
	for i, store := range storeSearches {
		lines[i] = fmt.Sprintf("  - [%s](%s)", store.Name, strings.ReplaceAll(store.Template, "{q}", encoded))
	}
	return strings.Join(lines, "\n")
}
