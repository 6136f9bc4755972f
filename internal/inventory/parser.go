package inventory

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/novasvilla/facelift/internal/logging"
	"github.com/novasvilla/facelift/internal/types"
)

var elemHeaderRe = regexp.MustCompile(`(?i)^[\s#*]*ELEM[_\s]?(\d{1,3})\s*[:.]?\s*(.*)$`)

// accentFold lowercases a field label and strips the accents the model
// may or may not emit, so "Ubicación" and "ubicacion" match the same key.
var accentFold = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	"¿", "", "?", "", "¡", "", "!", "",
)

func foldLabel(label string) string {
	return strings.TrimSpace(accentFold.Replace(strings.ToLower(label)))
}

// storeyQualifiers mark an element as one member of a per-storey group.
// Stripping them yields the group key shared by its siblings.
var storeyQualifiers = []string{
	"planta baja", "planta alta", "planta primera", "planta segunda",
	"primera planta", "segunda planta", "ambas plantas", "todas las plantas",
	"piso superior", "piso inferior",
}

// protectedKeywords are element categories that must never be altered:
// the pool and existing vegetation.
var protectedKeywords = []string{
	"piscina", "arbol", "arboles", "vegetacion", "cesped", "seto",
	"arbusto", "palmera",
}

// ParseInventory decodes the model's numbered element blocks into a
// structured Inventory. Malformed blocks are skipped with a log line and
// their numbers are never reassigned; duplicated numbers keep the first
// occurrence. The raw text is retained for downstream prompts.
func ParseInventory(raw string) *types.Inventory {
	inv := &types.Inventory{Raw: raw}
	seen := make(map[string]bool)

	var current *types.Element
	flush := func() {
		if current == nil {
			return
		}
		if current.Name == "" {
			logging.VisionWarn("skipping inventory block %s: no element name", current.ID)
			current = nil
			return
		}
		inv.Elements = append(inv.Elements, *current)
		current = nil
	}

	for _, line := range strings.Split(raw, "\n") {
		if m := elemHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			num, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			id := fmt.Sprintf("ELEM_%02d", num)
			if seen[id] {
				logging.VisionWarn("duplicate inventory id %s, keeping first occurrence", id)
				continue
			}
			seen[id] = true
			name := strings.Trim(m[2], "*_:. \t")
			current = &types.Element{
				ID:        id,
				Name:      name,
				Group:     detectGroup(name),
				Protected: detectProtected(name),
			}
			continue
		}
		if current == nil {
			continue
		}
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), "*_")
		switch key := foldLabel(strings.Trim(label, " -*#")); {
		case strings.HasPrefix(key, "ubicacion"):
			current.Location = value
		case strings.HasPrefix(key, "material") || key == "sustrato":
			current.Substrate = value
		case strings.HasPrefix(key, "color"):
			current.Condition = value
		case key == "estado":
			current.State = value
		case strings.HasPrefix(key, "superficie"):
			current.Area = value
		case strings.HasPrefix(key, "exposicion"):
			current.Exposure = value
		case strings.HasPrefix(key, "problema"):
			current.Problem = value
		case strings.HasPrefix(key, "merece cambio"):
			current.ChangeWorth, current.ChangeNote = parseChangeWorth(value)
		case strings.HasPrefix(key, "preparacion"):
			current.Preparation = value
		}
	}
	flush()

	return inv
}

// parseChangeWorth splits "SÍ - explanation" / "NO - reason" into the
// flag and its justification.
func parseChangeWorth(value string) (bool, string) {
	folded := foldLabel(value)
	worth := strings.HasPrefix(folded, "si")
	note := value
	for _, sep := range []string{" - ", " — ", ": ", ", "} {
		if _, rest, ok := strings.Cut(value, sep); ok {
			note = strings.TrimSpace(rest)
			break
		}
	}
	return worth, note
}

// detectGroup derives the repeated-structural-unit key for per-storey
// elements: the element name with its storey qualifier removed. Elements
// without a qualifier are ungrouped.
func detectGroup(name string) string {
	folded := foldLabel(name)
	for _, q := range storeyQualifiers {
		if idx := strings.Index(folded, q); idx >= 0 {
			group := strings.TrimSpace(folded[:idx] + folded[idx+len(q):])
			group = strings.Trim(group, " -,()")
			if group != "" {
				return group
			}
		}
	}
	return ""
}

func detectProtected(name string) bool {
	folded := foldLabel(name)
	for _, kw := range protectedKeywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}
