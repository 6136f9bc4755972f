package design

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/novasvilla/facelift/internal/logging"
	"github.com/novasvilla/facelift/internal/types"
)

var (
	altHeaderRe  = regexp.MustCompile(`(?i)^[#\s*]*ALTERNATIVA\s+([A-Z0-9])\b\s*[:.]?\s*(.*)$`)
	treatLineRe  = regexp.MustCompile(`(?i)^\s*[-*]?\s*\**(ELEM[_\s]?\d{1,3})\**\s*[:.]\s*(.*)$`)
	ralRe        = regexp.MustCompile(`(?i)RAL\s?\d{3,4}\b[^;,.]*`)
	elemDigitsRe = regexp.MustCompile(`(?i)ELEM[_\s]?(\d{1,3})`)
)

// accentFold mirrors the inventory parser's label folding.
var accentFold = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	"¿", "", "?", "", "¡", "", "!", "",
)

func fold(s string) string {
	return strings.TrimSpace(accentFold.Replace(strings.ToLower(s)))
}

// canonicalID normalizes "ELEM 3" / "elem_03" to the inventory's
// zero-padded form.
func canonicalID(s string) string {
	m := elemDigitsRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return ""
	}
	return fmt.Sprintf("ELEM_%02d", n)
}

type section int

const (
	sectNone section = iota
	sectChange
	sectKeep
	sectAdd
)

// sectionFor classifies a line as a section header, or sectNone.
func sectionFor(line string) (section, bool) {
	key := fold(strings.Trim(line, " *#-:"))
	switch {
	case strings.HasPrefix(key, "cambiar"):
		return sectChange, true
	case strings.HasPrefix(key, "mantener"):
		return sectKeep, true
	case strings.HasPrefix(key, "anadir") || strings.HasPrefix(key, "adicionales"):
		return sectAdd, true
	}
	return sectNone, false
}

// parseChangeValue decodes "color=...; acabado=...; proceso=a | b | c".
// Without the key=value grammar it falls back to pulling the RAL color
// out of free text and keeping the remainder as the finish description.
func parseChangeValue(value string) types.Treatment {
	t := types.Treatment{Kind: types.TreatChange}
	hasKV := false
	for _, pair := range strings.Split(value, ";") {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		hasKV = true
		val = strings.TrimSpace(val)
		switch fold(key) {
		case "color":
			t.Color = val
		case "acabado":
			t.Finish = val
		case "proceso":
			for _, step := range strings.Split(val, "|") {
				if step = strings.TrimSpace(step); step != "" {
					t.Process = append(t.Process, step)
				}
			}
		}
	}
	if !hasKV {
		if m := ralRe.FindString(value); m != "" {
			t.Color = strings.TrimSpace(m)
			t.Finish = strings.TrimSpace(strings.Replace(value, m, "", 1))
			t.Finish = strings.Trim(t.Finish, " ,;.")
		} else {
			t.Color = strings.TrimSpace(value)
		}
	}
	return t
}

// parseAdditionLine decodes "- categoría: descripción".
func parseAdditionLine(line string) (types.Addition, bool) {
	body := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*"))
	if body == "" {
		return types.Addition{}, false
	}
	cat, desc, ok := strings.Cut(body, ":")
	if !ok {
		return types.Addition{Category: "otro", Description: body}, true
	}
	return types.Addition{
		Category:    fold(strings.Trim(cat, " *_")),
		Description: strings.TrimSpace(desc),
	}, true
}

// applyTreatmentLines runs the shared section scanner over a text
// fragment, populating treatments and additions. Returns how many
// treatment lines matched.
func applyTreatmentLines(text string, treatments map[string]types.Treatment, additions *[]types.Addition) int {
	sect := sectNone
	matched := 0
	for _, line := range strings.Split(text, "\n") {
		if s, ok := sectionFor(line); ok {
			sect = s
			continue
		}
		switch sect {
		case sectChange, sectKeep:
			m := treatLineRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			id := canonicalID(m[1])
			if id == "" {
				continue
			}
			value := strings.TrimSpace(m[2])
			if sect == sectChange {
				treatments[id] = parseChangeValue(value)
			} else {
				treatments[id] = types.Treatment{Kind: types.TreatKeep, Current: value}
			}
			matched++
		case sectAdd:
			if add, ok := parseAdditionLine(line); ok {
				*additions = append(*additions, add)
			}
		}
	}
	if matched > 0 {
		return matched
	}

	// No section headers at all. Loose pass: classify every element line
	// by its value, keep-phrases first.
	for _, line := range strings.Split(text, "\n") {
		m := treatLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id := canonicalID(m[1])
		if id == "" {
			continue
		}
		value := strings.TrimSpace(m[2])
		if strings.HasPrefix(fold(value), "mantener") {
			treatments[id] = types.Treatment{Kind: types.TreatKeep, Current: value}
		} else {
			treatments[id] = parseChangeValue(value)
		}
		matched++
	}
	return matched
}

// ParseAlternatives splits the proposal response into per-alternative
// specifications. Alternatives with no decodable treatment lines are
// dropped with a warning; normalization fills structural gaps later.
func ParseAlternatives(raw string) []*types.Specification {
	lines := strings.Split(raw, "\n")

	type segment struct {
		name  string
		start int
		end   int
	}
	var segments []segment
	for i, line := range lines {
		if m := altHeaderRe.FindStringSubmatch(line); m != nil {
			if len(segments) > 0 {
				segments[len(segments)-1].end = i
			}
			segments = append(segments, segment{
				name:  strings.Trim(m[2], "*_ "),
				start: i,
				end:   len(lines),
			})
		}
	}

	var specs []*types.Specification
	for _, seg := range segments {
		body := strings.Join(lines[seg.start:seg.end], "\n")
		spec := &types.Specification{
			Name:       seg.name,
			Treatments: make(map[string]types.Treatment),
			Version:    1,
			Raw:        body,
		}
		for _, line := range lines[seg.start:seg.end] {
			if key, val, ok := strings.Cut(line, ":"); ok && strings.HasPrefix(fold(strings.Trim(key, " *#")), "concepto") {
				spec.Concept = strings.TrimSpace(val)
				break
			}
		}
		if applyTreatmentLines(body, spec.Treatments, &spec.Additions) == 0 {
			logging.DesignWarn("alternative %q has no decodable treatments, dropping", seg.name)
			continue
		}
		specs = append(specs, spec)
	}
	return specs
}

// Delta is the parsed refinement response: only the elements the
// feedback touched, plus any additions and an optional renaming.
type Delta struct {
	Name      string
	Concept   string
	Updates   map[string]types.Treatment
	Additions []types.Addition
}

// ParseDelta decodes a refinement response.
func ParseDelta(raw string) *Delta {
	d := &Delta{Updates: make(map[string]types.Treatment)}
	for _, line := range strings.Split(raw, "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch fold(strings.Trim(key, " *#")) {
		case "nombre":
			d.Name = strings.Trim(val, "* ")
		case "resumen":
			d.Concept = strings.TrimSpace(val)
		}
	}
	applyTreatmentLines(raw, d.Updates, &d.Additions)
	return d
}
