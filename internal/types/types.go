// Package types holds the domain records shared across the copilot's
// components. Keeping them here avoids import cycles between the analysis,
// design, and generation packages.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Element is one inventoried physical surface or object in an analyzed space.
type Element struct {
	ID          string `json:"id"`       // stable "ELEM_NN" identifier, never renumbered
	Name        string `json:"name"`     // e.g. "stucco walls, ground floor"
	Location    string `json:"location"` // ground floor / upper floor / roof / perimeter / garden
	Substrate   string `json:"substrate"`
	Condition   string `json:"condition"`  // current color and state description
	State       string `json:"state"`      // good / worn / dated / needs treatment
	Area        string `json:"area"`       // estimated m², free text
	Exposure    string `json:"exposure"`   // exterior / interior / sheltered
	Problem     string `json:"problem"`    // aesthetic problem, or "none"
	ChangeWorth bool   `json:"change_worth"`
	ChangeNote  string `json:"change_note"` // justification either way
	Preparation string `json:"preparation"` // required prep steps for the substrate
	Group       string `json:"group,omitempty"`     // repeated structural unit key, e.g. "stucco walls"
	Protected   bool   `json:"protected,omitempty"` // pool, vegetation, ancillary structures
}

// Inventory is the complete numbered element list for one image set.
// It is created once per analysis session and immutable thereafter.
type Inventory struct {
	Elements []Element `json:"elements"`
	Raw      string    `json:"raw,omitempty"` // original model text, kept for prompts
}

// ElementByID returns the element with the given identifier.
func (inv *Inventory) ElementByID(id string) (Element, bool) {
	for _, e := range inv.Elements {
		if e.ID == id {
			return e, true
		}
	}
	return Element{}, false
}

// IDs returns all element identifiers in inventory order.
func (inv *Inventory) IDs() []string {
	ids := make([]string, len(inv.Elements))
	for i, e := range inv.Elements {
		ids[i] = e.ID
	}
	return ids
}

// Groups returns element IDs keyed by structural group, inventory order
// preserved within each group. Ungrouped elements are omitted.
func (inv *Inventory) Groups() map[string][]string {
	groups := make(map[string][]string)
	for _, e := range inv.Elements {
		if e.Group == "" {
			continue
		}
		groups[e.Group] = append(groups[e.Group], e.ID)
	}
	return groups
}

// TreatmentKind tags a treatment as a change or an explicit keep.
type TreatmentKind string

const (
	TreatChange TreatmentKind = "change"
	TreatKeep   TreatmentKind = "keep"
)

// Treatment is the decision for one element: repaint/refinish it, or keep
// it exactly as it is. Keep treatments carry a description of the current
// state so the edit instruction can pin the element down.
type Treatment struct {
	Kind    TreatmentKind `json:"kind"`
	Color   string        `json:"color,omitempty"`  // target color, usually a RAL code
	Finish  string        `json:"finish,omitempty"` // matte, satin, mineral silicate paint, ...
	Process []string      `json:"process,omitempty"`
	Current string        `json:"current,omitempty"` // keep: description of what stays
}

// Equal reports exact equivalence, including process step order.
// Inheritance across refinement rounds is checked with this.
func (t Treatment) Equal(o Treatment) bool {
	if t.Kind != o.Kind || t.Color != o.Color || t.Finish != o.Finish || t.Current != o.Current {
		return false
	}
	if len(t.Process) != len(o.Process) {
		return false
	}
	for i := range t.Process {
		if t.Process[i] != o.Process[i] {
			return false
		}
	}
	return true
}

// Addition is a new element introduced by a specification (lighting,
// planting, pathways) that was not part of the original inventory.
type Addition struct {
	Category    string `json:"category"` // lighting / planting / pathway / gravel / other
	Description string `json:"description"`
}

// Specification is the cumulative design specification: exactly one
// treatment per inventoried element, plus additions. Superseded, never
// mutated, on each refinement round.
type Specification struct {
	Name       string               `json:"name"`    // creative alternative name
	Concept    string               `json:"concept"` // palette strategy summary
	Treatments map[string]Treatment `json:"treatments"`
	Additions  []Addition           `json:"additions,omitempty"`
	Version    int                  `json:"version"`
	Raw        string               `json:"raw,omitempty"` // model narrative for the user report
}

// Clone returns a deep copy. Refinement merges start from a clone of the
// prior specification so inherited treatments stay byte-identical.
func (s *Specification) Clone() *Specification {
	out := &Specification{
		Name:       s.Name,
		Concept:    s.Concept,
		Treatments: make(map[string]Treatment, len(s.Treatments)),
		Version:    s.Version,
		Raw:        s.Raw,
	}
	for id, t := range s.Treatments {
		if len(t.Process) > 0 {
			t.Process = append([]string(nil), t.Process...)
		}
		out.Treatments[id] = t
	}
	if len(s.Additions) > 0 {
		out.Additions = append([]Addition(nil), s.Additions...)
	}
	return out
}

// SortedIDs returns the treated element identifiers in stable order.
func (s *Specification) SortedIDs() []string {
	ids := make([]string, 0, len(s.Treatments))
	for id := range s.Treatments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Summary renders a compact one-treatment-per-line digest used in prompts
// and in the hierarchical style memory.
func (s *Specification) Summary() string {
	var b strings.Builder
	if s.Name != "" {
		fmt.Fprintf(&b, "%s: %s\n", s.Name, s.Concept)
	}
	for _, id := range s.SortedIDs() {
		t := s.Treatments[id]
		switch t.Kind {
		case TreatChange:
			fmt.Fprintf(&b, "%s: CHANGE %s %s\n", id, t.Color, t.Finish)
		default:
			fmt.Fprintf(&b, "%s: KEEP %s\n", id, t.Current)
		}
	}
	for _, a := range s.Additions {
		fmt.Fprintf(&b, "ADD %s: %s\n", a.Category, a.Description)
	}
	return b.String()
}

// JudgeFailureScore is the sentinel consistency score reported when the
// judgment call itself failed and the verifier failed open.
const JudgeFailureScore = -1

// ConsistencyReport is the verifier's judgment of one generated image
// against the preservation policy.
type ConsistencyReport struct {
	Passed bool     `json:"passed"`
	Score  int      `json:"score"` // 0-100, or JudgeFailureScore
	Issues []string `json:"issues"`
}
