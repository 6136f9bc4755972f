// Package design generates and refines the cumulative design
// specification: one treatment per inventoried element, evolved across
// conversational turns. Completeness, uniformity across repeated
// structural units, and protected-element rules are enforced here
// structurally, not just requested of the model.
package design

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/novasvilla/facelift/internal/logging"
	"github.com/novasvilla/facelift/internal/types"
)

// ErrNoPriorAnalysis is returned when refinement is requested before any
// image has been analyzed. Refinement is never a cold start.
var ErrNoPriorAnalysis = errors.New("no prior analysis, upload and analyze an image first")

// AlternativeCount is the default number of proposals per analysis.
const AlternativeCount = 3

// Engine proposes and refines design specifications.
type Engine struct {
	text         types.TextClient
	alternatives int
}

func NewEngine(text types.TextClient) *Engine {
	return &Engine{text: text, alternatives: AlternativeCount}
}

// WithAlternatives overrides how many proposals Propose requests.
// Values below one keep the current setting.
func (e *Engine) WithAlternatives(n int) *Engine {
	if n > 0 {
		e.alternatives = n
	}
	return e
}

// Propose generates the configured number of complete specifications for
// a fresh inventory, differing in palette strategy. Upstream model
// failures propagate; structural invariants are enforced on whatever the
// model returned.
func (e *Engine) Propose(ctx context.Context, inv *types.Inventory, memoryContext string) ([]*types.Specification, error) {
	if inv == nil || len(inv.Elements) == 0 {
		return nil, ErrNoPriorAnalysis
	}

	logging.Design("proposing %d alternatives for %d elements", e.alternatives, len(inv.Elements))
	raw, err := e.text.Complete(ctx, proposePrompt(inv.Raw, memoryContext, e.alternatives))
	if err != nil {
		return nil, fmt.Errorf("proposal generation failed: %w", err)
	}

	specs := ParseAlternatives(raw)
	if len(specs) < e.alternatives {
		return nil, fmt.Errorf("expected %d alternatives, model produced %d decodable ones", e.alternatives, len(specs))
	}
	specs = specs[:e.alternatives]
	for _, spec := range specs {
		normalize(spec, inv, nil, nil, false)
	}
	return specs, nil
}

// Refine folds user feedback into the current specification. The model
// is asked only for a delta; every element the feedback does not touch is
// carried over from the prior specification verbatim. The prior
// specification is never mutated.
func (e *Engine) Refine(ctx context.Context, inv *types.Inventory, prior *types.Specification, feedback, memoryContext string) (*types.Specification, error) {
	if inv == nil || len(inv.Elements) == 0 {
		return nil, ErrNoPriorAnalysis
	}

	priorSummary := ""
	priorVersion := 0
	if prior != nil {
		priorSummary = prior.Summary()
		priorVersion = prior.Version
	}

	logging.Design("refining v%d with feedback: %.120s", priorVersion, feedback)
	raw, err := e.text.Complete(ctx, refinePrompt(inv.Raw, priorSummary, feedback, memoryContext))
	if err != nil {
		return nil, fmt.Errorf("refinement generation failed: %w", err)
	}
	delta := ParseDelta(raw)
	if len(delta.Updates) == 0 && len(delta.Additions) == 0 {
		logging.DesignWarn("refinement delta decoded no updates, specification carried unchanged")
	}

	var next *types.Specification
	if prior != nil {
		next = prior.Clone()
	} else {
		next = &types.Specification{Treatments: make(map[string]types.Treatment)}
	}
	next.Version = priorVersion + 1
	next.Raw = raw
	if delta.Name != "" {
		next.Name = delta.Name
	}
	if delta.Concept != "" {
		next.Concept = delta.Concept
	}

	changed := make(map[string]bool, len(delta.Updates))
	for id, t := range delta.Updates {
		next.Treatments[id] = t
		changed[id] = true
	}
	next.Additions = append(next.Additions, delta.Additions...)

	normalize(next, inv, prior, changed, feedbackIsScoped(feedback))
	return next, nil
}

var scopedWordRe = regexp.MustCompile(`\b(solo|solamente|unicamente|exclusivamente|only|just)\b`)

// feedbackIsScoped reports whether the user explicitly limited a change
// to one structural unit, which suppresses group propagation.
func feedbackIsScoped(feedback string) bool {
	return scopedWordRe.MatchString(fold(feedback))
}

// keepDescription pins down an untouched element for the image model.
func keepDescription(e types.Element) string {
	parts := []string{e.Name}
	if e.Substrate != "" {
		parts = append(parts, e.Substrate)
	}
	if e.Condition != "" {
		parts = append(parts, e.Condition)
	}
	return strings.Join(parts, ", ")
}

// normalize enforces the structural invariants on a freshly parsed or
// merged specification, in order:
//  1. drop treatments for identifiers not in the inventory
//  2. protected elements always resolve to Keep
//  3. elements judged not change-worthy stay Keep unless the user's own
//     feedback targeted them
//  4. changes propagate across a repeated structural group, unless the
//     feedback explicitly scoped the change
//  5. every inventory element has exactly one treatment: missing ones
//     inherit from the prior specification, or default to Keep
func normalize(spec *types.Specification, inv *types.Inventory, prior *types.Specification, changed map[string]bool, scoped bool) {
	known := make(map[string]types.Element, len(inv.Elements))
	for _, e := range inv.Elements {
		known[e.ID] = e
	}
	for id := range spec.Treatments {
		if _, ok := known[id]; !ok {
			logging.DesignWarn("dropping treatment for unknown element %s", id)
			delete(spec.Treatments, id)
		}
	}

	for _, e := range inv.Elements {
		t, ok := spec.Treatments[e.ID]
		if !ok {
			continue
		}
		if e.Protected && t.Kind != types.TreatKeep {
			spec.Treatments[e.ID] = types.Treatment{Kind: types.TreatKeep, Current: keepDescription(e)}
			continue
		}
		// Initial proposals clamp not-change-worthy elements to Keep.
		// During refinement untouched treatments are inherited verbatim
		// and user-directed ones win, so no clamp applies.
		if changed == nil && !e.ChangeWorth && t.Kind == types.TreatChange {
			spec.Treatments[e.ID] = types.Treatment{Kind: types.TreatKeep, Current: keepDescription(e)}
		}
	}

	for group, members := range inv.Groups() {
		propagateGroup(spec, known, group, members, changed, scoped)
	}

	for _, e := range inv.Elements {
		if _, ok := spec.Treatments[e.ID]; ok {
			continue
		}
		if prior != nil {
			if pt, ok := prior.Treatments[e.ID]; ok {
				spec.Treatments[e.ID] = cloneTreatment(pt)
				continue
			}
		}
		spec.Treatments[e.ID] = types.Treatment{Kind: types.TreatKeep, Current: keepDescription(e)}
	}
}

// propagateGroup forces identical treatment across the members of one
// repeated structural group. During refinement only treatments the
// feedback changed propagate; during an initial proposal the first
// changed member is canonical.
func propagateGroup(spec *types.Specification, known map[string]types.Element, group string, members []string, changed map[string]bool, scoped bool) {
	var canonical *types.Treatment
	if changed != nil {
		if scoped {
			return
		}
		for _, id := range members {
			if changed[id] {
				t := spec.Treatments[id]
				canonical = &t
				break
			}
		}
	} else {
		for _, id := range members {
			if t, ok := spec.Treatments[id]; ok && t.Kind == types.TreatChange {
				canonical = &t
				break
			}
		}
		if canonical == nil {
			for _, id := range members {
				if t, ok := spec.Treatments[id]; ok {
					canonical = &t
					break
				}
			}
		}
	}
	if canonical == nil {
		return
	}
	for _, id := range members {
		if known[id].Protected {
			continue
		}
		if t, ok := spec.Treatments[id]; ok && t.Equal(*canonical) {
			continue
		}
		logging.DesignDebug("uniformity: propagating %s treatment to %s", group, id)
		spec.Treatments[id] = cloneTreatment(*canonical)
	}
}

func cloneTreatment(t types.Treatment) types.Treatment {
	if len(t.Process) > 0 {
		t.Process = append([]string(nil), t.Process...)
	}
	return t
}
