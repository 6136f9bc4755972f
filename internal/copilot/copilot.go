// Package copilot wires the full renovation pipeline: inventory from
// photos, design alternatives, edit-instruction compilation, concurrent
// image generation, consistency checks, and the hierarchical style memory.
package copilot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/novasvilla/facelift/internal/compile"
	"github.com/novasvilla/facelift/internal/design"
	"github.com/novasvilla/facelift/internal/generate"
	"github.com/novasvilla/facelift/internal/inventory"
	"github.com/novasvilla/facelift/internal/logging"
	"github.com/novasvilla/facelift/internal/memory"
	"github.com/novasvilla/facelift/internal/products"
	"github.com/novasvilla/facelift/internal/session"
	"github.com/novasvilla/facelift/internal/storage"
	"github.com/novasvilla/facelift/internal/types"
	"github.com/novasvilla/facelift/internal/verify"
)

// ErrNoAnalysis is returned when a refinement is requested before any
// photos have been analyzed in the session.
var ErrNoAnalysis = errors.New("no hay un análisis previo en esta sesión; sube fotos primero")

// Copilot runs the conversational renovation pipeline for one workspace.
type Copilot struct {
	inventory *inventory.Builder
	design    *design.Engine
	compiler  *compile.Compiler
	generator *generate.Orchestrator
	verifier  *verify.Verifier
	memory    *memory.Propagator
	sessions  *session.Manager
	finder    *products.Finder

	uploadsDir string
}

// New assembles a Copilot from a capability client and the supporting
// stores. outDir receives generated images, uploadsDir the verbatim
// copies of analyzed photos.
func New(client types.CapabilityClient, mem *memory.Propagator, sessions *session.Manager, uploader storage.Uploader, outDir, uploadsDir string) *Copilot {
	return &Copilot{
		inventory:  inventory.NewBuilder(client),
		design:     design.NewEngine(client),
		compiler:   compile.NewCompiler(client),
		generator:  generate.NewOrchestrator(client, uploader, outDir),
		verifier:   verify.NewVerifier(client),
		memory:     mem,
		sessions:   sessions,
		finder:     products.NewFinder(client),
		uploadsDir: uploadsDir,
	}
}

// WithAlternatives overrides how many design alternatives an analysis
// proposes and renders.
func (c *Copilot) WithAlternatives(n int) *Copilot {
	c.design.WithAlternatives(n)
	return c
}

// AnalyzeRequest starts or restarts a session from a set of photos.
type AnalyzeRequest struct {
	Key         string // session key
	Project     string // optional style-memory project
	Section     string // optional project section, e.g. "fachada-principal"
	SectionType string // e.g. "fachada", "salon", "jardin"
	Style       string // desired style, free text
	ImagePaths  []string
}

// AnalyzeAndPropose inventories the photos, proposes design alternatives,
// renders each one as an edited image and verifies structural consistency.
// It returns a markdown report for the user.
func (c *Copilot) AnalyzeAndPropose(ctx context.Context, req AnalyzeRequest) (string, error) {
	if len(req.ImagePaths) == 0 {
		return "", inventory.ErrNoImages
	}

	var report string
	_, err := c.sessions.Update(req.Key, func(st *session.State) error {
		if req.Project != "" {
			st.Project = req.Project
		}
		if req.Section != "" {
			st.Section = req.Section
		}
		if req.SectionType != "" {
			st.SectionType = req.SectionType
		}
		if req.Style != "" {
			st.Style = req.Style
		}

		stored, err := c.storeUploads(req.Key, st, req.ImagePaths)
		if err != nil {
			return err
		}
		st.UploadedImages = stored

		memCtx := c.memoryContext(ctx, st)

		inv, err := c.inventory.Build(ctx, stored)
		if err != nil {
			return err
		}
		logging.Session("session %s: %d elements inventoried", req.Key, len(inv.Elements))

		specs, err := c.design.Propose(ctx, inv, memCtx)
		if err != nil {
			return err
		}

		instructions := c.compiler.Compile(ctx, specs, inv)

		base, err := types.LoadBlob(stored[0])
		if err != nil {
			return fmt.Errorf("reading base image: %w", err)
		}

		results := c.generator.Generate(ctx, instructions, base, generate.Job{
			Session: req.Key,
			Style:   st.Style,
			Section: st.Section,
			Version: st.GenVersion,
		})
		st.GenVersion += len(instructions)

		reports := c.verifyResults(ctx, base, results)

		st.Inventory = inv
		st.Alternatives = derefSpecs(specs)
		st.CurrentSpec = nil
		st.Phase = session.PhaseProposed

		c.saveMemory(ctx, st, specs[0])

		report = renderProposalReport(inv, specs, results, reports)
		return nil
	})
	if err != nil {
		return "", err
	}
	return report, nil
}

// RefineRequest applies conversational feedback to the session's design.
type RefineRequest struct {
	Key      string
	Feedback string
	// Choice optionally names the alternative the feedback applies to
	// ("A", "B", "C"). Empty continues from the last refined design, or
	// the first alternative when none has been chosen yet.
	Choice string
}

// RefineAndGenerate merges the feedback into the current design
// specification, regenerates the image and re-verifies it.
func (c *Copilot) RefineAndGenerate(ctx context.Context, req RefineRequest) (string, error) {
	var report string
	_, err := c.sessions.Update(req.Key, func(st *session.State) error {
		if st.Inventory == nil || len(st.UploadedImages) == 0 {
			return ErrNoAnalysis
		}

		prior, err := c.priorSpec(st, req.Choice)
		if err != nil {
			return err
		}

		memCtx := c.memoryContext(ctx, st)

		spec, err := c.design.Refine(ctx, st.Inventory, prior, req.Feedback, memCtx)
		if err != nil {
			return err
		}
		spec.Version = prior.Version + 1

		instructions := c.compiler.Compile(ctx, []*types.Specification{spec}, st.Inventory)

		base, err := types.LoadBlob(st.UploadedImages[0])
		if err != nil {
			return fmt.Errorf("reading base image: %w", err)
		}

		results := c.generator.Generate(ctx, instructions, base, generate.Job{
			Session: req.Key,
			Style:   st.Style,
			Section: st.Section,
			Version: st.GenVersion,
		})
		st.GenVersion += len(instructions)

		reports := c.verifyResults(ctx, base, results)

		st.CurrentSpec = spec
		st.Phase = session.PhaseRefining

		c.saveMemory(ctx, st, spec)

		report = renderRefinementReport(spec, results, reports)
		return nil
	})
	if err != nil {
		return "", err
	}
	return report, nil
}

// FindProducts searches for purchasable materials matching the query and
// appends direct store search links. Never fails: search errors degrade
// to links only.
func (c *Copilot) FindProducts(ctx context.Context, query string) string {
	return c.finder.Search(ctx, query)
}

// priorSpec resolves which specification a refinement starts from.
func (c *Copilot) priorSpec(st *session.State, choice string) (*types.Specification, error) {
	if choice != "" {
		idx := int(strings.ToUpper(choice)[0] - 'A')
		if idx < 0 || idx >= len(st.Alternatives) {
			return nil, fmt.Errorf("no existe la alternativa %q", choice)
		}
		spec := st.Alternatives[idx]
		return &spec, nil
	}
	if st.CurrentSpec != nil {
		return st.CurrentSpec, nil
	}
	if len(st.Alternatives) == 0 {
		return nil, ErrNoAnalysis
	}
	spec := st.Alternatives[0]
	return &spec, nil
}

// storeUploads copies the user's photos into the uploads directory so the
// session can be resumed after the originals move.
func (c *Copilot) storeUploads(key string, st *session.State, paths []string) ([]string, error) {
	if err := os.MkdirAll(c.uploadsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}
	st.UploadVersion++

	stored := make([]string, 0, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading upload %s: %w", p, err)
		}
		name := fmt.Sprintf("%s_v%d_%d%s", key, st.UploadVersion, i, filepath.Ext(p))
		dst := filepath.Join(c.uploadsDir, name)
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return nil, fmt.Errorf("storing upload %s: %w", name, err)
		}
		stored = append(stored, dst)
	}
	return stored, nil
}

func (c *Copilot) memoryContext(ctx context.Context, st *session.State) string {
	if c.memory == nil || st.Project == "" {
		return ""
	}
	return c.memory.Context(ctx, st.Project, st.Section)
}

// saveMemory records the session's latest design in the hierarchical
// style memory. Best effort: memory failures never block the pipeline.
func (c *Copilot) saveMemory(ctx context.Context, st *session.State, spec *types.Specification) {
	if c.memory == nil || st.Project == "" {
		return
	}
	if st.Style != "" {
		c.memory.SaveProject(ctx, st.Project, memory.ProjectMemory{Style: st.Style})
	}
	if st.Section != "" {
		c.memory.SaveSection(ctx, st.Project, st.Section, memory.SectionMemory{
			Type:         st.SectionType,
			StyleSummary: st.Style,
			LastSpec:     spec.Summary(),
		})
	}
}

func (c *Copilot) verifyResults(ctx context.Context, base types.Blob, results []generate.Result) []types.ConsistencyReport {
	reports := make([]types.ConsistencyReport, len(results))
	for i, r := range results {
		if !r.OK() {
			continue
		}
		gen, err := types.LoadBlob(r.Path)
		if err != nil {
			logging.VerifyWarn("could not reload %s for verification: %v", r.Path, err)
			reports[i] = types.ConsistencyReport{Passed: true, Score: types.JudgeFailureScore, Issues: []string{fmt.Sprintf("Check error: %v", err)}}
			continue
		}
		reports[i] = c.verifier.Verify(ctx, base, gen)
	}
	return reports
}

func derefSpecs(specs []*types.Specification) []types.Specification {
	out := make([]types.Specification, len(specs))
	for i, s := range specs {
		out[i] = *s
	}
	return out
}
