// Package generate fans out image-edit requests, one per instruction,
// against a shared base image. Failures are captured per alternative and
// never abort sibling requests; the caller can always distinguish "this
// alternative failed" from "the whole batch failed".
package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/novasvilla/facelift/internal/logging"
	"github.com/novasvilla/facelift/internal/storage"
	"github.com/novasvilla/facelift/internal/types"
)

// ErrNoImagePayload aliases the shared sentinel for an edit response
// without an image part.
var ErrNoImagePayload = types.ErrNoImagePayload

// Result is the outcome for one alternative: either an artifact with a
// durable local path (and best-effort remote URL), or a captured error.
type Result struct {
	Label string // positional alternative label: A, B, C, ...
	Path  string
	URL   string // optional, "" when remote storage was unavailable
	Err   error
}

// OK reports whether this alternative produced an artifact.
func (r Result) OK() bool { return r.Err == nil }

// Job carries the naming context for one generation turn. Version is the
// session-scoped generation counter value at the start of the turn; the
// caller advances its counter by the number of instructions afterwards.
type Job struct {
	Session string
	Style   string
	Section string
	Version int
}

// Orchestrator issues concurrent edit requests and persists the results.
type Orchestrator struct {
	editor   types.ImageEditor
	uploader storage.Uploader
	outDir   string
	limit    int
}

func NewOrchestrator(editor types.ImageEditor, uploader storage.Uploader, outDir string) *Orchestrator {
	return &Orchestrator{editor: editor, uploader: uploader, outDir: outDir, limit: 4}
}

// Generate runs one edit request per instruction concurrently against
// the base image. The returned slice is positionally ordered: result i
// belongs to instruction i regardless of completion order. Generate
// itself never returns an error; per-alternative failures are captured
// on their Result.
func (o *Orchestrator) Generate(ctx context.Context, instructions []string, base types.Blob, job Job) []Result {
	results := make([]Result, len(instructions))
	if len(instructions) == 0 {
		return results
	}
	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		for i := range results {
			results[i].Label = label(i)
			results[i].Err = fmt.Errorf("cannot create output dir: %w", err)
		}
		return results
	}

	logging.Generate("fanning out %d edit request(s), session=%s v%d", len(instructions), job.Session, job.Version)

	var g errgroup.Group
	g.SetLimit(o.limit)
	for i, instruction := range instructions {
		g.Go(func() error {
			results[i] = o.generateOne(ctx, instruction, base, job, i)
			return nil
		})
	}
	// workers always return nil; failures live in their result slot
	g.Wait()

	for _, r := range results {
		if r.Err != nil {
			logging.GenerateError("alternative %s failed: %v", r.Label, r.Err)
		}
	}
	return results
}

func (o *Orchestrator) generateOne(ctx context.Context, instruction string, base types.Blob, job Job, idx int) Result {
	res := Result{Label: label(idx)}

	blob, err := o.editor.EditImage(ctx, instruction, base)
	if err != nil {
		res.Err = fmt.Errorf("image edit failed: %w", err)
		return res
	}
	if !blob.IsImage() {
		res.Err = ErrNoImagePayload
		return res
	}

	name := artifactName(job, idx, blob.MIME)
	path := filepath.Join(o.outDir, name)
	if err := os.WriteFile(path, blob.Data, 0o644); err != nil {
		res.Err = fmt.Errorf("failed to persist artifact: %w", err)
		return res
	}
	res.Path = path
	logging.GenerateDebug("alternative %s saved to %s (%d bytes)", res.Label, path, len(blob.Data))

	// best-effort; "" is fine
	res.URL = o.uploader.Upload(ctx, path, "generated/"+job.Session)
	return res
}

func label(i int) string {
	return string(rune('A' + i))
}

var extByMIME = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// artifactName builds a collision-resistant filename: the session-scoped
// version counter orders artifacts within a session, the random suffix
// separates concurrent calls.
func artifactName(job Job, idx int, mime string) string {
	ext, ok := extByMIME[mime]
	if !ok {
		ext = ".png"
	}
	style := slug(job.Style, 12, "moderno")
	section := slug(job.Section, 10, "general")
	session := slug(job.Session, 24, "anon")
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s_%s_%s_v%d_%s%s", session, style, section, job.Version+idx, short, ext)
}

func slug(s string, max int, fallback string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '_'
		}
		return -1
	}, s)
	if s == "" {
		return fallback
	}
	if len(s) > max {
		s = s[:max]
	}
	return s
}
