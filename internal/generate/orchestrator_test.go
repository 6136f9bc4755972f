package generate

import (
	"context"
	"errors"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/novasvilla/facelift/internal/types"
)

// TestMain verifies the fan-out leaks no goroutines. The storage
// dependency's opencensus worker is a process-lifetime goroutine started
// at init, not a leak.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeEditor struct {
	mu    sync.Mutex
	calls []string

	failOn string // instruction substring that triggers an error
	empty  string // instruction substring that yields no image payload
}

func (f *fakeEditor) EditImage(ctx context.Context, instruction string, base types.Blob) (types.Blob, error) {
	f.mu.Lock()
	f.calls = append(f.calls, instruction)
	f.mu.Unlock()

	if f.failOn != "" && strings.Contains(instruction, f.failOn) {
		return types.Blob{}, errors.New("upstream generation error")
	}
	if f.empty != "" && strings.Contains(instruction, f.empty) {
		return types.Blob{}, types.ErrNoImagePayload
	}
	return types.Blob{MIME: "image/png", Data: []byte("generated " + instruction)}, nil
}

type recordingUploader struct {
	mu    sync.Mutex
	paths []string
	url   string
}

func (r *recordingUploader) Upload(ctx context.Context, localPath, folder string) string {
	r.mu.Lock()
	r.paths = append(r.paths, localPath)
	r.mu.Unlock()
	return r.url
}

func (r *recordingUploader) UploadBytes(ctx context.Context, data []byte, filename, folder string) string {
	return r.url
}

func testJob() Job {
	return Job{Session: "user1", Style: "moderno elegante", Section: "fachada", Version: 3}
}

func TestGenerateAllSucceed(t *testing.T) {
	dir := t.TempDir()
	up := &recordingUploader{url: "https://storage.googleapis.com/b/x.png"}
	o := NewOrchestrator(&fakeEditor{}, up, dir)

	base := types.Blob{MIME: "image/jpeg", Data: []byte("photo")}
	results := o.Generate(context.Background(), []string{"uno", "dos", "tres"}, base, testJob())

	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	for i, r := range results {
		if !r.OK() {
			t.Fatalf("result %d failed: %v", i, r.Err)
		}
		if r.Label != string(rune('A'+i)) {
			t.Errorf("result %d label = %q", i, r.Label)
		}
		data, err := os.ReadFile(r.Path)
		if err != nil {
			t.Fatalf("artifact not persisted: %v", err)
		}
		// result i must hold instruction i's artifact, whatever order
		// the concurrent calls completed in
		want := "generated " + []string{"uno", "dos", "tres"}[i]
		if string(data) != want {
			t.Errorf("result %d artifact = %q, want %q", i, data, want)
		}
		if r.URL == "" {
			t.Errorf("result %d missing upload URL", i)
		}
	}
	if len(up.paths) != 3 {
		t.Errorf("uploader called %d times", len(up.paths))
	}
}

func TestGeneratePartialFailure(t *testing.T) {
	dir := t.TempDir()
	o := NewOrchestrator(&fakeEditor{failOn: "dos"}, &recordingUploader{}, dir)

	base := types.Blob{MIME: "image/jpeg", Data: []byte("photo")}
	results := o.Generate(context.Background(), []string{"uno", "dos", "tres"}, base, testJob())

	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if !results[0].OK() || !results[2].OK() {
		t.Errorf("siblings of a failed alternative must succeed: %+v", results)
	}
	if results[1].OK() {
		t.Error("alternative B should have failed")
	}
	if results[1].Label != "B" {
		t.Errorf("failed result label = %q", results[1].Label)
	}
}

func TestGenerateEmptyPayload(t *testing.T) {
	dir := t.TempDir()
	o := NewOrchestrator(&fakeEditor{empty: "dos"}, &recordingUploader{}, dir)

	base := types.Blob{MIME: "image/jpeg", Data: []byte("photo")}
	results := o.Generate(context.Background(), []string{"uno", "dos"}, base, testJob())

	if !errors.Is(results[1].Err, ErrNoImagePayload) {
		t.Errorf("err = %v, want ErrNoImagePayload", results[1].Err)
	}
	if !results[0].OK() {
		t.Errorf("sibling should succeed: %v", results[0].Err)
	}
}

func TestGenerateUploadFailureDoesNotFailResult(t *testing.T) {
	dir := t.TempDir()
	o := NewOrchestrator(&fakeEditor{}, &recordingUploader{url: ""}, dir)

	base := types.Blob{MIME: "image/jpeg", Data: []byte("photo")}
	results := o.Generate(context.Background(), []string{"uno"}, base, testJob())

	if !results[0].OK() {
		t.Fatalf("result failed: %v", results[0].Err)
	}
	if results[0].URL != "" {
		t.Errorf("URL = %q, want empty", results[0].URL)
	}
	if results[0].Path == "" {
		t.Error("local path must still be set")
	}
}

var artifactRe = regexp.MustCompile(`^user1_moderno_eleg_fachada_v\d+_[0-9a-f]{6}\.png$`)

func TestArtifactNaming(t *testing.T) {
	job := testJob()
	name := artifactName(job, 1, "image/png")
	if !artifactRe.MatchString(name) {
		t.Errorf("artifact name %q does not match expected shape", name)
	}
	if !strings.Contains(name, "_v4_") {
		t.Errorf("name %q should carry version base+index = 4", name)
	}

	// random suffix keeps concurrent names apart even at equal versions
	if artifactName(job, 1, "image/png") == artifactName(job, 1, "image/png") {
		t.Error("two artifact names with identical context should differ")
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Moderno Elegante", "moderno_elega"},
		{"", "fallback"},
		{"baño", "bao"},
		{"a b", "a_b"},
	}
	for _, tt := range tests {
		if got := slug(tt.in, 13, "fallback"); got != tt.want {
			t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
