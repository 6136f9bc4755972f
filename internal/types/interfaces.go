package types

import (
	"context"
	"errors"
)

// ErrNoImagePayload reports an image-edit response that contained no
// image part. A missing payload is a first-class generation failure,
// never a silent no-op.
var ErrNoImagePayload = errors.New("model response contained no image payload")

// Blob is a binary payload with its MIME type, typically an image.
type Blob struct {
	MIME string
	Data []byte
}

// IsImage reports whether the blob carries an image payload.
func (b Blob) IsImage() bool {
	return len(b.Data) > 0 && len(b.MIME) >= 6 && b.MIME[:6] == "image/"
}

// TextClient defines the interface for plain text completions.
type TextClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// VisionClient describes one or more images against a structured instruction.
type VisionClient interface {
	DescribeImages(ctx context.Context, prompt string, images []Blob) (string, error)
}

// ImageEditor applies a textual edit instruction to a base image and
// returns the edited image. A response with no image payload is an error.
type ImageEditor interface {
	EditImage(ctx context.Context, instruction string, base Blob) (Blob, error)
}

// SearchClient runs a completion with web search grounding enabled.
type SearchClient interface {
	CompleteWithSearch(ctx context.Context, prompt string) (string, error)
}

// CapabilityClient bundles every model capability the copilot needs.
// Constructed once at process start and passed to every component, so
// tests can substitute fakes per capability.
type CapabilityClient interface {
	TextClient
	VisionClient
	ImageEditor
	SearchClient
}
