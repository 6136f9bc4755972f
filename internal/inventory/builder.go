// Package inventory turns photos of a space into a structured, numbered
// inventory of every visible surface and element. The inventory is built
// once per uploaded image set and is immutable afterwards; refinements
// operate on the design specification, never on the inventory.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/novasvilla/facelift/internal/logging"
	"github.com/novasvilla/facelift/internal/types"
)

// ErrNoImages is returned when analysis is requested without any readable
// image file. Surfaced to the user as a corrective instruction.
var ErrNoImages = errors.New("no valid image available, upload an image first")

// Builder creates element inventories from images via the vision model.
type Builder struct {
	vision types.VisionClient
}

func NewBuilder(vision types.VisionClient) *Builder {
	return &Builder{vision: vision}
}

// Build analyzes one or more photos of the same space and returns the
// union inventory. Several photos go into a single vision call so the
// model reconciles angles instead of producing disjoint inventories.
// Unreadable paths are skipped with a warning; no readable image at all
// is ErrNoImages.
func (b *Builder) Build(ctx context.Context, imagePaths []string) (*types.Inventory, error) {
	var images []types.Blob
	for _, path := range imagePaths {
		blob, err := types.LoadBlob(path)
		if err != nil {
			logging.VisionWarn("skipping unreadable image %s: %v", path, err)
			continue
		}
		images = append(images, blob)
	}
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	prompt := visionPrompt
	if len(images) > 1 {
		prompt += multiImageNote(len(images))
	}

	logging.Vision("building inventory from %d image(s)", len(images))
	raw, err := b.vision.DescribeImages(ctx, prompt, images)
	if err != nil {
		return nil, fmt.Errorf("vision analysis failed: %w", err)
	}

	inv := ParseInventory(raw)
	if len(inv.Elements) == 0 {
		return nil, fmt.Errorf("vision response contained no recognizable elements")
	}
	logging.Vision("inventory complete: %d elements, %d chars raw", len(inv.Elements), len(raw))
	return inv, nil
}
