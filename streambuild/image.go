package streambuild

import (
	"fmt"

	"goa.design/convorun/message"
)

// ImageBuilder wraps a single complete message.Image so image content can
// be handled through the same Builder interface as the incremental
// variants, even though providers never stream image bytes as deltas.
type ImageBuilder struct {
	img message.Image
}

// NewImageBuilder opens a builder already holding its complete image.
func NewImageBuilder(img message.Image) *ImageBuilder {
	return &ImageBuilder{img: img}
}

// Accepts reports whether m is the same already-built image (matched by
// GenerationID and MessageOrderIdx); images have no incremental form.
func (b *ImageBuilder) Accepts(m message.Message) bool {
	img, ok := m.(*message.Image)
	if !ok {
		return false
	}
	return sameItem(b.img.Common, img.Common)
}

// Feed replaces the held image if it belongs to the same item.
func (b *ImageBuilder) Feed(m message.Message) error {
	img, ok := m.(*message.Image)
	if !ok {
		return fmt.Errorf("streambuild: ImageBuilder.Feed got %T, want *message.Image", m)
	}
	if !sameItem(b.img.Common, img.Common) {
		return fmt.Errorf("streambuild: image for generation %q order %d does not belong to open item (generation %q order %d)",
			img.GenerationID, img.MessageOrderIdx, b.img.GenerationID, b.img.MessageOrderIdx)
	}
	b.img = *img
	return nil
}

// Build implements Builder.
func (b *ImageBuilder) Build() message.Message {
	out := b.img
	return &out
}
