package texture

import (
	"fmt"
	"log"
	"math"

	"voxrender/internal/signal"
	"voxrender/pkg/display"
	"voxrender/pkg/volume"
)

// SelectionTexture is a single-channel 3D texture tracking a
// selection mask. Its storage exactly matches the selection's shape
// (never resampled), and block-wise edits map to partial sub-region
// GPU updates, so after any sequence of edits the GPU contents equal
// what a full refresh would produce.
type SelectionTexture struct {
	backend Backend
	sel     *volume.Selection
	tag     string

	id        TextureID
	destroyed bool
	handle    signal.Handle
}

// selectionSpec is the fixed storage format of a selection mask:
// single channel, 8-bit, scaled from [0, 1] to [0, 255].
var selectionSpec = Spec{Channels: 1, ElemType: U8, Normalise: true, Scale: 1, Offset: 0}

// NewSelectionTexture allocates a texture matching sel's shape,
// performs the initial full upload and subscribes to edits.
func NewSelectionTexture(backend Backend, sel *volume.Selection, tag string) (*SelectionTexture, error) {
	t := &SelectionTexture{
		backend: backend,
		sel:     sel,
		tag:     tag,
		id:      backend.GenTexture(),
	}

	log.Printf("created selection texture %d for %q", t.id, tag)

	shape := sel.Shape()
	// Nearest filtering and a transparent border: the mask must show
	// hard voxel boundaries and fade out past the volume edge.
	backend.SetSampler3D(t.id, display.Nearest, ClampToBorder)
	if err := backend.Alloc3D(t.id, selectionSpec, shape); err != nil {
		backend.DeleteTexture(t.id)
		return nil, fmt.Errorf("allocating selection texture %q: %w", tag, err)
	}

	t.handle = sel.Subscribe(t.selectionChanged)

	if err := t.Refresh(nil, [3]int{}, [3]int{}); err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

// ID returns the GPU texture handle.
func (t *SelectionTexture) ID() TextureID { return t.id }

// Tag returns the cache tag the texture was created under.
func (t *SelectionTexture) Tag() string { return t.tag }

// Refresh updates the GPU texture. With a non-nil block, only the
// sub-region of the given shape at the given offset is updated;
// texels outside the block are untouched. With a nil block the whole
// selection is re-uploaded at offset (0,0,0). Fractional mask values
// are scaled from [0, 1] to [0, 255] before upload.
func (t *SelectionTexture) Refresh(block []float64, blockShape, offset [3]int) error {
	if t.destroyed {
		return fmt.Errorf("%w: refresh of destroyed selection texture %q", ErrInvalidOperation, t.tag)
	}

	if block == nil {
		block = t.sel.Data()
		blockShape = t.sel.Shape()
		offset = [3]int{}
	}

	data := make([]uint8, len(block))
	for i, v := range block {
		data[i] = uint8(math.Round(v * 255))
	}

	if err := t.backend.UploadSub3D(t.id, offset, blockShape, data, ColumnMajor); err != nil {
		return fmt.Errorf("updating selection texture %q: %w", t.tag, err)
	}
	return nil
}

// selectionChanged maps an edit notification to a partial refresh, or
// a full refresh when the selection was reset in bulk.
func (t *SelectionTexture) selectionChanged(ch volume.Change) {
	var err error
	if ch.Old == nil || ch.New == nil {
		err = t.Refresh(nil, [3]int{}, [3]int{})
	} else {
		err = t.Refresh(ch.New, ch.BlockShape, ch.Offset)
	}
	if err != nil {
		log.Printf("selection texture %q refresh failed: %v", t.tag, err)
	}
}

// Destroy detaches the edit listener and releases the GPU texture.
// Calling Destroy again is a no-op.
func (t *SelectionTexture) Destroy() {
	if t.destroyed {
		return
	}
	t.sel.Unsubscribe(t.handle)
	log.Printf("deleting selection texture %d for %q", t.id, t.tag)
	t.backend.DeleteTexture(t.id)
	t.id = 0
	t.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (t *SelectionTexture) Destroyed() bool { return t.destroyed }
