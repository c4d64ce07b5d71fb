package session

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Preview is the local display handle for a submitted drawing. PDFs and
// undecodable images keep only their metadata.
type Preview struct {
	Name      string
	MediaType string
	Size      int
	Width     int
	Height    int

	mu  sync.Mutex
	img image.Image
}

// NewPreview decodes f for display. Decoding failures are not errors: the
// preview simply has no raster.
func NewPreview(f File) *Preview {
	p := &Preview{Name: f.Name, MediaType: f.ContentType, Size: len(f.Data)}
	if f.ContentType == "application/pdf" {
		return p
	}
	img, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return p
	}
	p.img = img
	b := img.Bounds()
	p.Width, p.Height = b.Dx(), b.Dy()
	return p
}

// HasRaster reports whether pixel data is still held.
func (p *Preview) HasRaster() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.img != nil
}

// Release drops the decoded pixels.
func (p *Preview) Release() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.img = nil
	p.mu.Unlock()
}

// Thumbnail scales the raster to cols x rows grey levels in [0,255], or
// returns nil when there is no raster.
func (p *Preview) Thumbnail(cols, rows int) *image.Gray {
	if p == nil || cols <= 0 || rows <= 0 {
		return nil
	}
	p.mu.Lock()
	src := p.img
	p.mu.Unlock()
	if src == nil {
		return nil
	}
	dst := image.NewGray(image.Rect(0, 0, cols, rows))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
