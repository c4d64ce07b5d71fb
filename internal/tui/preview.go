package tui

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/jask/scandraw/internal/feature"
	"github.com/jask/scandraw/internal/overlay"
	"github.com/jask/scandraw/internal/session"
)

// ink ramp from light paper to dark strokes
const ramp = " .:-=+*#%@"

// previewPane draws the drawing and the highlighted region. It learns the
// region only through the overlay channel.
type previewPane struct {
	mu     sync.Mutex
	region *feature.Region
	unsub  func()
}

func newPreviewPane(ch *overlay.Channel) *previewPane {
	p := &previewPane{region: ch.Current()}
	p.unsub = ch.Subscribe(p.set)
	return p
}

func (p *previewPane) set(r *feature.Region) {
	p.mu.Lock()
	p.region = r
	p.mu.Unlock()
}

func (p *previewPane) Region() *feature.Region {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.region
}

// Close unsubscribes from the overlay channel.
func (p *previewPane) Close() {
	if p.unsub != nil {
		p.unsub()
	}
}

// Render lays out a cols x rows grid. Without a raster an empty page is
// drawn so the region is still visible.
func (p *previewPane) Render(pv *session.Preview, cols, rows int) string {
	if pv == nil {
		return helpStyle.Render("(no drawing)")
	}
	cells := make([][]byte, rows)
	if th := pv.Thumbnail(cols, rows); th != nil {
		for y := range rows {
			cells[y] = make([]byte, cols)
			for x := range cols {
				g := th.GrayAt(x, y).Y
				cells[y][x] = ramp[(255-int(g))*(len(ramp)-1)/255]
			}
		}
	} else {
		for y := range rows {
			cells[y] = []byte(strings.Repeat(".", cols))
		}
	}

	var hl image.Rectangle
	if r := p.Region(); r != nil {
		hl = r.Scale(cols, rows)
	}

	var b strings.Builder
	for y := range rows {
		row := cells[y]
		if hl.Empty() || y < hl.Min.Y || y >= hl.Max.Y {
			b.Write(row)
		} else {
			b.Write(row[:hl.Min.X])
			b.WriteString(highlightStyle.Render(string(row[hl.Min.X:hl.Max.X])))
			b.Write(row[hl.Max.X:])
		}
		if y < rows-1 {
			b.WriteByte('\n')
		}
	}
	caption := fmt.Sprintf("%s  %s  %s", pv.Name, pv.MediaType, humanSize(pv.Size))
	if pv.Width > 0 {
		caption += fmt.Sprintf("  %dx%d", pv.Width, pv.Height)
	}
	if r := p.Region(); r != nil {
		caption += "  region " + r.String()
	}
	return frameStyle.Render(b.String()) + "\n" + helpStyle.Render(caption)
}

func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
