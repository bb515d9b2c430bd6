package shopping

import (
	"fmt"
	"image"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// renderFontSize is the em size, in pixels, used for loaded fonts.
const renderFontSize = 14

// Font is a parsed TrueType or OpenType font for shopping list images.
// Load one that covers the scripts ingredient names are written in, such as
// Noto Sans CJK for Chinese names.
type Font struct {
	sfnt *sfnt.Font
}

// LoadFont reads a .ttf, .otf or .ttc file. Collections use their first font.
func LoadFont(path string) (*Font, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font %s: %w", path, err)
	}
	f, err := ParseFont(src)
	if err != nil {
		return nil, fmt.Errorf("failed to load font %s: %w", path, err)
	}
	return f, nil
}

// ParseFont parses font data in memory.
func ParseFont(src []byte) (*Font, error) {
	f, err := sfnt.Parse(src)
	if err == nil {
		return &Font{sfnt: f}, nil
	}
	c, cerr := sfnt.ParseCollection(src)
	if cerr != nil {
		return nil, err
	}
	f, err = c.Font(0)
	if err != nil {
		return nil, err
	}
	return &Font{sfnt: f}, nil
}

// face returns a font.Face drawing f at size pixels per em. Runes f lacks
// are drawn with fallback. A face is not safe for concurrent use.
func (f *Font) face(size int, fallback font.Face) font.Face {
	return &sfntFace{font: f.sfnt, ppem: fixed.I(size), fallback: fallback}
}

type sfntFace struct {
	font     *sfnt.Font
	buf      sfnt.Buffer
	ppem     fixed.Int26_6
	fallback font.Face
}

func (f *sfntFace) index(r rune) (sfnt.GlyphIndex, bool) {
	idx, err := f.font.GlyphIndex(&f.buf, r)
	if err != nil || idx == 0 {
		return 0, false
	}
	return idx, true
}

func (f *sfntFace) Close() error { return nil }

func (f *sfntFace) Glyph(dot fixed.Point26_6, r rune) (dr image.Rectangle, mask image.Image, maskp image.Point, advance fixed.Int26_6, ok bool) {
	idx, found := f.index(r)
	if !found {
		return f.fallback.Glyph(dot, r)
	}
	advance, err := f.font.GlyphAdvance(&f.buf, idx, f.ppem, font.HintingNone)
	if err != nil {
		return image.Rectangle{}, nil, image.Point{}, 0, false
	}
	segments, err := f.font.LoadGlyph(&f.buf, idx, f.ppem, nil)
	if err != nil {
		return image.Rectangle{}, nil, image.Point{}, 0, false
	}

	bounds, empty := segmentBounds(segments)
	if empty {
		return image.Rectangle{}, image.NewAlpha(image.Rectangle{}), image.Point{}, advance, true
	}
	dr = image.Rect(
		(dot.X + bounds.Min.X).Floor(), (dot.Y + bounds.Min.Y).Floor(),
		(dot.X + bounds.Max.X).Ceil(), (dot.Y + bounds.Max.Y).Ceil(),
	)

	// Segment coordinates are relative to the dot; shift them into the mask.
	ox := float32(dot.X)/64 - float32(dr.Min.X)
	oy := float32(dot.Y)/64 - float32(dr.Min.Y)
	pt := func(p fixed.Point26_6) (float32, float32) {
		return ox + float32(p.X)/64, oy + float32(p.Y)/64
	}

	z := vector.NewRasterizer(dr.Dx(), dr.Dy())
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			z.MoveTo(pt(seg.Args[0]))
		case sfnt.SegmentOpLineTo:
			z.LineTo(pt(seg.Args[0]))
		case sfnt.SegmentOpQuadTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			z.QuadTo(bx, by, cx, cy)
		case sfnt.SegmentOpCubeTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			dx, dy := pt(seg.Args[2])
			z.CubeTo(bx, by, cx, cy, dx, dy)
		}
	}
	alpha := image.NewAlpha(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	z.Draw(alpha, alpha.Bounds(), image.Opaque, image.Point{})
	return dr, alpha, image.Point{}, advance, true
}

func (f *sfntFace) GlyphBounds(r rune) (fixed.Rectangle26_6, fixed.Int26_6, bool) {
	idx, found := f.index(r)
	if !found {
		return f.fallback.GlyphBounds(r)
	}
	advance, err := f.font.GlyphAdvance(&f.buf, idx, f.ppem, font.HintingNone)
	if err != nil {
		return fixed.Rectangle26_6{}, 0, false
	}
	segments, err := f.font.LoadGlyph(&f.buf, idx, f.ppem, nil)
	if err != nil {
		return fixed.Rectangle26_6{}, 0, false
	}
	bounds, _ := segmentBounds(segments)
	return bounds, advance, true
}

func (f *sfntFace) GlyphAdvance(r rune) (fixed.Int26_6, bool) {
	idx, found := f.index(r)
	if !found {
		return f.fallback.GlyphAdvance(r)
	}
	advance, err := f.font.GlyphAdvance(&f.buf, idx, f.ppem, font.HintingNone)
	if err != nil {
		return 0, false
	}
	return advance, true
}

func (f *sfntFace) Kern(r0, r1 rune) fixed.Int26_6 {
	i0, ok0 := f.index(r0)
	i1, ok1 := f.index(r1)
	if !ok0 || !ok1 {
		return 0
	}
	k, err := f.font.Kern(&f.buf, i0, i1, f.ppem, font.HintingNone)
	if err != nil {
		return 0
	}
	return k
}

func (f *sfntFace) Metrics() font.Metrics {
	m, err := f.font.Metrics(&f.buf, f.ppem, font.HintingNone)
	if err != nil {
		return f.fallback.Metrics()
	}
	return m
}

// segmentBounds returns the box holding every point of a glyph outline.
// Control points bound their curves, so the box may be slightly loose.
func segmentBounds(segments []sfnt.Segment) (fixed.Rectangle26_6, bool) {
	var b fixed.Rectangle26_6
	empty := true
	for _, seg := range segments {
		n := 1
		switch seg.Op {
		case sfnt.SegmentOpQuadTo:
			n = 2
		case sfnt.SegmentOpCubeTo:
			n = 3
		}
		for _, p := range seg.Args[:n] {
			if empty {
				b = fixed.Rectangle26_6{Min: p, Max: p}
				empty = false
				continue
			}
			b.Min.X, b.Max.X = min(b.Min.X, p.X), max(b.Max.X, p.X)
			b.Min.Y, b.Max.Y = min(b.Min.Y, p.Y), max(b.Max.Y, p.Y)
		}
	}
	return b, empty || b.Min.X == b.Max.X || b.Min.Y == b.Max.Y
}
