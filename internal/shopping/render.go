package shopping

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	renderPadding    = 24
	renderLineHeight = 20
	renderMinWidth   = 320
)

var (
	renderBackground = color.NRGBA{R: 255, G: 250, B: 240, A: 255}
	renderInk        = color.NRGBA{R: 40, G: 40, B: 40, A: 255}
	renderAccent     = color.NRGBA{R: 251, G: 114, B: 153, A: 255}
)

// RenderOptions controls the downloadable shopping list image.
type RenderOptions struct {
	Title string
	// Width in pixels. Zero fits the longest line.
	Width int
	// Font draws the text. Nil uses a built-in face that only covers Latin-1,
	// so names in other scripts come out as blank boxes.
	Font *Font
}

type renderLine struct {
	text   string
	header bool
}

// Lines returns the list as text lines: a header per category followed by
// one line per ingredient.
func (c Content) Lines() []string {
	var out []string
	for _, l := range contentLines(c) {
		out = append(out, l.text)
	}
	return out
}

func contentLines(c Content) []renderLine {
	var lines []renderLine
	for i, g := range c.Groups {
		if len(g.Ingredients) == 0 {
			continue
		}
		if i > 0 && len(lines) > 0 {
			lines = append(lines, renderLine{})
		}
		lines = append(lines, renderLine{text: fmt.Sprintf("%s (%d)", g.Category.Label(), len(g.Ingredients)), header: true})
		for _, ing := range g.Ingredients {
			text := "  - " + ing.Name
			if ing.Quantity != "" {
				text += "  " + ing.Quantity
			}
			lines = append(lines, renderLine{text: text})
		}
	}
	return lines
}

// Render draws content on a canvas and writes it to w as PNG.
func Render(w io.Writer, content Content, opts RenderOptions) error {
	lines := contentLines(content)
	if opts.Title != "" {
		lines = append([]renderLine{{text: opts.Title, header: true}, {}}, lines...)
	}
	if len(lines) == 0 {
		lines = []renderLine{{text: "(empty)"}}
	}

	var face font.Face = basicfont.Face7x13
	if opts.Font != nil {
		face = opts.Font.face(renderFontSize, basicfont.Face7x13)
	}

	width := opts.Width
	if width <= 0 {
		longest := 0
		for _, l := range lines {
			if n := font.MeasureString(face, l.text).Ceil(); n > longest {
				longest = n
			}
		}
		width = longest + 2*renderPadding
	}
	if width < renderMinWidth {
		width = renderMinWidth
	}
	height := 2*renderPadding + len(lines)*renderLineHeight

	canvas := imaging.New(width, height, renderBackground)
	d := &font.Drawer{
		Dst:  canvas,
		Face: face,
	}
	for i, l := range lines {
		if l.text == "" {
			continue
		}
		d.Src = image.NewUniform(renderInk)
		if l.header {
			d.Src = image.NewUniform(renderAccent)
		}
		d.Dot = fixed.P(renderPadding, renderPadding+(i+1)*renderLineHeight-6)
		d.DrawString(l.text)
	}

	if err := imaging.Encode(w, canvas, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode shopping list image: %w", err)
	}
	return nil
}
