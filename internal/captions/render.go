package captions

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Style describes how caption images are drawn.
type Style struct {
	Width        int
	Height       int
	Padding      int
	FontFile     string
	Color        string
	OutlineColor string
	OutlineWidth int
	Fit          FitOptions
}

// Rendered describes a caption image written to disk.
type Rendered struct {
	Path     string
	FontSize float64
	Fallback bool
}

// Renderer rasterizes phrases into transparent PNGs sized to the caption box.
type Renderer struct {
	style    Style
	font     *opentype.Font
	fallback error
}

// NewRenderer loads the configured font. A missing or unreadable font is not
// an error: the renderer switches to the built-in bitmap face and records why.
func NewRenderer(style Style) *Renderer {
	if style.Width <= 0 {
		style.Width = 1000
	}
	if style.Height <= 0 {
		style.Height = 400
	}
	if style.Fit == (FitOptions{}) {
		style.Fit = DefaultFitOptions()
	}

	r := &Renderer{style: style}
	path := strings.TrimSpace(style.FontFile)
	if path == "" {
		r.fallback = fmt.Errorf("no font file configured")
		return r
	}
	data, err := os.ReadFile(path)
	if err != nil {
		r.fallback = fmt.Errorf("read font: %w", err)
		return r
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		r.fallback = fmt.Errorf("parse font %s: %w", path, err)
		return r
	}
	r.font = parsed
	return r
}

// FallbackReason explains why the default face is in use, or returns nil.
func (r *Renderer) FallbackReason() error {
	return r.fallback
}

// Box returns the caption area used for fitting.
func (r *Renderer) Box() Box {
	return Box{
		Width:   float64(r.style.Width),
		Height:  float64(r.style.Height),
		Padding: float64(r.style.Padding),
	}
}

// Measure implements Measurer using the loaded face.
func (r *Renderer) Measure(text string, size float64) (float64, float64) {
	face, closeFace := r.face(size)
	defer closeFace()
	w, h := measureLines(face, strings.Split(text, "\n"))
	return float64(w), float64(h)
}

// RenderPNG fits text into the caption box and writes it to path.
func (r *Renderer) RenderPNG(text, path string) (Rendered, error) {
	size := FitFont(text, r, r.Box(), r.style.Fit)

	face, closeFace := r.face(size)
	defer closeFace()

	img := image.NewRGBA(image.Rect(0, 0, r.style.Width, r.style.Height))
	lines := strings.Split(text, "\n")
	_, blockH := measureLines(face, lines)
	lineH := face.Metrics().Height.Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	top := (r.style.Height - blockH) / 2

	fill := image.NewUniform(parseColor(r.style.Color, color.White))
	stroke := image.NewUniform(parseColor(r.style.OutlineColor, color.Black))

	for i, line := range lines {
		lineW := font.MeasureString(face, line).Ceil()
		x := (r.style.Width - lineW) / 2
		y := top + i*lineH + ascent

		if r.style.OutlineWidth > 0 {
			ow := r.style.OutlineWidth
			for _, off := range [][2]int{{-ow, 0}, {ow, 0}, {0, -ow}, {0, ow}, {-ow, -ow}, {ow, ow}, {-ow, ow}, {ow, -ow}} {
				drawLine(img, stroke, face, line, x+off[0], y+off[1])
			}
		}
		drawLine(img, fill, face, line, x, y)
	}

	file, err := os.Create(path)
	if err != nil {
		return Rendered{}, fmt.Errorf("create caption image: %w", err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return Rendered{}, fmt.Errorf("encode caption image: %w", err)
	}
	if err := file.Close(); err != nil {
		return Rendered{}, fmt.Errorf("close caption image: %w", err)
	}

	return Rendered{Path: path, FontSize: size, Fallback: r.font == nil}, nil
}

func (r *Renderer) face(size float64) (font.Face, func()) {
	if r.font == nil {
		return basicfont.Face7x13, func() {}
	}
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13, func() {}
	}
	return face, func() { face.Close() }
}

func drawLine(dst draw.Image, src image.Image, face font.Face, text string, x, y int) {
	d := font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func measureLines(face font.Face, lines []string) (int, int) {
	width := 0
	for _, line := range lines {
		if w := font.MeasureString(face, line).Ceil(); w > width {
			width = w
		}
	}
	return width, face.Metrics().Height.Ceil() * len(lines)
}

var namedColors = map[string]color.Color{
	"white":  color.White,
	"black":  color.Black,
	"yellow": color.RGBA{R: 0xff, G: 0xd7, A: 0xff},
	"red":    color.RGBA{R: 0xe5, G: 0x1c, B: 0x23, A: 0xff},
}

// parseColor accepts a few names plus #RRGGBB and #RRGGBBAA.
func parseColor(value string, def color.Color) color.Color {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return def
	}
	if c, ok := namedColors[value]; ok {
		return c
	}
	hex := strings.TrimPrefix(value, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return def
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return def
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}
