package capture

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/a3tai/mcp-biodata/internal/biodata/layout"
)

// Metrics of the virtual page, in CSS pixels
const (
	pagePadding    = 40
	frameWidth     = 6
	titleSize      = 30
	photoWidth     = 150
	photoHeight    = 190
	sectionBarH    = 34
	sectionSize    = 16
	sectionGap     = 18
	textSize       = 14
	lineHeight     = 22
	rowGap         = 6
	labelColumn    = 220
	footerSize     = 12
	watermarkSize  = 96
	placeholderTxt = 16
)

// Rasterizer draws documents into RGBA buffers
type Rasterizer struct {
	regular *opentype.Font
	bold    *opentype.Font
}

// NewRasterizer parses the bundled Go fonts
func NewRasterizer() (*Rasterizer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing bold font: %w", err)
	}
	return &Rasterizer{regular: regular, bold: bold}, nil
}

// faceSet holds the faces for one rasterization at one scale
type faceSet struct {
	title, section, label, value, footer, watermark, placeholder font.Face
}

func (f *faceSet) close() {
	for _, face := range []font.Face{f.title, f.section, f.label, f.value, f.footer, f.watermark, f.placeholder} {
		if face != nil {
			face.Close()
		}
	}
}

func (r *Rasterizer) faces(scale float64) (*faceSet, error) {
	newFace := func(fnt *opentype.Font, size float64) (font.Face, error) {
		return opentype.NewFace(fnt, &opentype.FaceOptions{
			Size:    size * scale,
			DPI:     72,
			Hinting: font.HintingNone,
		})
	}

	fs := &faceSet{}
	var err error
	specs := []struct {
		dst  *font.Face
		fnt  *opentype.Font
		size float64
	}{
		{&fs.title, r.bold, titleSize},
		{&fs.section, r.bold, sectionSize},
		{&fs.label, r.bold, textSize},
		{&fs.value, r.regular, textSize},
		{&fs.footer, r.regular, footerSize},
		{&fs.watermark, r.bold, watermarkSize},
		{&fs.placeholder, r.regular, placeholderTxt},
	}
	for _, s := range specs {
		if *s.dst, err = newFace(s.fnt, s.size); err != nil {
			fs.close()
			return nil, fmt.Errorf("creating font face: %w", err)
		}
	}
	return fs, nil
}

type opKind int

const (
	opFill opKind = iota
	opText
	opImage
)

// drawOp is one primitive in device pixels
type drawOp struct {
	kind  opKind
	rect  image.Rectangle
	color color.Color
	face  font.Face
	text  string
	dot   fixed.Point26_6
	img   image.Image
}

// Rasterize draws doc at scale device pixels per CSS pixel. images maps
// source to decoded image; a missing photo is drawn as the placeholder.
func (r *Rasterizer) Rasterize(doc *layout.Document, images map[string]image.Image, scale float64) (*image.RGBA, error) {
	fs, err := r.faces(scale)
	if err != nil {
		return nil, err
	}
	defer fs.close()

	ops, width, height := r.layoutOps(doc, images, fs, scale)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for _, op := range ops {
		switch op.kind {
		case opFill:
			draw.Draw(img, op.rect, image.NewUniform(op.color), image.Point{}, draw.Over)
		case opText:
			d := &font.Drawer{Dst: img, Src: image.NewUniform(op.color), Face: op.face, Dot: op.dot}
			d.DrawString(op.text)
		case opImage:
			draw.Draw(img, op.rect, op.img, op.img.Bounds().Min, draw.Over)
		}
	}
	return img, nil
}

// layoutOps lays doc out top to bottom and returns the draw list and the
// page size in device pixels
func (r *Rasterizer) layoutOps(doc *layout.Document, images map[string]image.Image, fs *faceSet, scale float64) ([]drawOp, int, int) {
	px := func(v float64) int { return int(math.Round(v * scale)) }

	width := px(float64(doc.Width))
	style := doc.Style
	primary := parseHex(doc.Palette.Primary, color.RGBA{0xd4, 0xaf, 0x37, 0xff})
	accent := parseHex(doc.Palette.Accent, primary)
	background := color.Color(color.White)
	if style.ExactColors {
		background = parseHex(doc.Palette.Background, color.RGBA{0xff, 0xff, 0xff, 0xff})
	}

	var ops []drawOp
	fill := func(rect image.Rectangle, c color.Color) {
		ops = append(ops, drawOp{kind: opFill, rect: rect, color: c})
	}
	text := func(face font.Face, s string, x, baseline int, c color.Color) {
		ops = append(ops, drawOp{kind: opText, face: face, text: s, dot: fixed.P(x, baseline), color: c})
	}
	centered := func(face font.Face, s string, y int, c color.Color) int {
		m := face.Metrics()
		w := font.MeasureString(face, s).Ceil()
		text(face, s, (width-w)/2, y+m.Ascent.Ceil(), c)
		return m.Height.Ceil()
	}

	pad := px(pagePadding)
	y := pad

	// header
	y += centered(fs.title, doc.Title, y, parseHex(style.NameColor, primary))
	y += px(12)

	photoRect := image.Rect((width-px(photoWidth))/2, y, (width+px(photoWidth))/2, y+px(photoHeight))
	fill(photoRect.Inset(-px(3)), accent)
	if img, ok := images[doc.Photo.Source]; ok && doc.Photo.HasImage() {
		fitted := imaging.Fill(img, photoRect.Dx(), photoRect.Dy(), imaging.Center, imaging.Lanczos)
		ops = append(ops, drawOp{kind: opImage, rect: photoRect, img: fitted})
	} else {
		fill(photoRect, color.RGBA{0xf5, 0xf5, 0xf5, 0xff})
		label := doc.Photo.Placeholder
		if label == "" {
			label = layout.PhotoPlaceholder
		}
		m := fs.placeholder.Metrics()
		w := font.MeasureString(fs.placeholder, label).Ceil()
		text(fs.placeholder, label, photoRect.Min.X+(photoRect.Dx()-w)/2,
			photoRect.Min.Y+(photoRect.Dy()+m.Ascent.Ceil())/2, color.RGBA{0x99, 0x99, 0x99, 0xff})
	}
	y = photoRect.Max.Y + px(sectionGap)

	labelColor := parseHex(style.LabelColor, color.Black)
	valueColor := parseHex(style.ValueColor, color.Black)
	titleColor := parseHex(style.SectionTitleColor, color.White)
	lh := px(lineHeight)
	valueX := pad + px(labelColumn)
	valueWidth := width - pad - valueX

	for _, section := range doc.Sections {
		bar := image.Rect(pad, y, width-pad, y+px(sectionBarH))
		fill(bar, primary)
		sm := fs.section.Metrics()
		text(fs.section, section.Title, pad+px(12), bar.Min.Y+(bar.Dy()+sm.Ascent.Ceil()-sm.Descent.Ceil())/2, titleColor)
		y = bar.Max.Y + px(10)

		for _, row := range section.Rows {
			asc := fs.value.Metrics().Ascent.Ceil()
			text(fs.label, row.Label+":", pad+px(8), y+asc, labelColor)

			var lines []string
			if row.FullWidth {
				y += lh
				lines = wrapText(fs.value, row.Value, width-2*pad-px(8))
				for _, line := range lines {
					text(fs.value, line, pad+px(8), y+asc, valueColor)
					y += lh
				}
			} else {
				lines = wrapText(fs.value, row.Value, valueWidth)
				for _, line := range lines {
					text(fs.value, line, valueX, y+asc, valueColor)
					y += lh
				}
			}
			y += px(rowGap)
		}
		y += px(sectionGap)
	}

	// footer
	fill(image.Rect(pad, y, width-pad, y+px(2)), accent)
	y += px(10)
	y += centered(fs.footer, doc.Footer, y, primary)
	y += pad

	height := y

	// background and frame go underneath everything else
	base := []drawOp{
		{kind: opFill, rect: image.Rect(0, 0, width, height), color: background},
	}
	fw := px(frameWidth)
	for _, edge := range []image.Rectangle{
		image.Rect(0, 0, width, fw),
		image.Rect(0, height-fw, width, height),
		image.Rect(0, 0, fw, height),
		image.Rect(width-fw, 0, width, height),
	} {
		base = append(base, drawOp{kind: opFill, rect: edge, color: primary})
	}
	ops = append(base, ops...)

	if doc.WatermarkVisible() {
		m := fs.watermark.Metrics()
		w := font.MeasureString(fs.watermark, doc.Watermark).Ceil()
		ops = append(ops, drawOp{kind: opText, face: fs.watermark, text: doc.Watermark,
			dot: fixed.P((width-w)/2, height/2+m.Ascent.Ceil()/2), color: color.NRGBA{0, 0, 0, 0x1a}})
	}

	return ops, width, height
}

// wrapText breaks s into lines no wider than maxWidth pixels. Words longer
// than a line are kept whole.
func wrapText(face font.Face, s string, maxWidth int) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if font.MeasureString(face, candidate).Ceil() > maxWidth {
				lines = append(lines, line)
				line = w
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}

// parseHex parses #rgb or #rrggbb, returning fallback when malformed
func parseHex(s string, fallback color.Color) color.Color {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return fallback
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallback
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
