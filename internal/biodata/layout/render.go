package layout

import (
	"strings"
	"time"

	"github.com/a3tai/mcp-biodata/internal/biodata/model"
)

// Render builds the document tree for a record and template. It has no side
// effects and returns equal trees for equal inputs.
func Render(p model.Profile, t model.Template) *Document {
	doc := &Document{
		ID:         DocumentID,
		Width:      PageWidth,
		TemplateID: t.ID,
		Title:      strings.TrimSpace(p.Name()),
		Footer:     FooterText,
		Palette:    t.Colors,
		Style:      ScreenStyle(t.Colors),
		Sections:   []Section{},
	}
	if doc.Title == "" {
		doc.Title = TitlePlaceholder
	}

	if src, ok := p.Photo(); ok {
		doc.Photo = Photo{Source: src}
	} else {
		doc.Photo = Photo{Placeholder: PhotoPlaceholder}
	}

	for _, def := range model.Sections {
		section := Section{ID: def.ID, Title: def.Title, Mandatory: def.Mandatory, Rows: []Row{}}
		for _, f := range model.FieldsIn(def.ID) {
			value := strings.TrimSpace(p.Get(f.Key))
			if value == "" {
				continue
			}
			section.Rows = append(section.Rows, Row{
				Key:       f.Key,
				Label:     f.PreviewLabel,
				Value:     displayValue(f.Key, value),
				FullWidth: f.FullWidth,
			})
		}
		if len(section.Rows) == 0 && !def.Mandatory {
			continue
		}
		doc.Sections = append(doc.Sections, section)
	}

	return doc
}

// RenderLive is Render with the on-screen watermark
func RenderLive(p model.Profile, t model.Template) *Document {
	doc := Render(p, t)
	doc.Watermark = WatermarkText
	return doc
}

func displayValue(key, value string) string {
	if key == model.FieldDateOfBirth {
		if d, err := time.Parse("2006-01-02", value); err == nil {
			return d.Format("02/01/2006")
		}
	}
	return value
}
