package layout

import "github.com/a3tai/mcp-biodata/internal/biodata/model"

// DocumentID is the handle the capture engine resolves
const DocumentID = "biodata-content"

// PageWidth is the virtual page width in CSS pixels (A4 at 96 dpi)
const PageWidth = 794

// Placeholder texts
const (
	TitlePlaceholder = "Your Name"
	PhotoPlaceholder = "Photo"
	WatermarkText    = "PREVIEW"
	FooterText       = "instantbiodata.com"
)

// Style holds the color overrides a document is drawn with
type Style struct {
	HideWatermark     bool   `json:"hide_watermark"`
	ExactColors       bool   `json:"exact_colors"`
	LabelColor        string `json:"label_color"`
	ValueColor        string `json:"value_color"`
	SectionTitleColor string `json:"section_title_color"`
	NameColor         string `json:"name_color"`
}

// ScreenStyle is the on-screen style for a palette
func ScreenStyle(p model.Palette) Style {
	return Style{
		LabelColor:        p.Secondary,
		ValueColor:        "#333333",
		SectionTitleColor: "#ffffff",
		NameColor:         p.Secondary,
	}
}

// ExportStyle is applied for the duration of a capture
func ExportStyle() Style {
	return Style{
		HideWatermark:     true,
		ExactColors:       true,
		LabelColor:        "#000000",
		ValueColor:        "#1a1a1a",
		SectionTitleColor: "#ffffff",
		NameColor:         "#8b4513",
	}
}

// Photo is the photo region of the document header
type Photo struct {
	Source      string `json:"source,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// HasImage reports whether the region shows an image rather than the placeholder
func (p Photo) HasImage() bool {
	return p.Source != ""
}

// Row is one labelled value
type Row struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Value     string `json:"value"`
	FullWidth bool   `json:"full_width,omitempty"`
}

// Section is a titled group of rows
type Section struct {
	ID        model.SectionID `json:"id"`
	Title     string          `json:"title"`
	Mandatory bool            `json:"mandatory"`
	Rows      []Row           `json:"rows"`
}

// Document is the rendered biodata tree
type Document struct {
	ID         string        `json:"id"`
	Width      int           `json:"width"`
	TemplateID string        `json:"template_id"`
	Title      string        `json:"title"`
	Photo      Photo         `json:"photo"`
	Sections   []Section     `json:"sections"`
	Footer     string        `json:"footer"`
	Watermark  string        `json:"watermark,omitempty"`
	Palette    model.Palette `json:"palette"`
	Style      Style         `json:"style"`
}

// Section returns the section with the given ID
func (d *Document) Section(id model.SectionID) (Section, bool) {
	for _, s := range d.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// WatermarkVisible reports whether the watermark is drawn
func (d *Document) WatermarkVisible() bool {
	return d.Watermark != "" && !d.Style.HideWatermark
}

// ImageSources lists every image the document references
func (d *Document) ImageSources() []string {
	if d.Photo.HasImage() {
		return []string{d.Photo.Source}
	}
	return nil
}

// Clone returns a deep copy
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.Sections != nil {
		c.Sections = make([]Section, len(d.Sections))
		for i, s := range d.Sections {
			if s.Rows != nil {
				s.Rows = append(make([]Row, 0, len(s.Rows)), s.Rows...)
			}
			c.Sections[i] = s
		}
	}
	return &c
}
