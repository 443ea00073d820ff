package model

import "fmt"

// DefaultTemplateID is used until a template is selected
const DefaultTemplateID = "classic"

// Palette is the 4-color scheme of a template
type Palette struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
}

// Template is an immutable visual preset applied to the rendered document
type Template struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Popular     bool    `json:"popular"`
	Colors      Palette `json:"colors"`
}

var templates = []Template{
	{
		ID:          "classic",
		Name:        "Classic Golden",
		Description: "Traditional design with golden borders and elegant decorative elements",
		Popular:     true,
		Colors:      Palette{Primary: "#d4af37", Secondary: "#8b4513", Accent: "#ff6b35", Background: "#fff8dc"},
	},
	{
		ID:          "modern",
		Name:        "Pink Floral",
		Description: "Beautiful pink theme with floral decorative borders",
		Popular:     true,
		Colors:      Palette{Primary: "#e91e63", Secondary: "#ad1457", Accent: "#f06292", Background: "#fce4ec"},
	},
	{
		ID:          "floral",
		Name:        "Purple Elegant",
		Description: "Sophisticated purple design with ornate decorative patterns",
		Colors:      Palette{Primary: "#9c27b0", Secondary: "#6a1b9a", Accent: "#ba68c8", Background: "#f3e5f5"},
	},
	{
		ID:          "royal",
		Name:        "Orange Traditional",
		Description: "Vibrant orange theme with traditional Indian motifs",
		Popular:     true,
		Colors:      Palette{Primary: "#ff9800", Secondary: "#f57c00", Accent: "#ffb74d", Background: "#fff3e0"},
	},
	{
		ID:          "simple",
		Name:        "Blue Classic",
		Description: "Clean blue design with simple elegant borders",
		Colors:      Palette{Primary: "#2196f3", Secondary: "#1976d2", Accent: "#64b5f6", Background: "#e3f2fd"},
	},
	{
		ID:          "artistic",
		Name:        "Green Nature",
		Description: "Fresh green theme with natural decorative elements",
		Colors:      Palette{Primary: "#4caf50", Secondary: "#388e3c", Accent: "#81c784", Background: "#e8f5e8"},
	},
}

// Templates returns a copy of the template catalog
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// LookupTemplate finds a template by ID
func LookupTemplate(id string) (Template, error) {
	for _, t := range templates {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("unknown template: %s", id)
}

// DefaultTemplate returns the template used before any selection
func DefaultTemplate() Template {
	t, _ := LookupTemplate(DefaultTemplateID)
	return t
}
