package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	// Record tools
	ListTemplatesDescription = `List the visual templates a biodata document can be rendered with.

**When to use:** Before selecting a template, or to show the user what styles are available.

**Why it's useful:** Each template carries its 4-color palette (primary, secondary, accent, background) so you can describe the look before committing to one.

**Examples:**
• Show options: "Which biodata designs are available?"
• Pick a popular one: "List templates and choose the most popular golden style"

**Best practices:** A template can be selected once per session, so confirm the choice with the user first.`

	SelectTemplateDescription = `Select the visual template for this session.

**When to use:** Once, after the user has chosen a design from biodata_list_templates.

**Why it's useful:** The template drives the colors of the preview and of every exported PDF.

**Examples:**
• "Use the classic golden template for my biodata"
• "Switch to the blue classic design" (only before any other template was chosen)

**Best practices:** Selecting the same template again is harmless; selecting a different one after a choice is rejected.`

	GetRecordDescription = `Return the current biodata record with every field, including empty ones.

**When to use:** To see what has been filled in so far, or before asking the user for missing details.

**Examples:**
• "What details have I entered so far?"
• "Which family fields are still empty?"

**Best practices:** The photo is reported as present or absent rather than returned as raw image data.`

	SetFieldDescription = `Set one field of the biodata record.

**When to use:** Whenever the user provides a detail such as name, date of birth, occupation or contact information.

**Why it's useful:** Changes are autosaved after a short quiet period, so the draft survives a restart.

**Examples:**
• "My name is Priya Sharma" → field "name"
• "I was born on 1995-03-14" → field "dateOfBirth" (YYYY-MM-DD)
• "I work as a software engineer in Pune" → fields "occupation" and "workLocation"

**Best practices:** Use the exact field keys listed by biodata_get_record. An empty value clears the field.`

	ClearDescription = `Clear the whole biodata record and remove the saved draft.

**When to use:** Only when the user explicitly asks to start over.

**Best practices:** This cannot be undone; the selected template is kept.`

	// Photo tools
	SetPhotoDescription = `Attach a profile photo from a local file or inline image data.

**When to use:** When the user supplies a photo for the biodata.

**Why it's useful:** The image is checked (JPEG, PNG or WebP, at most the configured size) and embedded in the record so exports never depend on external files.

**Examples:**
• "Use ~/Pictures/profile.jpg as my photo"
• Provide a data URL such as "data:image/png;base64,..."

**Best practices:** On any validation or decode failure the previous photo is kept.`

	CropPhotoDescription = `Crop the current photo to a region and resize it for the document.

**When to use:** When the photo needs framing, for example to center the face.

**Examples:**
• Crop a 400x300 display region (x=50, y=20, width=150, height=200) to the default 300x400 output

**Best practices:** Region coordinates are relative to the display size you pass; they are scaled to the image's natural size.`

	RemovePhotoDescription = `Remove the profile photo from the record.

**When to use:** When the user no longer wants a photo; the document shows a placeholder instead.`

	// Document tools
	PreviewDescription = `Render the live preview of the biodata document as structured text.

**When to use:** To review sections and values before exporting.

**Why it's useful:** Shows exactly which sections will appear: Personal and Contact always, other sections only when they have content.

**Best practices:** The preview carries a watermark; exported PDFs do not.`

	ExportDescription = `Export the biodata as a PDF file.

**When to use:** When the user is happy with the preview and wants the document.

**Why it's useful:** Captures the document at high resolution and splits tall content across pages, or fits it onto a single page with layout "fit".

**Examples:**
• "Export my biodata as an A4 PDF"
• "Export on letter paper in landscape at scale 3"

**Common workflows:**
1. Fill record → biodata_preview → biodata_export
2. biodata_export → biodata_export_stats to confirm the saved file

**Best practices:** Only one export runs at a time. Failures are reported in the result instead of aborting the session.`

	ExportStatsDescription = `Summarize exported PDF files and session statistics.

**When to use:** To confirm an export was saved, or to list previous exports.

**Examples:**
• "Where was my PDF saved?"
• "How many pages does my last export have?"`

	ServerInfoDescription = `Get server information, available templates, defaults and usage guidance.

**When to use:** At the start of a session to learn what the server can do.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"biodata_list_templates":  ListTemplatesDescription,
	"biodata_select_template": SelectTemplateDescription,
	"biodata_get_record":      GetRecordDescription,
	"biodata_set_field":       SetFieldDescription,
	"biodata_clear":           ClearDescription,
	"biodata_set_photo":       SetPhotoDescription,
	"biodata_crop_photo":      CropPhotoDescription,
	"biodata_remove_photo":    RemovePhotoDescription,
	"biodata_preview":         PreviewDescription,
	"biodata_export":          ExportDescription,
	"biodata_export_stats":    ExportStatsDescription,
	"biodata_server_info":     ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns all tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
