package biodata

import "github.com/a3tai/mcp-biodata/internal/descriptions"

const usageGuidance = `Biodata MCP Server Usage Guide:

1. CHOOSE A DESIGN:
   - Use 'biodata_list_templates' to see the available templates
   - Use 'biodata_select_template' once to pick one for the session

2. FILL THE RECORD:
   - Use 'biodata_get_record' to see every field key and its current value
   - Use 'biodata_set_field' for each detail; empty values clear a field
   - Dates of birth are entered as YYYY-MM-DD and shown as DD/MM/YYYY
   - Changes are autosaved as a draft

3. ADD A PHOTO (optional):
   - Use 'biodata_set_photo' with a file path or inline image data (JPEG, PNG, WebP)
   - Use 'biodata_crop_photo' to frame it, 'biodata_remove_photo' to drop it

4. REVIEW AND EXPORT:
   - Use 'biodata_preview' to check which sections will appear
   - Use 'biodata_export' to write the PDF (A4 or letter, portrait or landscape)
   - Use 'biodata_export_stats' to list saved exports

5. START OVER:
   - Use 'biodata_clear' only when the user asks to discard everything`

// availableTools returns the list of available tools
func availableTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        "biodata_list_templates",
			Description: descriptions.GetToolDescription("biodata_list_templates"),
			Usage:       "Use this tool to show the available designs and their colors.",
			Parameters:  "none",
		},
		{
			Name:        "biodata_select_template",
			Description: descriptions.GetToolDescription("biodata_select_template"),
			Usage:       "Use this tool once per session to choose the document design.",
			Parameters:  "template_id (required): ID from biodata_list_templates",
		},
		{
			Name:        "biodata_get_record",
			Description: descriptions.GetToolDescription("biodata_get_record"),
			Usage:       "Use this tool to read the current record and discover field keys.",
			Parameters:  "none",
		},
		{
			Name:        "biodata_set_field",
			Description: descriptions.GetToolDescription("biodata_set_field"),
			Usage:       "Use this tool whenever the user provides a detail.",
			Parameters:  "field (required): field key; value (required): text, empty to clear",
		},
		{
			Name:        "biodata_clear",
			Description: descriptions.GetToolDescription("biodata_clear"),
			Usage:       "Use this tool only when the user asks to start over.",
			Parameters:  "none",
		},
		{
			Name:        "biodata_set_photo",
			Description: descriptions.GetToolDescription("biodata_set_photo"),
			Usage:       "Use this tool to attach a profile photo.",
			Parameters:  "path (optional): image file; data_url (optional): inline image data. One is required.",
		},
		{
			Name:        "biodata_crop_photo",
			Description: descriptions.GetToolDescription("biodata_crop_photo"),
			Usage:       "Use this tool to frame the current photo.",
			Parameters: "x, y, width, height (required): region; display_width, display_height (optional); " +
				"output_width, output_height (optional, default 300x400); quality (optional, default 0.9)",
		},
		{
			Name:        "biodata_remove_photo",
			Description: descriptions.GetToolDescription("biodata_remove_photo"),
			Usage:       "Use this tool to drop the photo.",
			Parameters:  "none",
		},
		{
			Name:        "biodata_preview",
			Description: descriptions.GetToolDescription("biodata_preview"),
			Usage:       "Use this tool to review the document before exporting.",
			Parameters:  "none",
		},
		{
			Name:        "biodata_export",
			Description: descriptions.GetToolDescription("biodata_export"),
			Usage:       "Use this tool to produce the PDF file.",
			Parameters: "format (optional): a4|letter; orientation (optional): portrait|landscape; " +
				"scale (optional); quality (optional, 0-1]; layout (optional): auto|fit; filename (optional)",
		},
		{
			Name:        "biodata_export_stats",
			Description: descriptions.GetToolDescription("biodata_export_stats"),
			Usage:       "Use this tool to list exported files and session counters.",
			Parameters:  "none",
		},
		{
			Name:        "biodata_server_info",
			Description: descriptions.GetToolDescription("biodata_server_info"),
			Usage:       "Use this tool to get server capabilities and defaults.",
			Parameters:  "none",
		},
	}
}
