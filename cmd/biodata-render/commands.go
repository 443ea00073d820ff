package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-biodata/internal/biodata"
	"github.com/a3tai/mcp-biodata/internal/biodata/model"
	"github.com/a3tai/mcp-biodata/internal/biodata/storage"
)

var rootCmd = &cobra.Command{
	Use:           "biodata-render",
	Short:         "Render biodata records to PDF",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a biodata record file as PDF",
	Long: `Export a biodata record file as PDF.

The record is a YAML mapping of field keys to values, for example:

  name: Priya Sharma
  dateOfBirth: 1995-03-14
  occupation: Software Engineer
  phone: +91 98765 43210

Examples:
  biodata-render export --record priya.yaml
  biodata-render export --record priya.yaml --photo me.jpg --template royal
  biodata-render export --record priya.yaml --format letter --orientation landscape --layout fit --out ./pdfs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		recordPath, _ := cmd.Flags().GetString("record")
		photoPath, _ := cmd.Flags().GetString("photo")
		templateID, _ := cmd.Flags().GetString("template")
		outDir, _ := cmd.Flags().GetString("out")
		verbose, _ := cmd.Flags().GetBool("verbose")

		opts := model.DefaultOptions()
		opts.Scale, _ = cmd.Flags().GetFloat64("scale")
		opts.Format, _ = cmd.Flags().GetString("format")
		opts.Orientation, _ = cmd.Flags().GetString("orientation")
		opts.Layout, _ = cmd.Flags().GetString("layout")
		opts.Quality, _ = cmd.Flags().GetFloat64("quality")
		opts.Filename, _ = cmd.Flags().GetString("filename")

		logger := log.New(io.Discard, "", 0)
		if verbose {
			logger = log.New(cmd.ErrOrStderr(), "[biodata-render] ", log.LstdFlags)
		}

		res, err := renderRecord(cmd.Context(), renderRequest{
			RecordPath: recordPath,
			PhotoPath:  photoPath,
			TemplateID: templateID,
			OutDir:     outDir,
			Options:    opts,
			Fs:         afero.NewOsFs(),
			Logger:     logger,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d pages, %d bytes)\n", res.Path, res.Pages, res.Size)
		return nil
	},
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List available templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, t := range model.Templates() {
			popular := ""
			if t.Popular {
				popular = " *"
			}
			fmt.Fprintf(out, "%-10s %s%s\n", t.ID, t.Name, popular)
			fmt.Fprintf(out, "           %s\n", t.Description)
		}
		return nil
	},
}

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List record field keys by section",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, section := range model.Sections {
			fmt.Fprintf(out, "%s\n", section.Title)
			for _, f := range model.FieldsIn(section.ID) {
				fmt.Fprintf(out, "  %-18s %s\n", f.Key, f.Label)
			}
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("record", "", "YAML record file (required)")
	exportCmd.Flags().String("photo", "", "profile photo (JPEG, PNG or WebP)")
	exportCmd.Flags().String("template", model.DefaultTemplateID, "template ID")
	exportCmd.Flags().Float64("scale", model.DefaultScale, "capture scale")
	exportCmd.Flags().String("format", model.FormatA4, "page format: a4 or letter")
	exportCmd.Flags().String("orientation", model.OrientationPortrait, "portrait or landscape")
	exportCmd.Flags().String("layout", model.LayoutAuto, "auto splits across pages, fit keeps one page")
	exportCmd.Flags().Float64("quality", model.DefaultQuality, "image quality in (0, 1]")
	exportCmd.Flags().String("filename", "", "output file name (default derived from the name field)")
	exportCmd.Flags().String("out", ".", "output directory")
	exportCmd.Flags().Bool("verbose", false, "log pipeline progress to stderr")
	_ = exportCmd.MarkFlagRequired("record")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(fieldsCmd)
}

type renderRequest struct {
	RecordPath string
	PhotoPath  string
	TemplateID string
	OutDir     string
	Options    model.Options
	Fs         afero.Fs
	Logger     *log.Logger
}

func renderRequestDefaults(req *renderRequest) {
	if req.Fs == nil {
		req.Fs = afero.NewOsFs()
	}
	if req.Logger == nil {
		req.Logger = log.New(io.Discard, "", 0)
	}
	if req.OutDir == "" {
		req.OutDir = "."
	}
}

// renderRecord runs one record through a throwaway session and exports it
func renderRecord(ctx context.Context, req renderRequest) (*biodata.ExportResult, error) {
	renderRequestDefaults(&req)
	if ctx == nil {
		ctx = context.Background()
	}

	fields, err := loadRecord(req.Fs, req.RecordPath)
	if err != nil {
		return nil, err
	}
	if err := req.Fs.MkdirAll(req.OutDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	svc, err := biodata.NewService(ctx, biodata.Options{
		Backend:    storage.NewMemoryBackend(),
		Fs:         req.Fs,
		OutputDir:  req.OutDir,
		Defaults:   req.Options,
		Logger:     req.Logger,
		ServerName: "biodata-render",
		Version:    version,
	})
	if err != nil {
		return nil, err
	}
	defer svc.Close(ctx)

	if _, err := svc.SetFields(fields); err != nil {
		return nil, fmt.Errorf("%s: %w", req.RecordPath, err)
	}
	if req.TemplateID != "" {
		if _, err := svc.SelectTemplate(ctx, req.TemplateID); err != nil {
			return nil, err
		}
	}
	if req.PhotoPath != "" {
		if err := svc.SetPhotoFile(ctx, req.PhotoPath); err != nil {
			return nil, fmt.Errorf("photo %s: %w", req.PhotoPath, err)
		}
	}

	res := svc.Export(ctx, req.Options)
	if !res.Success {
		return nil, fmt.Errorf("failed to generate PDF: %s", res.Error)
	}
	return &res, nil
}

// loadRecord reads a YAML mapping of field keys to scalar values. Unknown
// keys are rejected so typos are not silently dropped.
func loadRecord(fs afero.Fs, path string) (map[string]string, error) {
	if path == "" {
		return nil, fmt.Errorf("record file is required")
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing record %s: %w", path, err)
	}

	fields := make(map[string]string, len(raw))
	var unknown []string
	for key, value := range raw {
		if _, ok := model.LookupField(key); !ok {
			unknown = append(unknown, key)
			continue
		}
		switch v := value.(type) {
		case nil:
			fields[key] = ""
		case string:
			fields[key] = v
		case map[string]any, []any:
			return nil, fmt.Errorf("field %s must be a single value", key)
		default:
			fields[key] = fmt.Sprint(v)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown fields in %s: %s", path, strings.Join(unknown, ", "))
	}
	return fields, nil
}
