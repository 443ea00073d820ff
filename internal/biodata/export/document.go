package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/mcp-biodata/internal/biodata/capture"
)

// Metadata is written into the document information dictionary
type Metadata struct {
	Title   string
	Author  string
	Creator string
	Created time.Time
}

// BuildPDF places each planned band of bm on its own page, in order.
// Quality 1 embeds lossless PNG slices, anything lower JPEG at that quality.
func BuildPDF(bm *capture.Bitmap, plan Plan, g Geometry, quality float64, meta Metadata) ([]byte, error) {
	if bm == nil || bm.Image == nil {
		return nil, fmt.Errorf("no bitmap to export")
	}
	if len(plan.Pages) == 0 {
		return nil, fmt.Errorf("empty page plan")
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: g.WidthMM, Ht: g.HeightMM},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(meta.Title, true)
	pdf.SetAuthor(meta.Author, true)
	pdf.SetCreator(meta.Creator, true)
	if !meta.Created.IsZero() {
		pdf.SetCreationDate(meta.Created)
	}

	imageType := "PNG"
	if quality < 1 {
		imageType = "JPG"
	}
	opts := gofpdf.ImageOptions{ImageType: imageType}

	origin := bm.Image.Bounds().Min
	for i, page := range plan.Pages {
		band := bm.Image.SubImage(image.Rect(
			origin.X, origin.Y+page.SrcTop,
			origin.X+bm.Width, origin.Y+page.SrcBottom,
		))
		data, err := encodeSlice(band, quality)
		if err != nil {
			return nil, fmt.Errorf("encoding page %d: %w", i+1, err)
		}

		name := fmt.Sprintf("page-%d", i+1)
		pdf.AddPage()
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		pdf.ImageOptions(name, page.X, page.Y, page.Width, page.Height, false, opts, 0, "")
		if pdf.Err() {
			return nil, fmt.Errorf("placing page %d: %w", i+1, pdf.Error())
		}
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return out.Bytes(), nil
}

func encodeSlice(img image.Image, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	if quality >= 1 {
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	q := int(quality * 100)
	if q < 1 {
		q = 1
	}
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Finalize validates a generated PDF, counts its pages and optimizes it
func Finalize(data []byte) ([]byte, int, error) {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	// plain xref tables keep the output readable by simple readers
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false

	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return nil, 0, fmt.Errorf("generated PDF is invalid: %w", err)
	}

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, 0, fmt.Errorf("failed to count pages: %w", err)
	}
	pages := ctx.PageCount

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &out, conf); err != nil {
		return nil, 0, fmt.Errorf("optimizing PDF: %w", err)
	}
	return out.Bytes(), pages, nil
}
