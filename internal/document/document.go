// Package document renders a quote as a paginated PDF.
package document

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/machinequote/internal/quote"
)

const (
	fontFamily = "Arial"
	lineHeight = 10.0

	machineImageX     = 80.0
	machineImageWidth = 120.0
	optionImageIndent = 5.0
	optionImageWidth  = 60.0
	logoX, logoY      = 10.0, 8.0
	logoWidth         = 45.0
)

// Images looks up image files by machine name and option code.
type Images interface {
	MachineImage(name string) (string, bool)
	OptionImage(code string) (string, bool)
}

// Input is everything printed on a quote.
type Input struct {
	CustomerName    string
	MachineName     string
	BasePrice       decimal.Decimal
	Discount        decimal.Decimal
	StandardOptions []string
	// Selected upgrades, not grouped. The renderer groups them itself.
	Selected []quote.Option
	Total    decimal.Decimal
}

// InputFromSession builds the document input for a quote session.
func InputFromSession(s *quote.Session) Input {
	_, discount := s.Discount()
	return Input{
		CustomerName:    s.DisplayCustomerName(),
		MachineName:     s.Machine().Name,
		BasePrice:       s.BasePrice(),
		Discount:        discount,
		StandardOptions: s.StandardOptions(),
		Selected:        s.Selected(),
		Total:           s.Total(),
	}
}

// ImageStatus is the outcome of placing one image.
type ImageStatus int

const (
	ImageEmbedded ImageStatus = iota
	ImageMissing
	ImageFailed
)

func (s ImageStatus) String() string {
	switch s {
	case ImageEmbedded:
		return "embedded"
	case ImageMissing:
		return "missing"
	case ImageFailed:
		return "failed"
	default:
		return fmt.Sprintf("ImageStatus(%d)", int(s))
	}
}

// ImageResult records what happened to one image.
type ImageResult struct {
	Subject string
	Path    string
	Status  ImageStatus
	Err     error
}

// Report describes a rendered document.
type Report struct {
	Pages  int
	Images []ImageResult
}

// Degraded returns the images that were not embedded.
func (r Report) Degraded() []ImageResult {
	var out []ImageResult
	for _, img := range r.Images {
		if img.Status != ImageEmbedded {
			out = append(out, img)
		}
	}
	return out
}

// Renderer draws quotes.
type Renderer struct {
	images   Images
	title    string
	logoPath string
	logger   zerolog.Logger
	compress bool
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithTitle sets the header line printed on every page.
func WithTitle(title string) RendererOption {
	return func(r *Renderer) { r.title = title }
}

// WithLogo sets a JPEG logo drawn in the page header.
func WithLogo(path string) RendererOption {
	return func(r *Renderer) { r.logoPath = path }
}

// WithLogger sets the logger used for image degradations.
func WithLogger(l zerolog.Logger) RendererOption {
	return func(r *Renderer) { r.logger = l }
}

// NewRenderer returns a Renderer that finds images through images.
func NewRenderer(images Images, opts ...RendererOption) *Renderer {
	r := &Renderer{
		images:   images,
		title:    "Machine Quote",
		logger:   zerolog.Nop(),
		compress: true,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RenderFile renders the quote to path, replacing any previous document.
func (r *Renderer) RenderFile(path string, in Input) (Report, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Report{}, fmt.Errorf("create output directory: %w", err)
		}
	}

	tmp := filepath.Join(filepath.Dir(path), ".quote-"+uuid.NewString()+".pdf")
	f, err := os.Create(tmp)
	if err != nil {
		return Report{}, fmt.Errorf("create document: %w", err)
	}

	report, err := r.Render(f, in)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return Report{}, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return Report{}, fmt.Errorf("move document into place: %w", err)
	}
	return report, nil
}

// Render writes the quote as PDF to w. Image problems are recorded in the
// report and drawn as placeholder lines; they never fail the render.
func (r *Renderer) Render(w io.Writer, in Input) (Report, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	var report Report
	var logo ImageResult
	if r.logoPath != "" {
		logo = r.register(pdf, "logo", r.logoPath)
		report.Images = append(report.Images, logo)
	}

	pdf.SetHeaderFunc(func() {
		if logo.Status == ImageEmbedded && logo.Path != "" {
			pdf.ImageOptions(logo.Path, logoX, logoY, logoWidth, 0, false, jpegOptions, 0, "")
		}
		pdf.SetFont(fontFamily, "B", 12)
		pdf.CellFormat(0, lineHeight, tr(r.title), "", 1, "C", false, 0, "")
		pdf.Ln(15)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, lineHeight, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	line := func(text string) {
		pdf.CellFormat(0, lineHeight, tr(text), "", 1, "", false, 0, "")
	}

	pdf.SetFont(fontFamily, "", 12)
	line("Customer: " + in.CustomerName)
	line("Machine: " + in.MachineName)
	line("Base Machine Price: " + Money(in.BasePrice))
	line("Standard Discount: -" + Money(in.Discount))
	pdf.Ln(5)

	machineImg := r.place(pdf, "machine "+in.MachineName, machineImageX, machineImageWidth, func() (string, bool) {
		return r.images.MachineImage(in.MachineName)
	})
	report.Images = append(report.Images, machineImg)
	switch machineImg.Status {
	case ImageEmbedded:
		pdf.Ln(10)
	case ImageMissing:
		line("[No machine image available]")
	case ImageFailed:
		line("[Could not load machine image]")
	}

	pdf.SetFont(fontFamily, "B", 12)
	line("Standard Options:")
	pdf.SetFont(fontFamily, "", 12)
	for _, opt := range in.StandardOptions {
		pdf.MultiCell(0, lineHeight, tr("- "+opt), "", "", false)
	}
	pdf.Ln(5)

	pdf.SetFont(fontFamily, "B", 12)
	line("Selected Optional Upgrades:")
	pdf.SetFont(fontFamily, "", 12)
	for _, group := range quote.Regroup(in.Selected) {
		pdf.SetFont(fontFamily, "B", 11)
		line(string(group.Category) + ":")
		pdf.SetFont(fontFamily, "", 12)

		for _, opt := range group.Options {
			pdf.MultiCell(0, lineHeight, tr(fmt.Sprintf("- %s (%s)", opt.Description, Money(opt.Price))), "", "", false)
			if opt.Code != "" {
				code := opt.Code
				res := r.place(pdf, "option "+code, pdf.GetX()+optionImageIndent, optionImageWidth, func() (string, bool) {
					return r.images.OptionImage(code)
				})
				report.Images = append(report.Images, res)
				switch res.Status {
				case ImageEmbedded:
					pdf.Ln(5)
				case ImageMissing:
					line(fmt.Sprintf("[No image for %s]", code))
				case ImageFailed:
					line(fmt.Sprintf("[Image Error: %v]", res.Err))
				}
			}
			pdf.Ln(3)
		}
	}

	pdf.Ln(5)
	pdf.SetFont(fontFamily, "B", 12)
	line("Total Quote: " + Money(in.Total))

	report.Pages = pdf.PageNo()
	if err := pdf.Output(w); err != nil {
		return Report{}, fmt.Errorf("write pdf: %w", err)
	}

	for _, img := range report.Degraded() {
		ev := r.logger.Warn().Str("image", img.Subject).Str("status", img.Status.String())
		if img.Path != "" {
			ev = ev.Str("path", img.Path)
		}
		ev.Err(img.Err).Msg("quote image not embedded")
	}

	return report, nil
}

var jpegOptions = fpdf.ImageOptions{ImageType: "JPG"}

var errNoImage = errors.New("no image on file")

// place looks up and draws one image in flow at x with width w.
func (r *Renderer) place(pdf *fpdf.Fpdf, subject string, x, w float64, lookup func() (string, bool)) ImageResult {
	if r.images == nil {
		return ImageResult{Subject: subject, Status: ImageMissing, Err: errNoImage}
	}
	path, ok := lookup()
	if !ok {
		return ImageResult{Subject: subject, Status: ImageMissing, Err: errNoImage}
	}

	res := r.register(pdf, subject, path)
	if res.Status != ImageEmbedded {
		return res
	}

	pdf.ImageOptions(path, x, -1, w, 0, true, jpegOptions, 0, "")
	if err := pdf.Error(); err != nil {
		pdf.ClearError()
		return ImageResult{Subject: subject, Path: path, Status: ImageFailed, Err: err}
	}
	return res
}

// register parses an image into the document without drawing it, so a
// corrupt file is caught before it can poison the whole PDF.
func (r *Renderer) register(pdf *fpdf.Fpdf, subject, path string) ImageResult {
	if err := pdf.Error(); err != nil {
		return ImageResult{Subject: subject, Path: path, Status: ImageFailed, Err: err}
	}
	if _, err := os.Stat(path); err != nil {
		return ImageResult{Subject: subject, Path: path, Status: ImageMissing, Err: err}
	}

	info := pdf.RegisterImageOptions(path, jpegOptions)
	if err := pdf.Error(); err != nil || info == nil {
		pdf.ClearError()
		if err == nil {
			err = errors.New("image could not be registered")
		}
		return ImageResult{Subject: subject, Path: path, Status: ImageFailed, Err: err}
	}
	return ImageResult{Subject: subject, Path: path, Status: ImageEmbedded}
}
