package document

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/machinequote/internal/catalog"
	"github.com/Simplici0/machinequote/internal/quote"
)

type fakeImages struct {
	machines map[string]string
	options  map[string]string
}

func (f fakeImages) MachineImage(name string) (string, bool) {
	p, ok := f.machines[name]
	return p, ok
}

func (f fakeImages) OptionImage(code string) (string, bool) {
	p, ok := f.options[code]
	return p, ok
}

func writeJPEG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for x := 0; x < 16; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x * 10), B: 40, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func sampleInput() Input {
	return Input{
		CustomerName:    "Acme Aerospace",
		MachineName:     "HU63A",
		BasePrice:       d("100000"),
		Discount:        d("10000"),
		StandardOptions: []string{"Spindle motor", "Coolant  system"},
		Selected: []quote.Option{
			{ID: 1, Description: "Renishaw probe", Price: d("3000"), Code: "OMP60"},
			{ID: 2, Description: "Spindle 20k", Price: d("5000"), Code: "SP20"},
			{ID: 3, Description: "Coolant chiller", Price: d("1500"), Code: "CHL"},
			{ID: 4, Description: "Chip conveyor", Price: d("500")},
		},
		Total: d("99000"),
	}
}

func TestRender_DegradesImagesWithoutFailing(t *testing.T) {
	dir := t.TempDir()
	machine := filepath.Join(dir, "HU63A.jpg")
	good := filepath.Join(dir, "OMP60.jpg")
	corrupt := filepath.Join(dir, "SP20.jpg")
	writeJPEG(t, machine)
	writeJPEG(t, good)
	require.NoError(t, os.WriteFile(corrupt, []byte("not really a jpeg"), 0o644))

	r := NewRenderer(fakeImages{
		machines: map[string]string{"HU63A": machine},
		options:  map[string]string{"OMP60": good, "SP20": corrupt},
	})
	r.compress = false

	var buf bytes.Buffer
	report, err := r.Render(&buf, sampleInput())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.GreaterOrEqual(t, report.Pages, 1)

	status := make(map[string]ImageStatus)
	for _, img := range report.Images {
		status[img.Subject] = img.Status
	}
	assert.Equal(t, map[string]ImageStatus{
		"machine HU63A": ImageEmbedded,
		"option OMP60":  ImageEmbedded,
		"option SP20":   ImageFailed,
		"option CHL":    ImageMissing,
	}, status)

	degraded := report.Degraded()
	require.Len(t, degraded, 2)
	for _, img := range degraded {
		assert.Error(t, img.Err)
	}

	body := buf.String()
	for _, want := range []string{
		"Customer: Acme Aerospace",
		"Base Machine Price: $100,000.00",
		"Standard Discount: -$10,000.00",
		"Spindle Options:",
		"Probing & Measurement:",
		"Other Options:",
		"- Renishaw probe \\($3,000.00\\)",
		"[No image for CHL]",
		"[Image Error:",
		"Total Quote: $99,000.00",
	} {
		assert.Contains(t, body, want)
	}
}

func TestRender_MissingMachineImagePlaceholder(t *testing.T) {
	r := NewRenderer(fakeImages{}, WithTitle("Acme Machine Quote"))
	r.compress = false

	in := sampleInput()
	in.Selected = nil

	var buf bytes.Buffer
	report, err := r.Render(&buf, in)
	require.NoError(t, err)

	require.Len(t, report.Images, 1)
	assert.Equal(t, ImageMissing, report.Images[0].Status)
	assert.Contains(t, buf.String(), "[No machine image available]")
	assert.Contains(t, buf.String(), "Acme Machine Quote")
}

func TestRender_BrokenLogoDoesNotAbort(t *testing.T) {
	dir := t.TempDir()
	logo := filepath.Join(dir, "logo.jpg")
	require.NoError(t, os.WriteFile(logo, []byte{0xff, 0xd8, 0x00}, 0o644))

	r := NewRenderer(fakeImages{}, WithLogo(logo))

	var buf bytes.Buffer
	report, err := r.Render(&buf, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, "logo", report.Images[0].Subject)
	assert.Equal(t, ImageFailed, report.Images[0].Status)
}

func TestRender_PaginatesLongQuotes(t *testing.T) {
	r := NewRenderer(fakeImages{})

	in := sampleInput()
	in.StandardOptions = nil
	for i := 0; i < 60; i++ {
		in.StandardOptions = append(in.StandardOptions, "Included feature")
	}

	var buf bytes.Buffer
	report, err := r.Render(&buf, in)
	require.NoError(t, err)
	assert.Greater(t, report.Pages, 1)
}

func TestRenderFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "quote_output.pdf")
	r := NewRenderer(fakeImages{})

	_, err := r.RenderFile(path, sampleInput())
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	in := sampleInput()
	in.Selected = nil
	_, err = r.RenderFile(path, in)
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestInputFromSession(t *testing.T) {
	s, err := quote.NewSession(catalog.Machine{
		Name:            "VL30",
		BasePrice:       d("50000"),
		DefaultDiscount: d("1000"),
		OptionalOptions: []catalog.Option{{Description: "Rotary table", Price: "4000", Code: "RT"}},
	})
	require.NoError(t, err)
	require.NoError(t, s.Toggle(0, true))

	in := InputFromSession(s)
	assert.Equal(t, quote.CustomerPlaceholder, in.CustomerName)
	assert.Equal(t, "VL30", in.MachineName)
	assert.True(t, in.Discount.Equal(d("1000")))
	assert.True(t, in.Total.Equal(d("53000")))
	require.Len(t, in.Selected, 1)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$1,234.50", Money(d("1234.5")))
	assert.Equal(t, "$0.00", Money(decimal.Zero))
	assert.Equal(t, "-$1,500.00", Money(d("-1500")))
	assert.Equal(t, "$150,000.00", Money(d("150000")))
}
