// Package render draws birth certificates as fixed-layout PDF documents.
package render

import (
	"bytes"
	"fmt"
	"time"

	"civreg/internal/certificate/models"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

// Version identifies the layout. Bump it whenever output bytes change so
// cached documents are not served for a different layout.
const Version = "1"

// Title is drawn at the top of the first page.
const Title = "Official Birth Certificate"

// Line is a label and the record field it prints.
type Line struct {
	Label string
	Field string
}

// DefaultLines is the printed field order.
var DefaultLines = []Line{
	{"First Name", models.FieldFirstName},
	{"Middle Name", models.FieldMiddleName},
	{"Last Name", models.FieldLastName},
	{"Date of Birth", models.FieldDateOfBirth},
	{"Time of Birth", models.FieldTimeOfBirth},
	{"Place of Birth", models.FieldPlaceOfBirth},
	{"Gender", models.FieldGender},
	{"Mother's Name", models.FieldMotherName},
	{"Mother's Aadhaar", models.FieldMotherAadhaarNumber},
	{"Father's Name", models.FieldFatherName},
	{"Father's Aadhaar", models.FieldFatherAadhaarNumber},
	{"Registration Number", models.FieldRegistrationNumber},
	{"Issuing Authority", models.FieldIssuingAuthority},
	{"Certificate URL", models.FieldCertificateURL},
}

// Layout positions are in points measured from the top-left corner of a US
// Letter page (612x792). Font must be a core PDF font family. Lines resume at
// TopY after a page break; BottomY is the lowest baseline a line may use.
type Layout struct {
	Font       string
	Left       float64
	TitleY     float64
	TitleSize  float64
	FirstLineY float64
	LineHeight float64
	BodySize   float64
	TopY       float64
	BottomY    float64
}

// DefaultLayout matches the printed registration form.
func DefaultLayout() Layout {
	return Layout{
		Font:       "Helvetica",
		Left:       70,
		TitleY:     72,
		TitleSize:  18,
		FirstLineY: 102,
		LineHeight: 18,
		BodySize:   12,
		TopY:       72,
		BottomY:    712,
	}
}

// epoch is stamped as creation and modification date so output is reproducible.
var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Renderer is stateless and safe for concurrent use.
type Renderer struct {
	layout   Layout
	lines    []Line
	compress bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLayout overrides the page geometry.
func WithLayout(l Layout) Option {
	return func(r *Renderer) {
		if l.LineHeight > 0 && l.BottomY > l.TopY {
			r.layout = l
		}
	}
}

// WithLines overrides the printed fields.
func WithLines(lines []Line) Option {
	return func(r *Renderer) {
		if len(lines) > 0 {
			r.lines = lines
		}
	}
}

// WithCompression toggles stream compression. Uncompressed output keeps the
// printed text searchable in the raw bytes.
func WithCompression(on bool) Option {
	return func(r *Renderer) {
		r.compress = on
	}
}

func New(opts ...Option) *Renderer {
	r := &Renderer{
		layout: DefaultLayout(),
		lines:  DefaultLines,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces the certificate PDF. Output is byte-identical for equal records.
// Text the core fonts cannot print (anything outside Windows-1252) fails the
// render instead of being substituted.
func (r *Renderer) Render(record models.Record) ([]byte, error) {
	pdf, err := r.build(record)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrRenderFailure, err)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRenderFailure, err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRenderFailure, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) build(record models.Record) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCreationDate(epoch)
	pdf.SetModificationDate(epoch)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(r.compress)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(Title, false)
	pdf.SetProducer("civreg render v"+Version, false)

	l := r.layout

	pdf.AddPage()
	pdf.SetFont(l.Font, "B", l.TitleSize)
	pdf.Text(l.Left, l.TitleY, Title)

	pdf.SetFont(l.Font, "", l.BodySize)
	y := l.FirstLineY
	for _, line := range r.lines {
		if y > l.BottomY {
			pdf.AddPage()
			y = l.TopY
		}
		text, err := encodeText(line.Label + ": " + record.Text(line.Field))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", line.Field, err)
		}
		pdf.Text(l.Left, y, text)
		y += l.LineHeight
	}
	return pdf, nil
}

// encodeText converts s to the Windows-1252 bytes the core fonts expect.
func encodeText(s string) (string, error) {
	out, err := charmap.Windows1252.NewEncoder().String(s)
	if err != nil {
		return "", fmt.Errorf("text %q cannot be printed with the core fonts: %w", s, err)
	}
	return out, nil
}
