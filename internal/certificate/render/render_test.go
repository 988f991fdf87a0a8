package render

import (
	"bytes"
	"testing"

	"civreg/internal/certificate/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RenderSuite struct {
	suite.Suite
	record models.Record
}

func TestRenderSuite(t *testing.T) {
	suite.Run(t, new(RenderSuite))
}

func (s *RenderSuite) SetupTest() {
	var r models.Record
	r.Set(models.FieldFirstName, models.String("Asha"))
	r.Set(models.FieldLastName, models.String("Rao"))
	r.Set(models.FieldDateOfBirth, models.String("2024-01-01"))
	r.Set(models.FieldPlaceOfBirth, models.String("Pune"))
	r.Set(models.FieldGender, models.String("female"))
	r.Set(models.FieldMotherAadhaarNumber, models.Int(123456789012))
	s.record = r
}

func (s *RenderSuite) TestProducesPDF() {
	doc, err := New().Render(s.record)
	s.Require().NoError(err)
	s.True(bytes.HasPrefix(doc, []byte("%PDF-")))
}

func (s *RenderSuite) TestContainsTitleAndValues() {
	doc, err := New().Render(s.record)
	s.Require().NoError(err)

	for _, want := range []string{Title, "First Name: Asha", "Last Name: Rao", "Date of Birth: 2024-01-01", "Place of Birth: Pune", "Mother's Aadhaar: 123456789012"} {
		s.Contains(string(doc), want)
	}
}

func (s *RenderSuite) TestMissingFieldRendersEmptyValue() {
	doc, err := New().Render(s.record)
	s.Require().NoError(err)

	s.Contains(string(doc), "(Middle Name: )")
	s.Contains(string(doc), "(Certificate URL: )")
}

func (s *RenderSuite) TestNullRendersEmptyValue() {
	s.record.Set(models.FieldMiddleName, models.Null())
	doc, err := New().Render(s.record)
	s.Require().NoError(err)
	s.Contains(string(doc), "(Middle Name: )")
}

func (s *RenderSuite) TestDeterministic() {
	r := New()
	first, err := r.Render(s.record)
	s.Require().NoError(err)
	second, err := r.Render(s.record.Clone())
	s.Require().NoError(err)

	s.True(bytes.Equal(first, second))
}

func (s *RenderSuite) TestCompressedOutputIsDeterministic() {
	r := New(WithCompression(true))
	first, err := r.Render(s.record)
	s.Require().NoError(err)
	second, err := r.Render(s.record)
	s.Require().NoError(err)
	s.Equal(first, second)
	s.NotContains(string(first), "Asha")
}

func (s *RenderSuite) TestDefaultLayoutFitsOnePage() {
	pdf, err := New().build(s.record)
	s.Require().NoError(err)
	s.Equal(1, pdf.PageCount())
}

func (s *RenderSuite) TestOverflowStartsNewPage() {
	layout := DefaultLayout()
	layout.BottomY = layout.FirstLineY + 4*layout.LineHeight

	pdf, err := New(WithLayout(layout)).build(s.record)
	s.Require().NoError(err)
	s.Require().NoError(pdf.Error())
	// 5 lines on page one, 6 per page after resuming at TopY
	s.Equal(3, pdf.PageCount())
}

func (s *RenderSuite) TestRenderFailure() {
	layout := DefaultLayout()
	layout.Font = "NoSuchFont"

	_, err := New(WithLayout(layout)).Render(s.record)
	s.ErrorIs(err, models.ErrRenderFailure)
}

func (s *RenderSuite) TestUnprintableTextIsRenderFailure() {
	for name, value := range map[string]string{
		"devanagari":     "आशा",
		"latin extended": "Ŗao",
		"emoji":          "Asha 👶",
	} {
		s.Run(name, func() {
			record := s.record.Clone()
			record.Set(models.FieldFirstName, models.String(value))

			doc, err := New().Render(record)
			s.ErrorIs(err, models.ErrRenderFailure)
			s.Contains(err.Error(), models.FieldFirstName)
			s.Nil(doc)
		})
	}
}

func (s *RenderSuite) TestWindows1252TextIsPrinted() {
	s.record.Set(models.FieldFirstName, models.String("José"))
	doc, err := New().Render(s.record)
	s.Require().NoError(err)
	s.Contains(string(doc), "First Name: Jos\xe9")
}

func TestWithLinesOverridesFields(t *testing.T) {
	var r models.Record
	r.Set("registrationNumber", models.String("REG-1"))

	doc, err := New(WithLines([]Line{{"Reg", "registrationNumber"}})).Render(r)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "(Reg: REG-1)")
	assert.NotContains(t, string(doc), "First Name")
}

func TestWithLayoutIgnoresInvalidGeometry(t *testing.T) {
	r := New(WithLayout(Layout{}))
	assert.Equal(t, DefaultLayout(), r.layout)
}
