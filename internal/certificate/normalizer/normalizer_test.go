package normalizer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"civreg/internal/certificate/models"
	"civreg/pkg/requestcontext"

	"github.com/stretchr/testify/suite"
)

type NormalizerSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	normalizer *Normalizer
}

func TestNormalizerSuite(t *testing.T) {
	suite.Run(t, new(NormalizerSuite))
}

func (s *NormalizerSuite) SetupTest() {
	s.now = time.UnixMilli(1704067200456)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.normalizer = New()
}

func (s *NormalizerSuite) TestCopiesFieldsVerbatim() {
	in := `{"firstName":"Asha","weightKg":3.20,"aadhaarConsentGiven":true,"middleName":null}`

	res, err := s.normalizer.Normalize(s.ctx, Submission{Fields: []byte(in)})
	s.Require().NoError(err)

	out, err := json.Marshal(res.Record)
	s.Require().NoError(err)
	s.Equal(in, string(out))
	s.Empty(res.Reserved)
	s.Equal(s.now, res.NormalizedAt)
}

func (s *NormalizerSuite) TestAddsFileReferences() {
	res, err := s.normalizer.Normalize(s.ctx, Submission{
		Fields: []byte(`{"firstName":"Asha"}`),
		Files: map[models.Role]FilePart{
			models.RoleFather: {Name: "dad.png", Size: 10},
			models.RoleMother: {Name: "mom.pdf", Size: 20},
		},
	})
	s.Require().NoError(err)

	s.Equal("father_1704067200456_dad.png", res.Record.Text(models.FieldFatherIdentityFile))
	s.Equal("mother_1704067200456_mom.pdf", res.Record.Text(models.FieldMotherIdentityFile))
	s.Equal([]string{"firstName", models.FieldFatherIdentityFile, models.FieldMotherIdentityFile}, res.Record.Keys())
}

func (s *NormalizerSuite) TestSkipsEmptyOrAbsentParts() {
	res, err := s.normalizer.Normalize(s.ctx, Submission{
		Fields: []byte(`{"firstName":"Asha"}`),
		Files: map[models.Role]FilePart{
			models.RoleFather: {Name: "dad.png", Size: 0},
		},
	})
	s.Require().NoError(err)
	s.False(res.Record.Has(models.FieldFatherIdentityFile))
	s.False(res.Record.Has(models.FieldMotherIdentityFile))
}

func (s *NormalizerSuite) TestReportsReservedFields() {
	res, err := s.normalizer.Normalize(s.ctx, Submission{
		Fields: []byte(`{"id":9,"mother_identity_file_path":"x"}`),
	})
	s.Require().NoError(err)
	s.Equal([]string{models.FieldID, models.FieldMotherIdentityFile}, res.Reserved)
}

func (s *NormalizerSuite) TestMalformedInput() {
	for name, in := range map[string]string{
		"missing":   ``,
		"not json":  `firstName=Asha`,
		"array":     `["Asha"]`,
		"nested":    `{"address":{"city":"Pune"}}`,
		"truncated": `{"firstName":`,
	} {
		s.Run(name, func() {
			_, err := s.normalizer.Normalize(s.ctx, Submission{Fields: []byte(in)})
			s.ErrorIs(err, models.ErrInvalidInput)
		})
	}
}
