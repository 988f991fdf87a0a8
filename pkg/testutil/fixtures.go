package testutil

import (
	"encoding/json"

	"civreg/internal/certificate/models"
)

// RegistrationBuilder builds birth-registration records for tests.
// Defaults describe a complete, valid submission.
type RegistrationBuilder struct {
	record models.Record
}

// NewRegistration starts from the Asha Rao registration.
func NewRegistration() *RegistrationBuilder {
	var r models.Record
	r.Set(models.FieldFirstName, models.String("Asha"))
	r.Set(models.FieldLastName, models.String("Rao"))
	r.Set(models.FieldDateOfBirth, models.String("2024-01-01"))
	r.Set(models.FieldGender, models.String("female"))
	r.Set(models.FieldPlaceOfBirth, models.String("Pune"))
	r.Set(models.FieldFatherName, models.String("Ravi Rao"))
	r.Set(models.FieldFatherAadhaarNumber, models.String("123412341234"))
	r.Set(models.FieldMotherName, models.String("Meera Rao"))
	r.Set(models.FieldMotherAadhaarNumber, models.String("432143214321"))
	r.Set(models.FieldAadhaarConsentGiven, models.Bool(true))
	return &RegistrationBuilder{record: r}
}

// With sets or replaces a field.
func (b *RegistrationBuilder) With(field string, v models.Value) *RegistrationBuilder {
	b.record.Set(field, v)
	return b
}

// WithString sets a string field.
func (b *RegistrationBuilder) WithString(field, v string) *RegistrationBuilder {
	return b.With(field, models.String(v))
}

// Without removes a field.
func (b *RegistrationBuilder) Without(field string) *RegistrationBuilder {
	b.record.Delete(field)
	return b
}

// Build returns a copy of the record.
func (b *RegistrationBuilder) Build() models.Record {
	return b.record.Clone()
}

// JSON returns the record as a JSON object.
func (b *RegistrationBuilder) JSON() []byte {
	out, err := json.Marshal(b.record)
	if err != nil {
		panic(err)
	}
	return out
}
