package service

import (
	"fmt"
	"strings"

	"civreg/internal/certificate/models"
	"civreg/internal/certificate/normalizer"
	"civreg/pkg/platform/validation"
)

// registration is the typed view the required-field policy validates.
type registration struct {
	FirstName           string `json:"firstName" validate:"required,notblank"`
	LastName            string `json:"lastName" validate:"required,notblank"`
	DateOfBirth         string `json:"dateOfBirth" validate:"required,notblank"`
	Gender              string `json:"gender" validate:"required,notblank"`
	PlaceOfBirth        string `json:"placeOfBirth" validate:"required,notblank"`
	FatherName          string `json:"fatherName" validate:"required,notblank"`
	FatherAadhaarNumber string `json:"fatherAadhaarNumber" validate:"required,notblank"`
	MotherName          string `json:"motherName" validate:"required,notblank"`
	MotherAadhaarNumber string `json:"motherAadhaarNumber" validate:"required,notblank"`
	AadhaarConsentGiven *bool  `json:"aadhaarConsentGiven" validate:"required,eq=true"`
}

func registrationView(r models.Record) registration {
	view := registration{
		FirstName:           r.Text(models.FieldFirstName),
		LastName:            r.Text(models.FieldLastName),
		DateOfBirth:         r.Text(models.FieldDateOfBirth),
		Gender:              r.Text(models.FieldGender),
		PlaceOfBirth:        r.Text(models.FieldPlaceOfBirth),
		FatherName:          r.Text(models.FieldFatherName),
		FatherAadhaarNumber: r.Text(models.FieldFatherAadhaarNumber),
		MotherName:          r.Text(models.FieldMotherName),
		MotherAadhaarNumber: r.Text(models.FieldMotherAadhaarNumber),
	}
	if v, ok := r.Get(models.FieldAadhaarConsentGiven); ok {
		if b, isBool := v.AsBool(); isBool {
			view.AadhaarConsentGiven = &b
		}
	}
	return view
}

// checkPolicy enforces the submission rules the normalizer does not:
// shape limits, reserved fields, required fields and consent.
func checkPolicy(res normalizer.Result) error {
	if err := checkShape(res.Record); err != nil {
		return fmt.Errorf("%w: %s", models.ErrInvalidInput, err.Error())
	}
	if len(res.Reserved) > 0 {
		return fmt.Errorf("%w: fields %s are set by the registry and cannot be submitted",
			models.ErrInvalidInput, strings.Join(res.Reserved, ", "))
	}
	if err := validation.Struct(registrationView(res.Record)); err != nil {
		return fmt.Errorf("%w: %s", models.ErrInvalidInput, validation.ErrorMessage(err))
	}
	return nil
}

func checkShape(r models.Record) error {
	if err := validation.CheckCount("fields", r.Len(), validation.MaxFieldCount); err != nil {
		return err
	}
	for _, key := range r.Keys() {
		if err := validation.CheckStringLength("field name", key, validation.MaxFieldNameLength); err != nil {
			return err
		}
	}
	return nil
}
