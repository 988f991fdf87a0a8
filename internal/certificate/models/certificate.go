package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Birth-registration field names as submitted by the registration desk.
const (
	FieldID                  = "id"
	FieldFirstName           = "firstName"
	FieldMiddleName          = "middleName"
	FieldLastName            = "lastName"
	FieldDateOfBirth         = "dateOfBirth"
	FieldTimeOfBirth         = "timeOfBirth"
	FieldPlaceOfBirth        = "placeOfBirth"
	FieldGender              = "gender"
	FieldMotherName          = "motherName"
	FieldMotherAadhaarNumber = "motherAadhaarNumber"
	FieldFatherName          = "fatherName"
	FieldFatherAadhaarNumber = "fatherAadhaarNumber"
	FieldRegistrationNumber  = "registrationNumber"
	FieldIssuingAuthority    = "issuingAuthority"
	FieldCertificateURL      = "certificateUrl"
	FieldAadhaarConsentGiven = "aadhaarConsentGiven"
	FieldFatherIdentityFile  = "father_identity_file_path"
	FieldMotherIdentityFile  = "mother_identity_file_path"
)

// Role identifies whose identity document a file part carries.
type Role string

const (
	RoleFather Role = "father"
	RoleMother Role = "mother"
)

// Roles lists the supported roles in a stable order.
func Roles() []Role { return []Role{RoleFather, RoleMother} }

// FileField is the record field that holds the role's file reference.
func (r Role) FileField() string {
	return string(r) + "_identity_file_path"
}

// FileReference builds the synthetic name {role}_{millis}_{name} for an uploaded file.
func FileReference(role Role, at time.Time, originalName string) string {
	return fmt.Sprintf("%s_%d_%s", role, at.UnixMilli(), originalName)
}

// Summary is a list entry; it carries no document bytes.
type Summary struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	HasDocument bool      `json:"hasDocument"`
	Record      Record    `json:"record"`
}

// EventTypeCertificateCreated is the type tag of creation events.
const EventTypeCertificateCreated = "certificate.created"

// CreationEvent announces a newly stored certificate.
type CreationEvent struct {
	ID     int64
	Record Record
}

func (e CreationEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		ID      int64  `json:"id"`
		Payload Record `json:"payload"`
	}{
		Type:    EventTypeCertificateCreated,
		ID:      e.ID,
		Payload: e.Record,
	})
}
