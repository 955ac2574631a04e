package models

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Patient struct {
	BaseModel
	CreatedByID    uint                   `json:"created_by" gorm:"not null;index"`
	CreatedBy      User                   `json:"-"`
	Name           string                 `json:"name" gorm:"not null"`
	Email          string                 `json:"email" gorm:"not null;uniqueIndex:idx_patients_email"`
	PhoneNumber    string                 `json:"phone_number" gorm:"size:17"`
	Address        string                 `json:"address"`
	DateOfBirth    *datatypes.Date        `json:"date_of_birth"`
	BloodGroup     string                 `json:"blood_group" gorm:"size:5"`
	MedicalHistory string                 `json:"medical_history"`
	DoctorMappings []PatientDoctorMapping `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// PatientInput is the client-writable part of a Patient. The owner is never part of it.
type PatientInput struct {
	Name           string  `json:"name" validate:"required,max=255"`
	Email          string  `json:"email" validate:"required,email,max=254"`
	PhoneNumber    string  `json:"phone_number" validate:"omitempty,max=17,phone_number"`
	Address        string  `json:"address"`
	DateOfBirth    *string `json:"date_of_birth" validate:"omitempty,date"`
	BloodGroup     string  `json:"blood_group" validate:"omitempty,blood_group"`
	MedicalHistory string  `json:"medical_history"`
}

type PatientSummary struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PhoneNumber   string    `json:"phone_number"`
	BloodGroup    string    `json:"blood_group"`
	CreatedByName string    `json:"created_by_name"`
	CreatedAt     time.Time `json:"created_at"`
}

type PatientDetail struct {
	ID               uint       `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	PhoneNumber      string     `json:"phone_number"`
	Address          string     `json:"address"`
	DateOfBirth      *string    `json:"date_of_birth"`
	BloodGroup       string     `json:"blood_group"`
	MedicalHistory   string     `json:"medical_history"`
	CreatedBy        uint       `json:"created_by"`
	CreatedByDetails UserDetail `json:"created_by_details"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (patient *Patient) ToSummary() PatientSummary {
	return PatientSummary{
		ID:            patient.ID,
		Name:          patient.Name,
		Email:         patient.Email,
		PhoneNumber:   patient.PhoneNumber,
		BloodGroup:    patient.BloodGroup,
		CreatedByName: patient.CreatedBy.Name,
		CreatedAt:     patient.CreatedAt,
	}
}

func (patient *Patient) ToDetail() PatientDetail {
	return PatientDetail{
		ID:               patient.ID,
		Name:             patient.Name,
		Email:            patient.Email,
		PhoneNumber:      patient.PhoneNumber,
		Address:          patient.Address,
		DateOfBirth:      patient.dateOfBirthString(),
		BloodGroup:       patient.BloodGroup,
		MedicalHistory:   patient.MedicalHistory,
		CreatedBy:        patient.CreatedByID,
		CreatedByDetails: patient.CreatedBy.ToDetail(),
		CreatedAt:        patient.CreatedAt,
		UpdatedAt:        patient.UpdatedAt,
	}
}

// Input returns the writable fields of patient, the base that partial updates are merged onto.
func (patient *Patient) Input() PatientInput {
	return PatientInput{
		Name:           patient.Name,
		Email:          patient.Email,
		PhoneNumber:    patient.PhoneNumber,
		Address:        patient.Address,
		DateOfBirth:    patient.dateOfBirthString(),
		BloodGroup:     patient.BloodGroup,
		MedicalHistory: patient.MedicalHistory,
	}
}

// CreatePatient stores a patient owned by ownerID.
func CreatePatient(ctx context.Context, ownerID uint, input PatientInput) (*Patient, error) {
	var patient *Patient

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := validatePatient(tx, input, 0); err != nil {
			return err
		}

		created := &Patient{CreatedByID: ownerID}
		input.applyTo(created)
		if err := translateUniqueViolation(tx.Create(created).Error); err != nil {
			return err
		}

		var err error
		patient, err = findPatient(tx, ownerID, created.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return patient, nil
}

// Patients lists the patients owned by ownerID, newest first.
func Patients(ctx context.Context, ownerID uint, page Page) ([]Patient, *Paging, error) {
	patients := []Patient{}

	query, paging, err := listPage(db.WithContext(ctx).Model(&Patient{}).Scopes(ownedBy(ownerID)), page)
	if err != nil {
		return nil, nil, err
	}

	err = query.Scopes(withCreator).Order("created_at DESC").Order("id DESC").Find(&patients).Error
	if err != nil {
		return nil, nil, err
	}

	return patients, paging, nil
}

// FindPatient returns patient id if ownerID owns it. Patients of other owners are reported as missing.
func FindPatient(ctx context.Context, ownerID, id uint) (*Patient, error) {
	return findPatient(db.WithContext(ctx), ownerID, id)
}

func UpdatePatient(ctx context.Context, ownerID, id uint, input PatientInput) (*Patient, error) {
	return updatePatient(ctx, ownerID, id, func(*Patient) (PatientInput, error) {
		return input, nil
	})
}

// PatchPatient lets patch overwrite the fields it was given on top of the stored patient,
// then validates and saves the result.
func PatchPatient(ctx context.Context, ownerID, id uint, patch func(*PatientInput) error) (*Patient, error) {
	return updatePatient(ctx, ownerID, id, func(patient *Patient) (PatientInput, error) {
		input := patient.Input()
		err := patch(&input)
		return input, err
	})
}

func DeletePatient(ctx context.Context, ownerID, id uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		patient, err := findPatient(tx, ownerID, id)
		if err != nil {
			return err
		}

		return tx.Delete(&Patient{}, patient.ID).Error
	})
}

// ---------------------------------------------------------------------------------//
// Scopes
// --------------------------------------------------------------------------------//

func ownedBy(ownerID uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("patients.created_by_id = ?", ownerID)
	}
}

func withCreator(db *gorm.DB) *gorm.DB {
	return db.Preload("CreatedBy", func(db *gorm.DB) *gorm.DB {
		return db.Select(allFieldsExceptPassword)
	})
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func updatePatient(ctx context.Context, ownerID, id uint, inputFor func(*Patient) (PatientInput, error)) (*Patient, error) {
	var patient *Patient

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		patient, err = findPatient(tx, ownerID, id)
		if err != nil {
			return err
		}

		input, err := inputFor(patient)
		if err != nil {
			return err
		}

		if err := validatePatient(tx, input, patient.ID); err != nil {
			return err
		}

		input.applyTo(patient)
		return translateUniqueViolation(tx.Omit("CreatedBy").Save(patient).Error)
	})
	if err != nil {
		return nil, err
	}

	return patient, nil
}

func findPatient(tx *gorm.DB, ownerID, id uint) (*Patient, error) {
	patient := Patient{}

	err := tx.Scopes(ownedBy(ownerID), withCreator).First(&patient, "patients.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "Patient"}
	}
	if err != nil {
		return nil, err
	}

	return &patient, nil
}

// validatePatient checks field rules and email uniqueness, excluding the patient with selfID.
func validatePatient(tx *gorm.DB, input PatientInput, selfID uint) error {
	// an empty date of birth clears it
	if input.DateOfBirth != nil && *input.DateOfBirth == "" {
		input.DateOfBirth = nil
	}

	verr := validateStruct(input)

	if _, invalid := verr.Fields["email"]; !invalid {
		taken, err := exists(tx.Model(&Patient{}).Where("email = ? AND id <> ?", normalizeEmail(input.Email), selfID))
		if err != nil {
			return err
		}
		if taken {
			verr.Add("email", uniqueViolations["idx_patients_email"].message)
		}
	}

	return verr.OrNil()
}

func (input PatientInput) applyTo(patient *Patient) {
	patient.Name = input.Name
	patient.Email = normalizeEmail(input.Email)
	patient.PhoneNumber = input.PhoneNumber
	patient.Address = input.Address
	patient.BloodGroup = input.BloodGroup
	patient.MedicalHistory = input.MedicalHistory

	patient.DateOfBirth = nil
	if input.DateOfBirth != nil && *input.DateOfBirth != "" {
		// already validated against DATE_LAYOUT
		parsed, _ := time.Parse(DATE_LAYOUT, *input.DateOfBirth)
		dateOfBirth := datatypes.Date(parsed)
		patient.DateOfBirth = &dateOfBirth
	}
}

func (patient *Patient) dateOfBirthString() *string {
	if patient.DateOfBirth == nil {
		return nil
	}

	formatted := time.Time(*patient.DateOfBirth).Format(DATE_LAYOUT)
	return &formatted
}
