package models

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Doctor struct {
	BaseModel
	Name            string                 `json:"name" gorm:"not null"`
	Email           string                 `json:"email" gorm:"not null;uniqueIndex:idx_doctors_email"`
	PhoneNumber     string                 `json:"phone_number" gorm:"size:17;not null"`
	Specialization  string                 `json:"specialization" gorm:"size:100;not null;index"`
	Qualification   string                 `json:"qualification" gorm:"not null"`
	ExperienceYears int                    `json:"experience_years" gorm:"not null"`
	LicenseNumber   string                 `json:"license_number" gorm:"size:50;not null;uniqueIndex:idx_doctors_license_number"`
	ClinicAddress   string                 `json:"clinic_address" gorm:"not null"`
	ConsultationFee float64                `json:"consultation_fee" gorm:"not null"`
	IsAvailable     bool                   `json:"is_available" gorm:"not null;index"`
	PatientMappings []PatientDoctorMapping `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// DoctorInput is the writable part of a Doctor. Pointer fields distinguish absent from zero.
type DoctorInput struct {
	Name            string   `json:"name" validate:"required,max=255"`
	Email           string   `json:"email" validate:"required,email,max=254"`
	PhoneNumber     string   `json:"phone_number" validate:"required,max=17,phone_number"`
	Specialization  string   `json:"specialization" validate:"required,max=100"`
	Qualification   string   `json:"qualification" validate:"required,max=255"`
	ExperienceYears *int     `json:"experience_years"`
	LicenseNumber   string   `json:"license_number" validate:"required,max=50"`
	ClinicAddress   string   `json:"clinic_address" validate:"required"`
	ConsultationFee *float64 `json:"consultation_fee" validate:"required,money"`
	IsAvailable     *bool    `json:"is_available"`
}

type DoctorSummary struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Specialization  string  `json:"specialization"`
	ExperienceYears int     `json:"experience_years"`
	ConsultationFee float64 `json:"consultation_fee"`
	IsAvailable     bool    `json:"is_available"`
}

type DoctorDetail struct {
	ID              uint      `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	PhoneNumber     string    `json:"phone_number"`
	Specialization  string    `json:"specialization"`
	Qualification   string    `json:"qualification"`
	ExperienceYears int       `json:"experience_years"`
	LicenseNumber   string    `json:"license_number"`
	ClinicAddress   string    `json:"clinic_address"`
	ConsultationFee float64   `json:"consultation_fee"`
	IsAvailable     bool      `json:"is_available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (doctor *Doctor) ToSummary() DoctorSummary {
	return DoctorSummary{
		ID:              doctor.ID,
		Name:            doctor.Name,
		Specialization:  doctor.Specialization,
		ExperienceYears: doctor.ExperienceYears,
		ConsultationFee: doctor.ConsultationFee,
		IsAvailable:     doctor.IsAvailable,
	}
}

func (doctor *Doctor) ToDetail() DoctorDetail {
	return DoctorDetail{
		ID:              doctor.ID,
		Name:            doctor.Name,
		Email:           doctor.Email,
		PhoneNumber:     doctor.PhoneNumber,
		Specialization:  doctor.Specialization,
		Qualification:   doctor.Qualification,
		ExperienceYears: doctor.ExperienceYears,
		LicenseNumber:   doctor.LicenseNumber,
		ClinicAddress:   doctor.ClinicAddress,
		ConsultationFee: doctor.ConsultationFee,
		IsAvailable:     doctor.IsAvailable,
		CreatedAt:       doctor.CreatedAt,
		UpdatedAt:       doctor.UpdatedAt,
	}
}

// Input returns the writable fields of doctor, the base that partial updates are merged onto.
func (doctor *Doctor) Input() DoctorInput {
	experienceYears := doctor.ExperienceYears
	consultationFee := doctor.ConsultationFee
	isAvailable := doctor.IsAvailable

	return DoctorInput{
		Name:            doctor.Name,
		Email:           doctor.Email,
		PhoneNumber:     doctor.PhoneNumber,
		Specialization:  doctor.Specialization,
		Qualification:   doctor.Qualification,
		ExperienceYears: &experienceYears,
		LicenseNumber:   doctor.LicenseNumber,
		ClinicAddress:   doctor.ClinicAddress,
		ConsultationFee: &consultationFee,
		IsAvailable:     &isAvailable,
	}
}

func CreateDoctor(ctx context.Context, input DoctorInput) (*Doctor, error) {
	doctor := &Doctor{IsAvailable: true}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := validateDoctor(tx, input, 0); err != nil {
			return err
		}

		input.applyTo(doctor)
		return translateUniqueViolation(tx.Create(doctor).Error)
	})
	if err != nil {
		return nil, err
	}

	return doctor, nil
}

// Doctors lists the whole directory ordered by name.
func Doctors(ctx context.Context, page Page) ([]Doctor, *Paging, error) {
	doctors := []Doctor{}

	query, paging, err := listPage(db.WithContext(ctx).Model(&Doctor{}), page)
	if err != nil {
		return nil, nil, err
	}

	if err := query.Order("name").Order("id").Find(&doctors).Error; err != nil {
		return nil, nil, err
	}

	return doctors, paging, nil
}

func FindDoctor(ctx context.Context, id uint) (*Doctor, error) {
	return findDoctor(db.WithContext(ctx), id)
}

// UpdateDoctor replaces the writable fields of doctor id with input.
func UpdateDoctor(ctx context.Context, id uint, input DoctorInput) (*Doctor, error) {
	return updateDoctor(ctx, id, func(*Doctor) (DoctorInput, error) {
		return input, nil
	})
}

// PatchDoctor lets patch overwrite the fields it was given on top of the stored doctor,
// then validates and saves the result.
func PatchDoctor(ctx context.Context, id uint, patch func(*DoctorInput) error) (*Doctor, error) {
	return updateDoctor(ctx, id, func(doctor *Doctor) (DoctorInput, error) {
		input := doctor.Input()
		err := patch(&input)
		return input, err
	})
}

func DeleteDoctor(ctx context.Context, id uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doctor, err := findDoctor(tx, id)
		if err != nil {
			return err
		}

		return tx.Delete(doctor).Error
	})
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func updateDoctor(ctx context.Context, id uint, inputFor func(*Doctor) (DoctorInput, error)) (*Doctor, error) {
	var doctor *Doctor

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		doctor, err = findDoctor(tx, id)
		if err != nil {
			return err
		}

		input, err := inputFor(doctor)
		if err != nil {
			return err
		}

		if err := validateDoctor(tx, input, doctor.ID); err != nil {
			return err
		}

		input.applyTo(doctor)
		return translateUniqueViolation(tx.Save(doctor).Error)
	})
	if err != nil {
		return nil, err
	}

	return doctor, nil
}

func findDoctor(tx *gorm.DB, id uint) (*Doctor, error) {
	doctor := Doctor{}

	err := tx.First(&doctor, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "Doctor"}
	}
	if err != nil {
		return nil, err
	}

	return &doctor, nil
}

// validateDoctor checks field rules and uniqueness, excluding the doctor with selfID.
func validateDoctor(tx *gorm.DB, input DoctorInput, selfID uint) error {
	verr := validateStruct(input)

	if input.ExperienceYears != nil && *input.ExperienceYears < 0 {
		verr.Add("experience_years", "Experience years cannot be negative.")
	}

	if input.ConsultationFee != nil && *input.ConsultationFee <= 0 {
		verr.Add("consultation_fee", "Consultation fee must be greater than zero.")
	}

	if input.ConsultationFee != nil && *input.ConsultationFee >= 1e8 {
		verr.Add("consultation_fee", "Ensure that there are no more than 10 digits in total.")
	}

	uniqueChecks := []struct {
		field, column, value, index string
	}{
		{"email", "email", normalizeEmail(input.Email), "idx_doctors_email"},
		{"license_number", "license_number", input.LicenseNumber, "idx_doctors_license_number"},
	}

	for _, check := range uniqueChecks {
		if _, invalid := verr.Fields[check.field]; invalid {
			continue
		}

		taken, err := exists(tx.Model(&Doctor{}).Where(check.column+" = ? AND id <> ?", check.value, selfID))
		if err != nil {
			return err
		}
		if taken {
			verr.Add(check.field, uniqueViolations[check.index].message)
		}
	}

	return verr.OrNil()
}

func (input DoctorInput) applyTo(doctor *Doctor) {
	doctor.Name = input.Name
	doctor.Email = normalizeEmail(input.Email)
	doctor.PhoneNumber = input.PhoneNumber
	doctor.Specialization = input.Specialization
	doctor.Qualification = input.Qualification
	doctor.LicenseNumber = input.LicenseNumber
	doctor.ClinicAddress = input.ClinicAddress

	if input.ExperienceYears != nil {
		doctor.ExperienceYears = *input.ExperienceYears
	}
	if input.ConsultationFee != nil {
		doctor.ConsultationFee = *input.ConsultationFee
	}
	if input.IsAvailable != nil {
		doctor.IsAvailable = *input.IsAvailable
	}
}
