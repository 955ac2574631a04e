package models

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type PatientDoctorMapping struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	PatientID    uint      `json:"patient" gorm:"not null;uniqueIndex:idx_patient_doctor,priority:1"`
	Patient      Patient   `json:"-"`
	DoctorID     uint      `json:"doctor" gorm:"not null;uniqueIndex:idx_patient_doctor,priority:2;index"`
	Doctor       Doctor    `json:"-"`
	AssignedByID *uint     `json:"assigned_by" gorm:"index"`
	AssignedBy   *User     `json:"-"`
	AssignedDate time.Time `json:"assigned_date" gorm:"not null;index"`
	Notes        string    `json:"notes"`
	IsActive     bool      `json:"is_active" gorm:"not null;index"`
}

// MappingInput is what a caller supplies to assign a doctor to a patient.
// Client-sent is_active or assigned_by values have no field here and are dropped.
type MappingInput struct {
	Patient uint   `json:"patient" validate:"required"`
	Doctor  uint   `json:"doctor" validate:"required"`
	Notes   string `json:"notes"`
}

type MappingSummary struct {
	ID                   uint      `json:"id"`
	PatientName          string    `json:"patient_name"`
	DoctorName           string    `json:"doctor_name"`
	DoctorSpecialization string    `json:"doctor_specialization"`
	AssignedDate         time.Time `json:"assigned_date"`
	IsActive             bool      `json:"is_active"`
}

type MappingDetail struct {
	ID             uint           `json:"id"`
	Patient        uint           `json:"patient"`
	Doctor         uint           `json:"doctor"`
	PatientDetails PatientSummary `json:"patient_details"`
	DoctorDetails  DoctorDetail   `json:"doctor_details"`
	AssignedBy     *uint          `json:"assigned_by"`
	AssignedByName *string        `json:"assigned_by_name"`
	AssignedDate   time.Time      `json:"assigned_date"`
	Notes          string         `json:"notes"`
	IsActive       bool           `json:"is_active"`
}

type DoctorsForPatientResult struct {
	PatientID    uint           `json:"patient_id"`
	PatientName  string         `json:"patient_name"`
	TotalDoctors int            `json:"total_doctors"`
	Doctors      []DoctorDetail `json:"doctors"`
}

func (mapping *PatientDoctorMapping) ToSummary() MappingSummary {
	return MappingSummary{
		ID:                   mapping.ID,
		PatientName:          mapping.Patient.Name,
		DoctorName:           mapping.Doctor.Name,
		DoctorSpecialization: mapping.Doctor.Specialization,
		AssignedDate:         mapping.AssignedDate,
		IsActive:             mapping.IsActive,
	}
}

func (mapping *PatientDoctorMapping) ToDetail() MappingDetail {
	detail := MappingDetail{
		ID:             mapping.ID,
		Patient:        mapping.PatientID,
		Doctor:         mapping.DoctorID,
		PatientDetails: mapping.Patient.ToSummary(),
		DoctorDetails:  mapping.Doctor.ToDetail(),
		AssignedBy:     mapping.AssignedByID,
		AssignedDate:   mapping.AssignedDate,
		Notes:          mapping.Notes,
		IsActive:       mapping.IsActive,
	}

	if mapping.AssignedBy != nil {
		detail.AssignedByName = &mapping.AssignedBy.Name
	}

	return detail
}

func (mapping *PatientDoctorMapping) TableName() string {
	return "patient_doctor_mappings"
}

// CreateMapping assigns input.Doctor to input.Patient on behalf of callerID, who must own the patient.
func CreateMapping(ctx context.Context, callerID uint, input MappingInput) (*PatientDoctorMapping, error) {
	var mapping *PatientDoctorMapping

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if verr := validateStruct(input); verr.HasErrors() {
			return verr
		}

		patient := Patient{}
		err := tx.Select("id", "created_by_id").First(&patient, "id = ?", input.Patient).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewValidationError("patient", invalidPrimaryKey(input.Patient))
		}
		if err != nil {
			return err
		}

		if patient.CreatedByID != callerID {
			return NewValidationError("patient", "You can only assign doctors to your own patients.")
		}

		_, err = findDoctor(tx, input.Doctor)
		if errors.Is(err, ErrNotFound) {
			return NewValidationError("doctor", invalidPrimaryKey(input.Doctor))
		}
		if err != nil {
			return err
		}

		duplicate, err := exists(tx.Model(&PatientDoctorMapping{}).
			Where("patient_id = ? AND doctor_id = ?", input.Patient, input.Doctor))
		if err != nil {
			return err
		}
		if duplicate {
			return NewValidationError(NON_FIELD_ERRORS, uniqueViolations["idx_patient_doctor"].message)
		}

		assignedBy := callerID
		created := &PatientDoctorMapping{
			PatientID:    input.Patient,
			DoctorID:     input.Doctor,
			AssignedByID: &assignedBy,
			AssignedDate: nowUTC(),
			Notes:        input.Notes,
			IsActive:     true,
		}
		if err := translateUniqueViolation(tx.Create(created).Error); err != nil {
			return err
		}

		mapping, err = findMapping(tx, callerID, created.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return mapping, nil
}

// MappingsForCaller lists the mappings of every patient callerID owns, newest first.
func MappingsForCaller(ctx context.Context, callerID uint, page Page) ([]PatientDoctorMapping, *Paging, error) {
	mappings := []PatientDoctorMapping{}
	var paging *Paging

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var query *gorm.DB
		var err error

		query, paging, err = listPage(visibleMappings(tx, callerID), page)
		if err != nil {
			return err
		}

		return query.Preload("Patient").Preload("Doctor").
			Order("assigned_date DESC").Order("id DESC").
			Find(&mappings).Error
	})
	if err != nil {
		return nil, nil, err
	}

	return mappings, paging, nil
}

// DoctorsForPatient returns the doctors actively mapped to patientID. The patient must be owned by callerID.
func DoctorsForPatient(ctx context.Context, callerID, patientID uint) (*DoctorsForPatientResult, error) {
	var result *DoctorsForPatientResult

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		patient, err := findPatient(tx, callerID, patientID)
		if err != nil {
			return err
		}

		mappings := []PatientDoctorMapping{}
		err = tx.Preload("Doctor").
			Where("patient_id = ? AND is_active = ?", patient.ID, true).
			Order("assigned_date DESC").Order("id DESC").
			Find(&mappings).Error
		if err != nil {
			return err
		}

		doctors := make([]DoctorDetail, 0, len(mappings))
		for _, mapping := range mappings {
			doctors = append(doctors, mapping.Doctor.ToDetail())
		}

		result = &DoctorsForPatientResult{
			PatientID:    patient.ID,
			PatientName:  patient.Name,
			TotalDoctors: len(doctors),
			Doctors:      doctors,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteMapping removes mapping id if it belongs to one of callerID's patients
// and returns a confirmation naming the doctor and patient.
func DeleteMapping(ctx context.Context, callerID, id uint) (string, error) {
	var message string

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mapping, err := findMapping(tx, callerID, id)
		if err != nil {
			return err
		}

		if err := tx.Delete(&PatientDoctorMapping{}, mapping.ID).Error; err != nil {
			return err
		}

		message = fmt.Sprintf("Dr. %v removed from patient %v successfully", mapping.Doctor.Name, mapping.Patient.Name)
		return nil
	})
	if err != nil {
		return "", err
	}

	return message, nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

// visibleMappings restricts mappings to the patients callerID owns.
func visibleMappings(tx *gorm.DB, callerID uint) *gorm.DB {
	patientIDs := tx.Model(&Patient{}).Select("id").Where("created_by_id = ?", callerID)
	return tx.Model(&PatientDoctorMapping{}).Where("patient_id IN (?)", patientIDs)
}

func findMapping(tx *gorm.DB, callerID, id uint) (*PatientDoctorMapping, error) {
	mapping := PatientDoctorMapping{}

	err := visibleMappings(tx, callerID).
		Preload("Patient").
		Preload("Patient.CreatedBy", func(db *gorm.DB) *gorm.DB {
			return db.Select(allFieldsExceptPassword)
		}).
		Preload("Doctor").
		Preload("AssignedBy", func(db *gorm.DB) *gorm.DB {
			return db.Select(allFieldsExceptPassword)
		}).
		First(&mapping, "patient_doctor_mappings.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "Mapping"}
	}
	if err != nil {
		return nil, err
	}

	return &mapping, nil
}

func invalidPrimaryKey(id uint) string {
	return fmt.Sprintf("Invalid pk \"%v\" - object does not exist.", id)
}
