package models

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

const NON_FIELD_ERRORS = "error"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("Invalid credentials. Please check your email and password.")
	ErrAccountDisabled    = errors.New("User account is disabled.")
	ErrInvalidToken       = errors.New("Given token not valid for any token type")

	sqliteUniqueMsg = regexp.MustCompile(`UNIQUE constraint failed: (.+)$`)
)

// ValidationError collects messages per field. Fields with no name use NON_FIELD_ERRORS.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError(field, message string) *ValidationError {
	verr := &ValidationError{}
	verr.Add(field, message)
	return verr
}

func (verr *ValidationError) Add(field, message string) {
	if verr.Fields == nil {
		verr.Fields = map[string][]string{}
	}
	verr.Fields[field] = append(verr.Fields[field], message)
}

func (verr *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	for field, messages := range other.Fields {
		for _, message := range messages {
			verr.Add(field, message)
		}
	}
}

func (verr *ValidationError) HasErrors() bool {
	return verr != nil && len(verr.Fields) > 0
}

// OrNil returns verr as an error only when it holds messages.
func (verr *ValidationError) OrNil() error {
	if !verr.HasErrors() {
		return nil
	}
	return verr
}

func (verr *ValidationError) Error() string {
	fields := make([]string, 0, len(verr.Fields))
	for field := range verr.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%v: %v", field, strings.Join(verr.Fields[field], " ")))
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

type NotFoundError struct {
	Resource string
}

func (nerr *NotFoundError) Error() string {
	return fmt.Sprintf("%v not found", nerr.Resource)
}

func (nerr *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// uniqueViolation describes the friendly error for one unique index.
type uniqueViolation struct {
	table   string
	columns []string
	field   string
	message string
}

var uniqueViolations = map[string]uniqueViolation{
	"idx_users_email":            {"users", []string{"email"}, "email", "A user with this email already exists."},
	"idx_patients_email":         {"patients", []string{"email"}, "email", "A patient with this email already exists."},
	"idx_doctors_email":          {"doctors", []string{"email"}, "email", "A doctor with this email already exists."},
	"idx_doctors_license_number": {"doctors", []string{"license_number"}, "license_number", "A doctor with this license number already exists."},
	"idx_patient_doctor":         {"patient_doctor_mappings", []string{"patient_id", "doctor_id"}, NON_FIELD_ERRORS, "This patient is already assigned to this doctor."},
}

// translateUniqueViolation turns a unique index violation from either driver into
// the ValidationError the matching pre-check would have produced. Other errors pass through.
func translateUniqueViolation(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if violation, ok := uniqueViolations[pgErr.ConstraintName]; ok {
			return NewValidationError(violation.field, violation.message)
		}
		return err
	}

	match := sqliteUniqueMsg.FindStringSubmatch(err.Error())
	if match == nil {
		return err
	}

	failed := map[string]bool{}
	for _, column := range strings.Split(match[1], ",") {
		failed[strings.TrimSpace(column)] = true
	}

	for _, violation := range uniqueViolations {
		if len(violation.columns) != len(failed) {
			continue
		}

		matches := true
		for _, column := range violation.columns {
			if !failed[violation.table+"."+column] {
				matches = false
				break
			}
		}

		if matches {
			return NewValidationError(violation.field, violation.message)
		}
	}

	return err
}
