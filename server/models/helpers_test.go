package models

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Daskott/healthdesk/server/auth"
	"github.com/Daskott/healthdesk/server/auth/key"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func newTestTokenService(t *testing.T) *auth.TokenService {
	keyPair, err := key.GenerateKeyPair(1024)
	require.Nil(t, err)

	return auth.NewTokenService(keyPair, "healthdesk-test", time.Minute, time.Hour)
}

func createTestUser(t *testing.T, name string) *User {
	user, err := RegisterUser(ctx, RegisterInput{
		Name:            name,
		Email:           fmt.Sprintf("%v@example.com", name),
		Password:        "correct-horse",
		PasswordConfirm: "correct-horse",
	}, nil)
	require.Nil(t, err)

	return user
}

func doctorInput(name, email, license string, fee float64) DoctorInput {
	experienceYears := 5
	return DoctorInput{
		Name:            name,
		Email:           email,
		PhoneNumber:     "+14165550100",
		Specialization:  "Cardiologist",
		Qualification:   "MBBS, MD",
		ExperienceYears: &experienceYears,
		LicenseNumber:   license,
		ClinicAddress:   "1 King St W, Toronto",
		ConsultationFee: &fee,
	}
}

func createTestDoctor(t *testing.T, name string) *Doctor {
	doctor, err := CreateDoctor(ctx, doctorInput(
		name, fmt.Sprintf("%v@clinic.com", name), fmt.Sprintf("LIC-%v", name), 150,
	))
	require.Nil(t, err)

	return doctor
}

func createTestPatient(t *testing.T, owner *User, name string) *Patient {
	patient, err := CreatePatient(ctx, owner.ID, PatientInput{
		Name:  name,
		Email: fmt.Sprintf("%v@patients.com", name),
	})
	require.Nil(t, err)

	return patient
}

func requireValidationError(t *testing.T, err error) *ValidationError {
	verr := &ValidationError{}
	require.True(t, errors.As(err, &verr), "expected a ValidationError, got %v", err)

	return verr
}
