package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/Daskott/healthdesk/server/auth"
	"github.com/Daskott/healthdesk/server/auth/key"
	"github.com/Daskott/healthdesk/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var apiHandler http.Handler

func TestMain(m *testing.M) {
	models.InitializeTestDb()

	keyPair, err := key.GenerateKeyPair(2048)
	if err != nil {
		log.Panic(err)
	}
	tokenService = auth.NewTokenService(keyPair, "healthdesk-test", 5*time.Minute, time.Hour)
	apiHandler = newRouter()

	code := m.Run()
	models.Close()
	os.Exit(code)
}

type response struct {
	*httptest.ResponseRecorder
}

func (r response) json(t *testing.T) map[string]interface{} {
	t.Helper()

	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), &body), r.Body.String())
	return body
}

func doRequest(t *testing.T, method, path string, body interface{}, token string) response {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	apiHandler.ServeHTTP(rec, req)
	return response{rec}
}

// registerAndLogin creates an account for name and returns its access token.
func registerAndLogin(t *testing.T, name string) string {
	t.Helper()

	email := name + "@example.com"
	res := doRequest(t, "POST", "/api/auth/register/", map[string]string{
		"name":             name,
		"email":            email,
		"password":         "correct-horse",
		"password_confirm": "correct-horse",
	}, "")
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	res = doRequest(t, "POST", "/api/auth/login/", map[string]string{
		"email":    email,
		"password": "correct-horse",
	}, "")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	return res.json(t)["access"].(string)
}

func postPatient(t *testing.T, token, name string) uint {
	t.Helper()

	res := doRequest(t, "POST", "/api/patients/", map[string]interface{}{
		"name":          name,
		"email":         name + "@patients.com",
		"phone_number":  "+12345678901",
		"date_of_birth": "1990-04-12",
		"blood_group":   "O+",
	}, token)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	patient := res.json(t)["patient"].(map[string]interface{})
	return uint(patient["id"].(float64))
}

func postDoctor(t *testing.T, token, name string) uint {
	t.Helper()

	res := doRequest(t, "POST", "/api/doctors/", doctorBody(name, 150), token)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	doctor := res.json(t)["doctor"].(map[string]interface{})
	return uint(doctor["id"].(float64))
}

func doctorBody(name string, fee float64) map[string]interface{} {
	return map[string]interface{}{
		"name":             name,
		"email":            name + "@clinic.com",
		"phone_number":     "+12345678901",
		"specialization":   "Cardiologist",
		"qualification":    "MD",
		"experience_years": 5,
		"license_number":   "LIC-" + name,
		"clinic_address":   "1 Main St",
		"consultation_fee": fee,
	}
}

func TestEndToEndFlow(t *testing.T) {
	res := doRequest(t, "POST", "/api/auth/register/", map[string]string{
		"name":             "Grace",
		"email":            "grace@example.com",
		"password":         "correct-horse",
		"password_confirm": "correct-horse",
	}, "")
	require.Equal(t, http.StatusCreated, res.Code)
	registered := res.json(t)
	assert.Equal(t, "User registered successfully", registered["message"])
	assert.NotContains(t, res.Body.String(), "password")

	res = doRequest(t, "POST", "/api/auth/login/", map[string]string{
		"email":    "grace@example.com",
		"password": "correct-horse",
	}, "")
	require.Equal(t, http.StatusOK, res.Code)
	login := res.json(t)
	assert.Equal(t, "Login successful", login["message"])
	access := login["access"].(string)
	refresh := login["refresh"].(string)

	res = doRequest(t, "GET", "/api/auth/me/", nil, access)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "grace@example.com", res.json(t)["email"])

	patientID := postPatient(t, access, "grace-patient")
	doctorID := postDoctor(t, access, "grace-doctor")

	res = doRequest(t, "POST", "/api/mappings/", map[string]interface{}{
		"patient": patientID,
		"doctor":  doctorID,
		"notes":   "first visit",
	}, access)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	created := res.json(t)
	assert.Equal(t, "Doctor assigned to patient successfully", created["message"])
	mapping := created["mapping"].(map[string]interface{})
	assert.Equal(t, "Grace", mapping["assigned_by_name"])
	mappingID := uint(mapping["id"].(float64))

	byPatient := doRequest(t, "GET", fmt.Sprintf("/api/mappings/%v/", patientID), nil, access)
	require.Equal(t, http.StatusOK, byPatient.Code)
	result := byPatient.json(t)
	assert.EqualValues(t, 1, result["total_doctors"])
	assert.Equal(t, "grace-patient", result["patient_name"])

	aliased := doRequest(t, "GET", fmt.Sprintf("/api/mappings/patient/%v", patientID), nil, access)
	require.Equal(t, http.StatusOK, aliased.Code)
	assert.JSONEq(t, byPatient.Body.String(), aliased.Body.String())

	res = doRequest(t, "GET", "/api/mappings", nil, access)
	require.Equal(t, http.StatusOK, res.Code)
	assert.EqualValues(t, 1, res.json(t)["count"])

	res = doRequest(t, "DELETE", fmt.Sprintf("/api/mappings/%v/", mappingID), nil, access)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Dr. grace-doctor removed from patient grace-patient successfully", res.json(t)["message"])

	res = doRequest(t, "DELETE", fmt.Sprintf("/api/mappings/%v/", mappingID), nil, access)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = doRequest(t, "GET", fmt.Sprintf("/api/mappings/%v/", patientID), nil, access)
	require.Equal(t, http.StatusOK, res.Code)
	afterDelete := res.json(t)
	assert.EqualValues(t, 0, afterDelete["total_doctors"])
	assert.Empty(t, afterDelete["doctors"])

	res = doRequest(t, "POST", "/api/auth/token/refresh/", map[string]string{"refresh": refresh}, "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotEmpty(t, res.json(t)["access"])

	res = doRequest(t, "POST", "/api/auth/token/refresh/", map[string]string{"refresh": access}, "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	registerAndLogin(t, "hopper")

	unknown := doRequest(t, "POST", "/api/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "correct-horse",
	}, "")
	wrongPassword := doRequest(t, "POST", "/api/auth/login", map[string]string{
		"email":    "hopper@example.com",
		"password": "wrong-horse",
	}, "")

	mistyped := doRequest(t, "POST", "/api/auth/login", map[string]interface{}{
		"email":    5,
		"password": "correct-horse",
	}, "")
	malformed := doRequest(t, "POST", "/api/auth/login", "{not json", "")

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	for _, res := range []response{wrongPassword, mistyped, malformed} {
		assert.Equal(t, unknown.Code, res.Code)
		assert.JSONEq(t, unknown.Body.String(), res.Body.String())
	}
	assert.Equal(t, "Login failed", unknown.json(t)["error"])
}

func TestPatientsAreScopedToTheirOwner(t *testing.T) {
	owner := registerAndLogin(t, "owner")
	stranger := registerAndLogin(t, "stranger")
	patientID := postPatient(t, owner, "owned-patient")
	path := fmt.Sprintf("/api/patients/%v", patientID)

	res := doRequest(t, "GET", path, nil, owner)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "owner@example.com", res.json(t)["created_by_details"].(map[string]interface{})["email"])

	for _, method := range []string{"GET", "PUT", "PATCH", "DELETE"} {
		t.Run(method, func(t *testing.T) {
			res := doRequest(t, method, path, map[string]string{"name": "x", "email": "x@patients.com"}, stranger)
			assert.Equal(t, http.StatusNotFound, res.Code)
			assert.Equal(t, "Patient not found", res.json(t)["error"])
		})
	}

	res = doRequest(t, "GET", "/api/patients", nil, stranger)
	require.Equal(t, http.StatusOK, res.Code)
	assert.EqualValues(t, 0, res.json(t)["count"])

	res = doRequest(t, "POST", "/api/mappings", map[string]interface{}{
		"patient": patientID,
		"doctor":  postDoctor(t, stranger, "stranger-doctor"),
	}, stranger)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestPatchPatientKeepsOtherFields(t *testing.T) {
	token := registerAndLogin(t, "patcher")
	patientID := postPatient(t, token, "patched-patient")
	path := fmt.Sprintf("/api/patients/%v/", patientID)

	res := doRequest(t, "PATCH", path, map[string]interface{}{"name": "Renamed", "created_by": 999}, token)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	patient := res.json(t)["patient"].(map[string]interface{})
	assert.Equal(t, "Renamed", patient["name"])
	assert.Equal(t, "patched-patient@patients.com", patient["email"])
	assert.Equal(t, "O+", patient["blood_group"])
	assert.Equal(t, "1990-04-12", patient["date_of_birth"])
	assert.NotEqualValues(t, 999, patient["created_by"])

	res = doRequest(t, "DELETE", path, nil, token)
	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.Empty(t, res.Body.String())

	res = doRequest(t, "GET", path, nil, token)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestRequestErrors(t *testing.T) {
	token := registerAndLogin(t, "validator")

	tests := []struct {
		description string
		method      string
		path        string
		body        interface{}
		status      int
		detailField string
	}{
		{"zero consultation fee", "POST", "/api/doctors", doctorBody("free-doctor", 0), http.StatusBadRequest, "consultation_fee"},
		{"bad phone number", "POST", "/api/patients", map[string]string{"name": "p", "email": "p@patients.com", "phone_number": "12"}, http.StatusBadRequest, "phone_number"},
		{"wrong json type", "POST", "/api/patients", map[string]interface{}{"name": 7, "email": "q@patients.com"}, http.StatusBadRequest, "name"},
		{"malformed json", "POST", "/api/patients", "{not json", http.StatusBadRequest, "error"},
		{"missing mapping fields", "POST", "/api/mappings", map[string]string{}, http.StatusBadRequest, "patient"},
		{"unknown doctor id", "GET", "/api/doctors/99999", nil, http.StatusNotFound, ""},
		{"non numeric id", "GET", "/api/doctors/abc", nil, http.StatusNotFound, ""},
		{"unsupported method", "PUT", "/api/mappings", nil, http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			res := doRequest(t, tt.method, tt.path, tt.body, token)
			require.Equal(t, tt.status, res.Code, res.Body.String())

			body := res.json(t)
			assert.NotEmpty(t, body["error"])
			if tt.detailField != "" {
				assert.Contains(t, body["details"], tt.detailField)
			}
		})
	}
}

func TestDuplicateLicenseIsRejected(t *testing.T) {
	token := registerAndLogin(t, "licenser")
	postDoctor(t, token, "licensed")

	body := doctorBody("licensed-twin", 150)
	body["license_number"] = "LIC-licensed"

	res := doRequest(t, "POST", "/api/doctors", body, token)
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.json(t)["details"], "license_number")
}

func TestProtectedRoutesRequireAValidToken(t *testing.T) {
	tests := []struct {
		description string
		token       string
		message     string
	}{
		{"no token", "", "Authentication credentials were not provided."},
		{"garbage token", "not-a-jwt", "Given token not valid for any token type"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			res := doRequest(t, "GET", "/api/patients", nil, tt.token)
			require.Equal(t, http.StatusUnauthorized, res.Code)
			assert.NotEmpty(t, res.Header().Get("WWW-Authenticate"))

			body := res.json(t)
			assert.Equal(t, "Authentication failed", body["error"])
			assert.Equal(t, []interface{}{tt.message}, body["details"].(map[string]interface{})["error"])
		})
	}
}

func TestPublicEndpoints(t *testing.T) {
	res := doRequest(t, "GET", "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, res.Code)

	res = doRequest(t, "GET", "/api/", nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.json(t), "endpoints")

	res = doRequest(t, "GET", "/.well-known/jwks.json", nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, res.json(t)["keys"], 1)

	res = doRequest(t, "GET", "/metrics", nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "healthdesk_http_requests_total")

	res = doRequest(t, "GET", "/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.NotEmpty(t, res.Header().Get(HEADER_REQUEST_ID))
}
