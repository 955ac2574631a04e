package server

import (
	"net/http"

	"github.com/Daskott/healthdesk/server/models"
)

var patientFields = map[string]bool{
	"name":            true,
	"email":           true,
	"phone_number":    true,
	"address":         true,
	"date_of_birth":   true,
	"blood_group":     true,
	"medical_history": true,
}

func listPatients(rw http.ResponseWriter, r *http.Request) {
	patients, paging, err := models.Patients(r.Context(), caller(r).ID, requestedPage(r))
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	summaries := make([]models.PatientSummary, 0, len(patients))
	for i := range patients {
		summaries = append(summaries, patients[i].ToSummary())
	}

	writeResponse(rw, newListPayload("patients", len(summaries), summaries, paging), http.StatusOK)
}

func createPatient(rw http.ResponseWriter, r *http.Request) {
	input := models.PatientInput{}
	if err := decodeBody(r, &input); err != nil {
		writeError(rw, r, "Failed to create patient", err)
		return
	}

	patient, err := models.CreatePatient(r.Context(), caller(r).ID, input)
	if err != nil {
		writeError(rw, r, "Failed to create patient", err)
		return
	}

	writeResponse(rw, map[string]interface{}{
		"message": "Patient created successfully",
		"patient": patient.ToDetail(),
	}, http.StatusCreated)
}

func getPatient(rw http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Patient")
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	patient, err := models.FindPatient(r.Context(), caller(r).ID, id)
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	writeResponse(rw, patient.ToDetail(), http.StatusOK)
}

func updatePatient(rw http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Patient")
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	input := models.PatientInput{}
	if err := decodeBody(r, &input); err != nil {
		writeError(rw, r, "Failed to update patient", err)
		return
	}

	patient, err := models.UpdatePatient(r.Context(), caller(r).ID, id, input)
	if err != nil {
		writeError(rw, r, "Failed to update patient", err)
		return
	}

	writeResponse(rw, map[string]interface{}{
		"message": "Patient updated successfully",
		"patient": patient.ToDetail(),
	}, http.StatusOK)
}

func patchPatient(rw http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Patient")
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	patch, err := decodePatch(r, patientFields)
	if err != nil {
		writeError(rw, r, "Failed to update patient", err)
		return
	}

	patient, err := models.PatchPatient(r.Context(), caller(r).ID, id, func(input *models.PatientInput) error {
		return unmarshalBody(patch, input)
	})
	if err != nil {
		writeError(rw, r, "Failed to update patient", err)
		return
	}

	writeResponse(rw, map[string]interface{}{
		"message": "Patient updated successfully",
		"patient": patient.ToDetail(),
	}, http.StatusOK)
}

func deletePatient(rw http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Patient")
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	if err := models.DeletePatient(r.Context(), caller(r).ID, id); err != nil {
		writeError(rw, r, "", err)
		return
	}

	writeResponse(rw, nil, http.StatusNoContent)
}
