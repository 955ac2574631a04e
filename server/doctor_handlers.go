package server

import (
	"net/http"

	"github.com/Daskott/healthdesk/server/models"
)

var doctorFields = map[string]bool{
	"name":             true,
	"email":            true,
	"phone_number":     true,
	"specialization":   true,
	"qualification":    true,
	"experience_years": true,
	"license_number":   true,
	"clinic_address":   true,
	"consultation_fee": true,
	"is_available":     true,
}

func listDoctors(rw http.ResponseWriter, r *http.Request) {
	doctors, paging, err := models.Doctors(r.Context(), requestedPage(r))
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	summaries := make([]models.DoctorSummary, 0, len(doctors))
	for i := range doctors {
		summaries = append(summaries, doctors[i].ToSummary())
	}

	writeResponse(rw, newListPayload("doctors", len(summaries), summaries, paging), http.StatusOK)
}

func createDoctor(rw http.ResponseWriter, r *http.Request) {
	input := models.DoctorInput{}
	if err := decodeBody(r, &input); err != nil {
		writeError(rw, r, "Failed to create doctor", err)
		return
	}

	doctor, err := models.CreateDoctor(r.Context(), input)
	if err != nil {
		writeError(rw, r, "Failed to create doctor", err)
		return
	}

	writeResponse(rw, map[string]interface{}{
		"message": "Doctor created successfully",
		"doctor":  doctor.ToDetail(),
	}, http.StatusCreated)
}

func getDoctor(rw http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Doctor")
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	doctor, err := models.FindDoctor(r.Context(), id)
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	writeResponse(rw, doctor.ToDetail(), http.StatusOK)
}

func updateDoctor(rw http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Doctor")
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	input := models.DoctorInput{}
	if err := decodeBody(r, &input); err != nil {
		writeError(rw, r, "Failed to update doctor", err)
		return
	}

	doctor, err := models.UpdateDoctor(r.Context(), id, input)
	if err != nil {
		writeError(rw, r, "Failed to update doctor", err)
		return
	}

	writeResponse(rw, map[string]interface{}{
		"message": "Doctor updated successfully",
		"doctor":  doctor.ToDetail(),
	}, http.StatusOK)
}

func patchDoctor(rw http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Doctor")
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	patch, err := decodePatch(r, doctorFields)
	if err != nil {
		writeError(rw, r, "Failed to update doctor", err)
		return
	}

	doctor, err := models.PatchDoctor(r.Context(), id, func(input *models.DoctorInput) error {
		return unmarshalBody(patch, input)
	})
	if err != nil {
		writeError(rw, r, "Failed to update doctor", err)
		return
	}

	writeResponse(rw, map[string]interface{}{
		"message": "Doctor updated successfully",
		"doctor":  doctor.ToDetail(),
	}, http.StatusOK)
}

func deleteDoctor(rw http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Doctor")
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	if err := models.DeleteDoctor(r.Context(), id); err != nil {
		writeError(rw, r, "", err)
		return
	}

	writeResponse(rw, nil, http.StatusNoContent)
}
