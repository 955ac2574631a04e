package server

import (
	"net/http"

	"github.com/Daskott/healthdesk/server/models"
)

func listMappings(rw http.ResponseWriter, r *http.Request) {
	mappings, paging, err := models.MappingsForCaller(r.Context(), caller(r).ID, requestedPage(r))
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	summaries := make([]models.MappingSummary, 0, len(mappings))
	for i := range mappings {
		summaries = append(summaries, mappings[i].ToSummary())
	}

	writeResponse(rw, newListPayload("mappings", len(summaries), summaries, paging), http.StatusOK)
}

func createMapping(rw http.ResponseWriter, r *http.Request) {
	input := models.MappingInput{}
	if err := decodeBody(r, &input); err != nil {
		writeError(rw, r, "Failed to assign doctor to patient", err)
		return
	}

	mapping, err := models.CreateMapping(r.Context(), caller(r).ID, input)
	if err != nil {
		writeError(rw, r, "Failed to assign doctor to patient", err)
		return
	}

	writeResponse(rw, map[string]interface{}{
		"message": "Doctor assigned to patient successfully",
		"mapping": mapping.ToDetail(),
	}, http.StatusCreated)
}

// doctorsForPatient serves both /mappings/{patient_id} and /mappings/patient/{patient_id}.
func doctorsForPatient(rw http.ResponseWriter, r *http.Request) {
	patientID, err := pathID(r, "patient_id", "Patient")
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	result, err := models.DoctorsForPatient(r.Context(), caller(r).ID, patientID)
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	writeResponse(rw, result, http.StatusOK)
}

func deleteMapping(rw http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Mapping")
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	message, err := models.DeleteMapping(r.Context(), caller(r).ID, id)
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	writeResponse(rw, map[string]string{"message": message}, http.StatusOK)
}
