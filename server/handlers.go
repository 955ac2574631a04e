package server

import (
	"net/http"

	"github.com/Daskott/healthdesk/server/auth/key"
	"github.com/Daskott/healthdesk/server/models"
)

// ErrorPayload is the body of every failed request.
type ErrorPayload struct {
	Error   string              `json:"error"`
	Details map[string][]string `json:"details,omitempty"`
}

// ListPayload wraps list responses. Entities is keyed by the entity's plural name.
type ListPayload map[string]interface{}

func newListPayload(key string, count int, entities interface{}, paging *models.Paging) ListPayload {
	payload := ListPayload{"count": count, key: entities}
	if paging != nil {
		payload["paging"] = paging
	}

	return payload
}

func apiRoot(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, map[string]interface{}{
		"message": "Welcome to Healthcare Backend API",
		"version": "1.0",
		"endpoints": map[string]interface{}{
			"authentication": map[string]string{
				"register": "/api/auth/register/",
				"login":    "/api/auth/login/",
				"refresh":  "/api/auth/token/refresh/",
				"me":       "/api/auth/me/",
			},
			"patients": map[string]string{
				"base":   "/api/patients/",
				"detail": "/api/patients/{id}/",
			},
			"doctors": map[string]string{
				"base":   "/api/doctors/",
				"detail": "/api/doctors/{id}/",
			},
			"mappings": map[string]string{
				"base":       "/api/mappings/",
				"assign":     "/api/mappings/",
				"by_patient": "/api/mappings/{patient_id}/",
				"remove":     "/api/mappings/{id}/",
			},
		},
		"jwks":    "/.well-known/jwks.json",
		"health":  "/healthz",
		"metrics": "/metrics",
	}, http.StatusOK)
}

func healthz(rw http.ResponseWriter, r *http.Request) {
	if err := models.Ping(r.Context()); err != nil {
		logg.Errorf("healthz: %v", err)
		writeResponse(rw, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
		return
	}

	writeResponse(rw, map[string]string{"status": "ok"}, http.StatusOK)
}

func jwks(rw http.ResponseWriter, r *http.Request) {
	keyPairJWK, err := tokenService.KeyPair().JWK()
	if err != nil {
		writeError(rw, r, "", err)
		return
	}

	writeResponse(rw, key.ExportJWKAsJWKS(keyPairJWK), http.StatusOK)
}

func notFound(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, ErrorPayload{Error: "Not found."}, http.StatusNotFound)
}

func methodNotAllowed(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, ErrorPayload{Error: "Method \"" + r.Method + "\" not allowed."}, http.StatusMethodNotAllowed)
}
