package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newRouter() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = requestIDMiddleware(loggingMiddleware(http.HandlerFunc(notFound)))
	router.MethodNotAllowedHandler = requestIDMiddleware(loggingMiddleware(http.HandlerFunc(methodNotAllowed)))
	router.Use(requestIDMiddleware, loggingMiddleware, metricsMiddleware)

	router.HandleFunc("/healthz", healthz).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})).Methods("GET")
	router.HandleFunc("/.well-known/jwks.json", jwks).Methods("GET")
	router.HandleFunc("/api", apiRoot).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(initialContextMiddleware)

	// Public routes
	api.HandleFunc("/auth/register", register).Methods("POST")
	api.HandleFunc("/auth/login", login).Methods("POST")
	api.HandleFunc("/auth/token/refresh", refreshToken).Methods("POST")

	protected := api.NewRoute().Subrouter()
	protected.Use(protectedRouteMiddleware)

	protected.HandleFunc("/auth/me", me).Methods("GET")

	protected.HandleFunc("/patients", listPatients).Methods("GET")
	protected.HandleFunc("/patients", createPatient).Methods("POST")
	protected.HandleFunc("/patients/{id:[0-9]+}", getPatient).Methods("GET")
	protected.HandleFunc("/patients/{id:[0-9]+}", updatePatient).Methods("PUT")
	protected.HandleFunc("/patients/{id:[0-9]+}", patchPatient).Methods("PATCH")
	protected.HandleFunc("/patients/{id:[0-9]+}", deletePatient).Methods("DELETE")

	protected.HandleFunc("/doctors", listDoctors).Methods("GET")
	protected.HandleFunc("/doctors", createDoctor).Methods("POST")
	protected.HandleFunc("/doctors/{id:[0-9]+}", getDoctor).Methods("GET")
	protected.HandleFunc("/doctors/{id:[0-9]+}", updateDoctor).Methods("PUT")
	protected.HandleFunc("/doctors/{id:[0-9]+}", patchDoctor).Methods("PATCH")
	protected.HandleFunc("/doctors/{id:[0-9]+}", deleteDoctor).Methods("DELETE")

	protected.HandleFunc("/mappings", listMappings).Methods("GET")
	protected.HandleFunc("/mappings", createMapping).Methods("POST")
	protected.HandleFunc("/mappings/{patient_id:[0-9]+}", doctorsForPatient).Methods("GET")
	protected.HandleFunc("/mappings/patient/{patient_id:[0-9]+}", doctorsForPatient).Methods("GET")
	protected.HandleFunc("/mappings/{id:[0-9]+}", deleteMapping).Methods("DELETE")

	return stripTrailingSlash(router)
}
