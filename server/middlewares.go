package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Daskott/healthdesk/colors"
	"github.com/Daskott/healthdesk/server/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

const HEADER_REQUEST_ID = "X-Request-Id"

var errNoCredentials = errors.New("Authentication credentials were not provided.")

type RequestContextKey string

// DecodedJWT is the outcome of authenticating a request's bearer token.
type DecodedJWT struct {
	Caller *models.User
	Err    error
}

type ResponseWriterWithStatus struct {
	http.ResponseWriter
	Status int
}

func (r *ResponseWriterWithStatus) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestIDMiddleware keeps the caller's X-Request-Id or generates one, and echoes it back.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HEADER_REQUEST_ID)
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set(HEADER_REQUEST_ID, requestID)
		}

		w.Header().Set(HEADER_REQUEST_ID, requestID)
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		responseWriter := &ResponseWriterWithStatus{
			ResponseWriter: w,
			Status:         200,
		}

		defer func() {
			logg.Info(
				r.Method, " ",
				r.RequestURI, " ",
				colors.Status(responseWriter.Status), " ",
				colors.Yellow(fmt.Sprintf("[%v]", time.Since(start))), " ",
				colors.Blue(r.Header.Get(HEADER_REQUEST_ID)))
		}()

		next.ServeHTTP(responseWriter, r)
	})
}

func initialContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Add the authenticated caller, or the reason there is none, to the request context
		ctx := context.WithValue(r.Context(),
			RequestContextKey("decodedJWT"),
			decodeAndVerifyAuthHeader(r.Context(), r.Header.Get("Authorization")))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func protectedRouteMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodedJWT, ok := r.Context().Value(RequestContextKey("decodedJWT")).(DecodedJWT)
		if !ok {
			decodedJWT = DecodedJWT{Err: errNoCredentials}
		}

		if decodedJWT.Err != nil {
			if !isAuthError(decodedJWT.Err) {
				writeError(w, r, "", decodedJWT.Err)
				return
			}

			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			writeResponse(w, ErrorPayload{
				Error:   "Authentication failed",
				Details: map[string][]string{models.NON_FIELD_ERRORS: {decodedJWT.Err.Error()}},
			}, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// stripTrailingSlash lets every route answer with or without a trailing slash.
func stripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 1 && strings.HasSuffix(r.URL.Path, "/") {
			r.URL.Path = strings.TrimRight(r.URL.Path, "/")
			if r.URL.RawPath != "" {
				r.URL.RawPath = strings.TrimRight(r.URL.RawPath, "/")
			}
		}

		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

// caller returns the authenticated user of a request that passed protectedRouteMiddleware.
func caller(r *http.Request) *models.User {
	return r.Context().Value(RequestContextKey("decodedJWT")).(DecodedJWT).Caller
}

func isAuthError(err error) bool {
	return errors.Is(err, errNoCredentials) ||
		errors.Is(err, models.ErrInvalidToken) ||
		errors.Is(err, models.ErrAccountDisabled)
}

func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}

	template, err := route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}

	return template
}
