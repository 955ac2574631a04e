package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Daskott/healthdesk/server/auth/key"
	"github.com/Daskott/healthdesk/server/models"
	"github.com/Daskott/healthdesk/shared"
	"github.com/Daskott/healthdesk/utils"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

const MAX_BODY_BYTES = 1 << 20

var errMalformedBody = errors.New("Malformed request body")

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad interface{}, statusCode int) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(statusCode)

	if statusCode == http.StatusNoContent {
		return
	}

	if err := json.NewEncoder(rw).Encode(payLoad); err != nil {
		logg.Errorf("writeResponse: %v", err)
	}
}

// writeError maps err onto a status code and an ErrorPayload. title heads 400 and 401 responses.
func writeError(rw http.ResponseWriter, r *http.Request, title string, err error) {
	var verr *models.ValidationError
	var nerr *models.NotFoundError
	requestID := r.Header.Get(HEADER_REQUEST_ID)

	switch {
	case errors.As(err, &verr):
		logg.Infow(title, "requestID", requestID, "details", verr.Fields)
		writeResponse(rw, ErrorPayload{Error: title, Details: verr.Fields}, http.StatusBadRequest)

	case errors.Is(err, errMalformedBody):
		logg.Infow(title, "requestID", requestID, "error", err)
		writeResponse(rw, ErrorPayload{
			Error:   title,
			Details: map[string][]string{models.NON_FIELD_ERRORS: {err.Error()}},
		}, http.StatusBadRequest)

	case errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrAccountDisabled),
		errors.Is(err, models.ErrInvalidToken):
		logg.Infow(title, "requestID", requestID, "error", err)
		writeResponse(rw, ErrorPayload{
			Error:   title,
			Details: map[string][]string{models.NON_FIELD_ERRORS: {err.Error()}},
		}, http.StatusUnauthorized)

	case errors.As(err, &nerr):
		logg.Infow(nerr.Error(), "requestID", requestID)
		writeResponse(rw, ErrorPayload{Error: nerr.Error()}, http.StatusNotFound)

	default:
		logg.Errorw("request failed", "requestID", requestID, "method", r.Method, "uri", r.RequestURI, "error", err)
		writeResponse(rw, ErrorPayload{Error: "Internal server error"}, http.StatusInternalServerError)
	}
}

// decodeBody reads a JSON object from r into v. Type mismatches become field errors.
func decodeBody(r *http.Request, v interface{}) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}

	return unmarshalBody(body, v)
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MAX_BODY_BYTES))
	if err != nil {
		return nil, errors.Wrap(errMalformedBody, err.Error())
	}

	return body, nil
}

func unmarshalBody(body []byte, v interface{}) error {
	var typeErr *json.UnmarshalTypeError

	err := json.Unmarshal(body, v)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			return errMalformedBody
		}
		return models.NewValidationError(field, "Incorrect type. Expected "+typeErr.Type.String()+".")
	default:
		return errMalformedBody
	}
}

// decodePatch reads the JSON object in r and keeps only validFields, for merging onto a stored record.
func decodePatch(r *http.Request, validFields map[string]bool) ([]byte, error) {
	data := make(map[string]interface{})
	if err := decodeBody(r, &data); err != nil {
		return nil, err
	}

	removeUnknownFields(data, validFields)

	patch, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return patch, nil
}

func removeUnknownFields(args map[string]interface{}, validFields map[string]bool) {
	for key := range args {
		if !validFields[key] {
			delete(args, key)
		}
	}
}

// pathID parses the numeric route variable name. Values that cannot be ids are reported as not found.
func pathID(r *http.Request, name, resource string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 32)
	if err != nil || id == 0 {
		return 0, &models.NotFoundError{Resource: resource}
	}

	return uint(id), nil
}

// requestedPage reads the optional ?page=N query parameter.
func requestedPage(r *http.Request) models.Page {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return models.Page{}
	}

	return models.Page{Number: page, Size: models.MAX_PAGE_SIZE}
}

// ---------------------------------------------------------------------------------//
// Middleware Helper functions
// --------------------------------------------------------------------------------//

func decodeAndVerifyAuthHeader(ctx context.Context, authHeaderValue string) DecodedJWT {
	authHeaderList := strings.Split(authHeaderValue, "Bearer ")
	if len(authHeaderList) < 2 || strings.TrimSpace(authHeaderList[1]) == "" {
		return DecodedJWT{Err: errNoCredentials}
	}

	caller, err := models.Authenticate(ctx, strings.TrimSpace(authHeaderList[1]), tokenService)
	if err != nil {
		return DecodedJWT{Err: err}
	}

	return DecodedJWT{Caller: caller}
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("Healthdesk server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(server *http.Server) {
	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("Healthdesk server shutdown failed:%+s", err)
	}

	if err := models.Close(); err != nil {
		logg.Errorf("failed to close database: %v", err)
	}

	logg.Infof("Healthdesk server stopped properly")
}

// loadKeyPair reads the signing key from a PEM string or a PEM file path.
// Dev mode falls back to a throwaway key when none is configured.
func loadKeyPair(config shared.AuthConfig, devMode bool) (*key.KeyPair, error) {
	privateKeyPem := strings.TrimSpace(config.PrivateKeyPem)

	switch {
	case strings.HasPrefix(privateKeyPem, "-----BEGIN"):
		return key.NewKeyPairFromPem([]byte(privateKeyPem))
	case privateKeyPem != "":
		return key.NewKeyPairFromRSAPrivateKeyPem(privateKeyPem)
	case devMode:
		logg.Warn("auth.privateKeyPem is not set, signing tokens with a generated key")
		return key.GenerateKeyPair(2048)
	}

	return nil, errors.New("auth.privateKeyPem is required")
}

// ConfigDirectory retrieves the directory to store healthdesk data
// Or logs an error message and then calls os.Exit if it's unable to.
func ConfigDirectory(devMode bool) string {
	// Use 'healthdesk' folder in home directory for prod
	configFolderName := "healthdesk"
	rootDir, err := os.UserHomeDir()
	fatalOnError(err)

	// Use 'dev' folder in current directory for dev mode
	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		fatalOnError(err)
	}

	configDir := filepath.Join(rootDir, configFolderName)

	err = utils.CreateDirIfNotExist(configDir)
	fatalOnError(err)

	return configDir
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
