package server

import (
	"net/http"

	"github.com/Daskott/healthdesk/server/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func register(rw http.ResponseWriter, r *http.Request) {
	input := models.RegisterInput{}
	if err := decodeBody(r, &input); err != nil {
		writeError(rw, r, "Registration failed", err)
		return
	}

	user, err := models.RegisterUser(r.Context(), input, passwordPolicy)
	if err != nil {
		writeError(rw, r, "Registration failed", err)
		return
	}

	writeResponse(rw, map[string]interface{}{
		"message": "User registered successfully",
		"user":    user.ToSummary(),
	}, http.StatusCreated)
}

func login(rw http.ResponseWriter, r *http.Request) {
	// An unreadable body fails like bad credentials
	data := loginRequest{}
	if err := decodeBody(r, &data); err != nil {
		writeError(rw, r, "Login failed", models.ErrInvalidCredentials)
		return
	}

	result, err := models.Login(r.Context(), data.Email, data.Password, tokenService)
	if err != nil {
		writeError(rw, r, "Login failed", err)
		return
	}

	writeResponse(rw, map[string]interface{}{
		"message": "Login successful",
		"access":  result.Access,
		"refresh": result.Refresh,
		"user":    result.User,
	}, http.StatusOK)
}

func refreshToken(rw http.ResponseWriter, r *http.Request) {
	data := refreshRequest{}
	if err := decodeBody(r, &data); err != nil {
		writeError(rw, r, "Token refresh failed", err)
		return
	}

	access, err := models.RefreshAccess(r.Context(), data.Refresh, tokenService)
	if err != nil {
		writeError(rw, r, "Token refresh failed", err)
		return
	}

	writeResponse(rw, map[string]string{"access": access}, http.StatusOK)
}

func me(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, caller(r).ToDetail(), http.StatusOK)
}
