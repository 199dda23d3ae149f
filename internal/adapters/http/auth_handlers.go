package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/saivathsal/radix-server/internal/core/domain"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (rt *Router) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := rt.authUC.Register(r.Context(), req.Username, req.Email, req.Password, domain.Role(req.Role))
	if rt.metrics != nil {
		rt.metrics.RecordAuthAttempt("api", "register", err)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (rt *Router) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := rt.authUC.Login(r.Context(), req.Username, req.Password)
	if rt.metrics != nil {
		rt.metrics.RecordAuthAttempt("api", "login", err)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}
