package ponyxpress_api

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Account   *models.Account `json:"account"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

func (a *PonyXpressAPI) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	acct, err := a.d.Identity.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, exp, err := a.d.Sessions.Issue(acct.ID, acct.Role)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "issue session"))
		return
	}
	a.d.Sessions.SetCookie(w, token, exp)
	writeJSON(w, r, http.StatusOK, loginResponse{Account: acct, Token: token, ExpiresAt: exp})
}

func (a *PonyXpressAPI) logout(w http.ResponseWriter, r *http.Request) {
	a.d.Sessions.ClearCookie(w)
	writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

func (a *PonyXpressAPI) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, accountFrom(r.Context()))
}
