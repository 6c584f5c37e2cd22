package handler

import (
	"net/http"
	"time"

	"github.com/freeeve/partycards/internal/auth"
)

const identityCookieAge = 365 * 24 * time.Hour

// UserHandler mints player identities and socket tokens.
type UserHandler struct {
	ids    *auth.IdentityManager
	jwtMgr *auth.JWTManager
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(ids *auth.IdentityManager, jwtMgr *auth.JWTManager) *UserHandler {
	return &UserHandler{ids: ids, jwtMgr: jwtMgr}
}

type registerResponse struct {
	GUID   string `json:"guid"`
	Secret string `json:"secret"`
	Token  string `json:"token"`
}

// Register handles POST /api/v1/user/register. A caller that already
// holds a valid identity keeps it; anyone else gets a fresh one. Either
// way the identity cookies are (re)set and a socket token is issued.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromRequest(r)
	if h.ids.Validate(id) != nil {
		id = h.ids.Mint()
	}

	token, err := h.jwtMgr.GenerateSocketToken(id.GUID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	setIdentityCookie(w, auth.GUIDCookie, id.GUID)
	setIdentityCookie(w, auth.SecretCookie, id.Secret)
	writeJSON(w, http.StatusOK, registerResponse{GUID: id.GUID, Secret: id.Secret, Token: token})
}

func setIdentityCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(identityCookieAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
