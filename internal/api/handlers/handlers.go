// Package handlers contains the HTTP route handlers. Every handler speaks
// the JSON Payload envelope; mutations redirect or reply with the envelope,
// never with bare text.
package handlers

import (
	"encoding/json"
	"net/http"

	"notably/internal/auth"
	"notably/internal/store"
	"notably/internal/utils"
	"notably/internal/verify"
)

// Handlers bundles the dependencies the routes need. Everything is injected
// at startup; there is no package-level state.
type Handlers struct {
	store  *store.Store
	auth   *auth.Authenticator
	verify *verify.Manager
}

func New(st *store.Store, a *auth.Authenticator, vm *verify.Manager) *Handlers {
	return &Handlers{store: st, auth: a, verify: vm}
}

// decodeJSON strictly decodes the request body into dst, rejecting unknown
// fields. A false return means the 400 reply has been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid input",
		})
		return false
	}
	return true
}
