package auth

import (
	"fmt"
	"net/http"
	"strings"

	"notably/internal/utils"
)

// PermissionSpec is the parsed form of an "action:entity[:access,...]"
// permission string.
type PermissionSpec struct {
	Action string   `json:"action"`
	Entity string   `json:"entity"`
	Access []string `json:"access,omitempty"`
}

// ParsePermissionString splits a permission specifier into action, entity,
// and an optional comma-separated access-scope list.
func ParsePermissionString(permission string) (PermissionSpec, error) {
	parts := strings.Split(permission, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return PermissionSpec{}, fmt.Errorf("malformed permission %q", permission)
	}
	spec := PermissionSpec{Action: parts[0], Entity: parts[1]}
	if len(parts) == 3 && parts[2] != "" {
		spec.Access = strings.Split(parts[2], ",")
	}
	return spec, nil
}

// RequireUserWithPermission resolves the caller and checks the permission in
// one join query. A user passes when any of their roles grants a permission
// matching (action, entity) at any of the listed scopes. Absence is a 403
// carrying the unmet requirement.
func (a *Authenticator) RequireUserWithPermission(w http.ResponseWriter, r *http.Request, permission string) (string, bool) {
	userID, ok := a.RequireUserID(w, r)
	if !ok {
		return "", false
	}

	spec, err := ParsePermissionString(permission)
	if err != nil {
		utils.ValidationError(w, map[string][]string{"permission": {err.Error()}})
		return "", false
	}

	matched, err := a.store.FindPermissionMatch(r.Context(), userID, spec.Action, spec.Entity, spec.Access)
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database error",
		})
		return "", false
	}
	if !matched {
		utils.JSONResponse(w, http.StatusForbidden, utils.Payload{
			Success: false,
			Message: fmt.Sprintf("Unauthorized: required permissions: %s", permission),
			Data:    map[string]any{"requiredPermission": spec},
		})
		return "", false
	}
	return userID, true
}

// RequireUserWithRole is the same gate through roles only.
func (a *Authenticator) RequireUserWithRole(w http.ResponseWriter, r *http.Request, role string) (string, bool) {
	userID, ok := a.RequireUserID(w, r)
	if !ok {
		return "", false
	}

	matched, err := a.store.FindRoleMatch(r.Context(), userID, role)
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database error",
		})
		return "", false
	}
	if !matched {
		utils.JSONResponse(w, http.StatusForbidden, utils.Payload{
			Success: false,
			Message: fmt.Sprintf("Unauthorized: required role: %s", role),
			Data:    map[string]any{"requiredRole": role},
		})
		return "", false
	}
	return userID, true
}
