package middleware

import (
	"net/http"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/response"
	"github.com/gin-gonic/gin"
)

// RequirePermission lets the request through when the staff token carries
// at least one of perms. The super admin role passes every check.
func RequirePermission(perms ...model.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if claims.RoleID == model.SuperAdminRoleID || HasAny(claims.Permissions, perms...) {
			c.Next()
			return
		}
		response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
	}
}

// HasAny reports whether granted contains one of perms.
func HasAny(granted []string, perms ...model.Permission) bool {
	for _, g := range granted {
		for _, p := range perms {
			if g == string(p) {
				return true
			}
		}
	}
	return false
}
