package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/raito-kakutani/timable/internal/models"
)

func runWithRole(t *testing.T, role models.UserRole, allowed ...models.UserRole) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/timetables/solve", nil)
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "u-1", Role: role})

	RequireRoles(allowed...)(c)
	if !c.IsAborted() {
		return http.StatusOK
	}
	return w.Code
}

func TestRequireRolesAllowsPlanner(t *testing.T) {
	code := runWithRole(t, models.RolePlanner, models.RoleAdmin, models.RolePlanner)
	require.Equal(t, http.StatusOK, code)
}

func TestRequireRolesRejectsViewer(t *testing.T) {
	code := runWithRole(t, models.RoleViewer, models.RoleAdmin, models.RolePlanner)
	require.Equal(t, http.StatusForbidden, code)
}

func TestRequireRolesRejectsMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/seed/demo", nil)

	RequireRoles(models.RoleAdmin)(c)
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
