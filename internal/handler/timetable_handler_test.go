package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestTimetableHandlerSolveInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewTimetableHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/timetables/solve", bytes.NewReader([]byte(`{invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Solve(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
