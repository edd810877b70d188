package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestExportHandlerEnqueueInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewExportHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/timetables/tt-1/exports", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "tt-1"}}

	h.Enqueue(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
