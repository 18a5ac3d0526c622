package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParseStringIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "  abc "}}
	assert.Equal(t, "abc", ParseStringIDParam(c, "id"))
	assert.False(t, c.IsAborted())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "   "}}
	assert.Empty(t, ParseStringIDParam(c, "id"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_PARAM")
}

func TestQueryLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"?limit=5", 5},
		{"?limit=abc", 20},
		{"?limit=500", 500},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/receipts"+tt.query, nil)
		assert.Equal(t, tt.want, queryLimit(c, 20), tt.query)
	}
}
