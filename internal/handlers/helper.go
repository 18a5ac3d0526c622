package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ParseStringIDParam reads a path identifier. On a blank value it writes a
// 400 response and returns "".
func ParseStringIDParam(c *gin.Context, param string) string {
	id := strings.TrimSpace(c.Param(param))
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: param + " cannot be empty",
			Code:    "INVALID_PARAM",
		})
	}
	return id
}

// queryLimit reads the "limit" query value, falling back to def when it is
// missing or not a number. Range checks belong to the service.
func queryLimit(c *gin.Context, def int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return limit
}
