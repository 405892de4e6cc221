package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// ParsePagination parses the offset and limit query parameters.
// offset defaults to 0 and limit to 20; limit may not exceed 100.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("invalid offset parameter: must be a non-negative integer")
	}

	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, 0, fmt.Errorf("invalid limit parameter: must be between 1 and %d", maxLimit)
	}

	return offset, limit, nil
}
