package common

import (
	"strconv"
	"strings"
)

// ParseID parses a positive integer identifier such as a path parameter.
func ParseID(value string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
