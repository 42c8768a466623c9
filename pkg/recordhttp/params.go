package recordhttp

import (
	"net/http"
	"strconv"

	"github.com/thebtf/recordkit/pkg/record"
)

// MaxPaginationLimit is the maximum allowed limit for pagination queries.
// This protects against resource exhaustion from excessively large requests.
const MaxPaginationLimit = 1000

// ParseLimitParam parses the "limit" query parameter from an HTTP request.
// Returns defaultLimit if the parameter is missing or invalid, capped at
// maxLimit (MaxPaginationLimit when maxLimit is zero or negative).
func ParseLimitParam(r *http.Request, defaultLimit, maxLimit int) int {
	if maxLimit <= 0 {
		maxLimit = MaxPaginationLimit
	}
	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// ParseOffsetParam parses the "offset" query parameter from an HTTP request.
// Returns 0 if the parameter is missing or invalid.
func ParseOffsetParam(r *http.Request) int {
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return 0
}

// ParseListOptions builds record.ListOptions from the request's limit, offset
// and active query parameters.
func ParseListOptions(r *http.Request, defaultLimit int) record.ListOptions {
	return record.ListOptions{
		Limit:      ParseLimitParam(r, defaultLimit, 0),
		Offset:     ParseOffsetParam(r),
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}
}
