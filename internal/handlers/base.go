package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"portal-sentinel/internal/database"
)

// parseRecordFilters extracts the optional record query filters from a
// request. Dates accept RFC 3339 or plain YYYY-MM-DD.
func parseRecordFilters(r *http.Request) (database.RecordFilters, error) {
	q := r.URL.Query()
	var f database.RecordFilters

	if v := q.Get("start_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, fmt.Errorf("invalid start_date: %w", err)
		}
		f.StartDate = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, fmt.Errorf("invalid end_date: %w", err)
		}
		f.EndDate = &t
	}

	f.Agent = q.Get("agent")
	f.PortalName = q.Get("portal_name")

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid limit: %q", v)
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid offset: %q", v)
		}
		f.Offset = n
	}

	return f, nil
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
