package handlers

import (
	"log/slog"
	"net/http"
	"strings"
)

// handleDBError handles database errors and writes appropriate HTTP responses.
// Returns true if error was handled, false otherwise.
func handleDBError(w http.ResponseWriter, err error, resource string, resourceID string) bool {
	if err == nil {
		return false
	}

	slog.Error("Database error", "error", err, "resource", resource, "resource_id", resourceID)

	if strings.Contains(err.Error(), "not found") {
		http.Error(w, capitalize(resource)+" not found", http.StatusNotFound)
		return true
	}

	http.Error(w, "Failed to access "+resource+": "+err.Error(), http.StatusInternalServerError)
	return true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
