package utils

import (
	"encoding/json"
	"net/http"

	"folio/errs"
)

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func SendResponse(w http.ResponseWriter, status int, data any, message string, err error) {
	resp := map[string]any{
		"status":  status,
		"message": message,
		"data":    data,
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	RespondWithJSON(w, status, resp)
}

// RespondWithFailure writes a service error as a user-displayable failure
// payload. Redirect hints from the error taxonomy pass through untouched so
// the client can route the user (e.g. back to /cart).
func RespondWithFailure(w http.ResponseWriter, err error) {
	body := map[string]any{
		"success": false,
		"message": err.Error(),
	}
	if to := errs.RedirectOf(err); to != "" {
		body["redirectTo"] = to
	}
	RespondWithJSON(w, errs.Status(err), body)
}

type M map[string]interface{}
