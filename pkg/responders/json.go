// Package responders writes the gate's JSON response bodies.
package responders

import (
	"encoding/json"
	"net/http"
)

// JSON writes payload as application/json with the given status. HTML
// escaping is off so URLs in payment instructions keep their & and <
// characters readable. A nil payload writes headers only.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
