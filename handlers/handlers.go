// Package handlers contains the HTTP layer of the router gateway. Handlers
// stay thin: decode, validate, call the service, map errors.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/samara-ai/modelrouter/utils"
)

// decodeJSON decodes a request body, rejecting unknown fields
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// respondMalformedBody writes the 400 for an undecodable request body
func respondMalformedBody(w http.ResponseWriter, err error) {
	_ = utils.WriteBadRequest(w, "Malformed request body", map[string]interface{}{
		"reason": err.Error(),
	})
}
