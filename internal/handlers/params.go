package handlers

import (
	"net/http"
	"strings"
)

// pathParam returns the route variable name. pat exposes route variables as
// query values prefixed with a colon; ServeMux patterns use PathValue.
// Unprefixed query values are ignored so a client cannot stand in for a
// path segment.
func pathParam(r *http.Request, name string) string {
	if v := r.URL.Query().Get(":" + name); v != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(r.PathValue(name))
}
