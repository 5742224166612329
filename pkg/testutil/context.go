package testutil

import (
	"net/http"

	"ecotrace/internal/platform/middleware"
)

// AsActor attaches an actor identity to a request's context, simulating
// what the auth middleware does for an authenticated request.
func AsActor(req *http.Request, actor string) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}
