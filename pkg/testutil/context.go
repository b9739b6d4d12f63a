package testutil

import (
	"context"
	"net/http"
	"time"

	id "custodia/pkg/domain"
	"custodia/pkg/requestcontext"
)

// WithActor adds an authenticated actor to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithActor(req *http.Request, actorID id.UserID, role id.Role) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actorID, role))
}

// WithFingerprint adds a device fingerprint to the request context, as the
// device middleware would.
func WithFingerprint(req *http.Request, fingerprint string) *http.Request {
	return req.WithContext(requestcontext.WithDeviceFingerprint(req.Context(), fingerprint))
}

// WithClock pins the server-observed time on the request context.
func WithClock(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// ActorContext builds a bare context carrying an authenticated actor and a
// pinned clock, for service-level tests that bypass HTTP.
func ActorContext(actorID id.UserID, role id.Role, now time.Time) context.Context {
	ctx := requestcontext.WithActor(context.Background(), actorID, role)
	return requestcontext.WithTime(ctx, now)
}
