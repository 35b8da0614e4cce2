package web

import (
	"net"
	"net/http"
	"strings"

	"github.com/JonMunkholm/planner/internal/core"
)

// ActorHeader names the acting user. Authentication happens in front of the
// service; the header is trusted as given.
const ActorHeader = "X-User-Email"

// requestMetadata stores the actor, client IP and User-Agent in the request
// context for the activity log.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
			ctx = core.ContextWithActor(ctx, strings.ToLower(actor))
		}
		ctx = core.ContextWithIPAddress(ctx, clientIP(r))
		ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP returns the host part of RemoteAddr, already rewritten by the
// real-IP middleware when the request came through a trusted proxy.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
