package http

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"github.com/secmon-lab/riskledger/pkg/utils/metrics"
)

// Headers set by the upstream gateway after it authenticated the caller
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRoles = "X-User-Roles"
)

// accessLogger logs every request and records its duration by route pattern
func accessLogger(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logging.Default().Info("access",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"remote", r.RemoteAddr,
					"request_id", middleware.GetReqID(r.Context()),
				)

				route := "unmatched"
				if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
					route = rctx.RoutePattern()
				}
				m.ObserveHTTPRequest(r.Method, route, strconv.Itoa(ww.Status()), start)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// actorMiddleware builds the request-scoped actor from the path and the
// gateway headers. Unknown workspaces are 404 and a missing user is 401.
func actorMiddleware(registry *model.WorkspaceRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			workspaceID := chi.URLParam(r, "workspaceID")
			if !knownWorkspace(registry, workspaceID) {
				writeJSON(ctx, w, http.StatusNotFound, errorResponse{Error: "workspace not found"})
				return
			}

			userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if userID == "" {
				writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
				return
			}

			actor := &auth.Actor{
				WorkspaceID: workspaceID,
				UserID:      userID,
				Roles:       parseRoles(r.Header.Get(HeaderUserRoles)),
				IPAddress:   clientIP(r),
			}

			ctx = auth.ContextWithActor(ctx, actor)
			ctx = logging.With(ctx, logging.From(ctx).With(
				"request_id", middleware.GetReqID(ctx),
				"workspace_id", workspaceID,
				"user_id", userID,
			))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func knownWorkspace(registry *model.WorkspaceRegistry, workspaceID string) bool {
	if registry == nil {
		return types.WorkspaceID(workspaceID).Validate() == nil
	}
	return registry.Has(workspaceID)
}

func parseRoles(header string) []string {
	var roles []string
	for _, role := range strings.Split(header, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

// clientIP prefers the first X-Forwarded-For hop over the socket address
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
