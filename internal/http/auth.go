package httpx

import (
	"context"
	"net/http"
	"strings"

	jwtpkg "github.com/gaia/logservice/pkg/jwt"
)

type viewerKey struct{}

const anonymousViewer = "anonymous"

type contextSetter interface {
	SetContext(ctx context.Context)
}

func viewerFromContext(ctx context.Context) (string, bool) {
	viewer, ok := ctx.Value(viewerKey{}).(string)
	return viewer, ok
}

// ensureViewer authenticates stream and read requests. Without a configured
// secret every caller is the anonymous viewer.
func (r *Router) ensureViewer(w http.ResponseWriter, req *http.Request) (*http.Request, bool) {
	viewer := anonymousViewer
	if r.streamSecret != "" {
		token := bearerToken(req)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing viewer token")
			return req, false
		}
		claims, err := jwtpkg.Parse(token, r.streamSecret)
		if err != nil {
			r.logger.Warn("viewer token rejected", "path", req.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, "invalid viewer token")
			return req, false
		}
		viewer = claims.Viewer
	}
	ctx := context.WithValue(req.Context(), viewerKey{}, viewer)
	if setter, ok := w.(contextSetter); ok {
		setter.SetContext(ctx)
	}
	return req.WithContext(ctx), true
}

func bearerToken(req *http.Request) string {
	header := strings.TrimSpace(req.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(req.URL.Query().Get("token"))
}
