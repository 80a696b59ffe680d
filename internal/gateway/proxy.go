package gateway

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/Nohrer/app-microserv-devsecops/internal/auth"
	transport "github.com/Nohrer/app-microserv-devsecops/internal/transport/http"
)

// Handler is the edge entry point. It evaluates the access policy, verifies
// bearer credentials where the policy demands one, and relays the request
// unchanged to the owning service. The Authorization header passes through
// byte-for-byte so downstream services can verify the same token.
type Handler struct {
	policy   Policy
	verifier auth.Verifier
	orders   http.Handler
	products http.Handler
	local    http.Handler
	logger   *zap.Logger
}

// NewHandler builds the edge handler. orderURL and productURL are the base
// addresses of the backing services. local serves the gateway's own
// endpoints (health, metrics) for paths the policy marks public.
func NewHandler(policy Policy, verifier auth.Verifier, orderURL, productURL *url.URL, local http.Handler, logger *zap.Logger) *Handler {
	return &Handler{
		policy:   policy,
		verifier: verifier,
		orders:   newProxy(orderURL),
		products: newProxy(productURL),
		local:    local,
		logger:   logger,
	}
}

func newProxy(target *url.URL) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		transport.WriteError(w, http.StatusBadGateway, "upstream unavailable")
	}
	return proxy
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	decision := h.policy.Evaluate(r.Method, r.URL.Path)

	if !decision.Public {
		if !h.authorize(w, r, decision) {
			return
		}
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/api/orders"):
		h.orders.ServeHTTP(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/products"):
		h.products.ServeHTTP(w, r)
	case h.local != nil:
		h.local.ServeHTTP(w, r)
	default:
		transport.WriteError(w, http.StatusNotFound, "no route")
	}
}

// authorize verifies the bearer token and the rule's role predicate. It
// writes the error response itself and reports whether the request may
// proceed.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, decision Decision) bool {
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		transport.WriteError(w, http.StatusUnauthorized, auth.ErrNoCredential.Error())
		return false
	}
	claims, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		h.logger.Debug("rejected credential", zap.Error(err))
		transport.WriteError(w, http.StatusUnauthorized, auth.ErrInvalidCredential.Error())
		return false
	}
	if len(decision.Roles) > 0 && !claims.HasAnyRole(decision.Roles...) {
		h.logger.Debug("access denied",
			zap.String("subject", claims.Subject),
			zap.String("path", r.URL.Path))
		transport.WriteError(w, http.StatusForbidden, "access denied")
		return false
	}
	return true
}
