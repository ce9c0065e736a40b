package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/metrics"
	"grocermate/backend/internal/service"
	"grocermate/backend/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	metrics       *metrics.Metrics
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, m *metrics.Metrics, allowedOrigin string) *API {
	return &API{
		service:       svc,
		auth:          auth,
		metrics:       m,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{a.allowedOrigin},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))
	r.Use(securityHeaders)
	r.Use(a.recordRequest)

	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)

			r.Get("/auth/validate", a.handleValidate)

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", a.handleListCategories)
				r.Get("/{id}/products", a.handleCategoryProducts)
				r.With(requireRole(domain.RoleManager)).Post("/", a.handleCreateCategory)
				r.With(requireRole(domain.RoleManager)).Put("/{id}", a.handleUpdateCategory)
				r.With(requireRole(domain.RoleManager)).Delete("/{id}", a.handleDeleteCategory)
			})

			r.Route("/brands", func(r chi.Router) {
				r.Get("/", a.handleListBrands)
				r.With(requireRole(domain.RoleManager)).Post("/", a.handleCreateBrand)
				r.With(requireRole(domain.RoleManager)).Put("/{id}", a.handleUpdateBrand)
				r.With(requireRole(domain.RoleManager)).Delete("/{id}", a.handleDeleteBrand)
			})

			r.Route("/suppliers", func(r chi.Router) {
				r.Get("/", a.handleListSuppliers)
				r.With(requireRole(domain.RoleManager)).Post("/", a.handleCreateSupplier)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", a.handleListProducts)
				r.Get("/search", a.handleSearchProducts)
				r.Get("/barcode/{barcode}", a.handleProductByBarcode)
				r.Get("/{id}", a.handleGetProduct)
				r.With(requireRole(domain.RoleManager)).Post("/", a.handleCreateProduct)
				r.With(requireRole(domain.RoleManager)).Put("/{id}", a.handleUpdateProduct)
				r.With(requireRole(domain.RoleManager)).Delete("/{id}", a.handleDeleteProduct)
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", a.handleListInventory)
				r.Get("/low-stock", a.handleLowStock)
				r.Get("/transactions", a.handleInventoryTransactions)
				r.With(requireRole(domain.RoleManager)).Post("/batches", a.handleReceiveBatch)
				r.With(requireRole(domain.RoleManager)).Post("/restock", a.handleRestock)
				r.With(requireRole(domain.RoleManager)).Post("/spoilage", a.handleSpoilage)
			})

			r.Route("/sales", func(r chi.Router) {
				r.Post("/", a.handleCreateSale)
				r.Get("/", a.handleListSales)
				r.Get("/scan/{barcode}", a.handleScanBarcode)
				r.Get("/{id}", a.handleGetSale)
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", a.handleListInvoices)
				r.Get("/scan/{invoiceNumber}", a.handleScanInvoice)
				r.Get("/{saleId}", a.handleInvoiceDetails)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(requireRole(domain.RoleManager))
				r.Get("/", a.handleListUsers)
				r.Get("/roles", a.handleRoles)
				r.Get("/{id}", a.handleGetUser)
				r.Post("/", a.handleCreateUser)
				r.Put("/{id}", a.handleUpdateUser)
				r.Delete("/{id}", a.handleDeleteUser)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}
		next.ServeHTTP(w, r)
	})
}

// recordRequest counts requests by chi route pattern so path ids do not
// explode label cardinality.
func (a *API) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		a.metrics.HTTPRequest(route, r.Method, status)
	})
}

func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := service.ActorFromContext(r.Context())
			if !ok || !isRoleAllowed(actor.Role, roles) {
				writeError(w, http.StatusForbidden, errors.New("forbidden role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.service.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (a *API) handleValidate(w http.ResponseWriter, r *http.Request) {
	actor, _ := service.ActorFromContext(r.Context())
	writeData(w, http.StatusOK, actor)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// pathID reads a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, store.Invalid(name, "must be a positive id")
	}
	return id, nil
}

func queryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, store.Invalid(name, "must be a positive id")
	}
	return id, nil
}

// writeServiceError maps the store error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		invalid *store.ValidationError
		short   *store.InsufficientStockError
	)
	switch {
	case errors.As(err, &invalid):
		writeErrorDetails(w, http.StatusBadRequest, err, map[string]any{"field": invalid.Field, "reason": invalid.Reason})
	case errors.As(err, &short):
		writeErrorDetails(w, http.StatusBadRequest, err, map[string]any{
			"productId": short.ProductID,
			"requested": short.Requested,
			"available": short.Available,
		})
	case errors.Is(err, store.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeErrorDetails(w, status, err, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, err error, details map[string]any) {
	// 5xx bodies stay generic; the cause only goes to the log.
	msg := err.Error()
	if status >= 500 {
		log.Printf("[http] internal error (status %d): %v", status, err)
		msg = "internal server error"
		details = nil
	}
	payload := map[string]any{
		"success": false,
		"error":   msg,
	}
	if len(details) > 0 {
		payload["details"] = details
	}
	writeJSON(w, status, payload)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{
		"success": true,
		"data":    data,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
