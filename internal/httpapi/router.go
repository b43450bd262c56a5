package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vaultfs/vaultfs/internal/accounts"
	"github.com/vaultfs/vaultfs/internal/download"
	"github.com/vaultfs/vaultfs/internal/foldertree"
	"github.com/vaultfs/vaultfs/internal/httpapi/auth"
	"github.com/vaultfs/vaultfs/internal/logger"
	"github.com/vaultfs/vaultfs/internal/ratelimit"
	"github.com/vaultfs/vaultfs/internal/upload"
)

// Dependencies bundles the core engines and adapters the router wires into
// HTTP handlers.
type Dependencies struct {
	Accounts  *accounts.Service
	AuthSvc   *auth.Service
	Upload    *upload.Engine
	Download  *download.Engine
	Folders   *foldertree.Tree
	RateLimit *ratelimit.Limiter
}

// NewRouter builds the chi router serving the vaultfs HTTP API.
//
//   - GET  /health                     liveness probe
//   - POST /api/v1/auth/login          issue an access/refresh token pair
//   - POST /api/v1/auth/refresh        rotate an access token
//   - GET  /api/v1/auth/me             current principal
//   - POST /api/v1/uploads             begin a chunked-upload session
//   - PUT  /api/v1/uploads/{id}/chunks/{index}  ingest one chunk
//   - GET  /api/v1/uploads/{id}        session status
//   - POST /api/v1/uploads/{id}/resume resume an interrupted session
//   - POST /api/v1/uploads/{id}/abort  abort a session
//   - POST /api/v1/uploads/{id}/complete  assemble the final File
//   - GET  /api/v1/files/{id}          range-aware download
//   - POST /api/v1/folders             create a folder
//   - GET  /api/v1/folders             list a folder's children
//   - PUT  /api/v1/folders/{id}        rename or move a folder
//   - DELETE /api/v1/folders/{id}      delete a folder
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	authHandler := &authHandler{accounts: deps.Accounts, jwt: deps.AuthSvc}
	uploadHandler := &uploadHandler{engine: deps.Upload, limiter: deps.RateLimit}
	downloadHandler := &downloadHandler{engine: deps.Download, limiter: deps.RateLimit}
	folderHandler := &folderHandler{tree: deps.Folders}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth(deps.AuthSvc))
				r.Get("/me", authHandler.Me)
			})
		})

		r.Route("/files/{fileID}", func(r chi.Router) {
			r.Use(auth.OptionalAuth(deps.AuthSvc))
			r.Get("/", downloadHandler.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(deps.AuthSvc))

			r.Route("/uploads", func(r chi.Router) {
				r.Post("/", uploadHandler.Init)
				r.Route("/{sessionID}", func(r chi.Router) {
					r.Put("/chunks/{index}", uploadHandler.Chunk)
					r.Get("/", uploadHandler.Status)
					r.Post("/resume", uploadHandler.Resume)
					r.Post("/abort", uploadHandler.Abort)
					r.Post("/complete", uploadHandler.Complete)
				})
			})

			r.Route("/folders", func(r chi.Router) {
				r.Post("/", folderHandler.Create)
				r.Get("/", folderHandler.List)
				r.Route("/{folderID}", func(r chi.Router) {
					r.Put("/", folderHandler.Update)
					r.Delete("/", folderHandler.Delete)
					r.Get("/contents", folderHandler.Contents)
				})
			})
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			"request_id", requestID, "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "bytes", ww.BytesWritten(), "duration", time.Since(start).String())
	})
}
