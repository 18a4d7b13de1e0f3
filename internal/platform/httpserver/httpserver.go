package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server sized for derivation traffic. Header and idle
// deadlines stay tight; the write deadline must outlast requestTimeout, the
// budget the router grants a single derivation request.
func New(addr string, handler http.Handler, requestTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      requestTimeout + 10*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
