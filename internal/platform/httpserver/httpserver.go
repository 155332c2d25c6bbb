// Package httpserver builds the portal's HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// New wraps the handler in an http.Server. The read-header timeout keeps
// slow-header clients from pinning connections open.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
