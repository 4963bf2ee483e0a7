package httpserver

import (
	"net/http"
	"time"
)

// New wraps the router in an http.Server. ReadHeaderTimeout keeps
// slow-header clients from pinning connections while keys are generated.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
