// Package handler is the Vercel serverless function entry point.
package handler

import (
	"net/http"

	"serverless-bridge/internal/app"
)

// Handler serves every /api/* request through the shared adapter.
func Handler(w http.ResponseWriter, r *http.Request) {
	app.Shared().ServeHTTP(w, r)
}
