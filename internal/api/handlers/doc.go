// Package handlers implements HTTP handlers for the stockwatch API.
package handlers

// StatusResponse is the body of the health and readiness endpoints.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}
