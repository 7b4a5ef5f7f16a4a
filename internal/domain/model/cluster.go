package model

import "time"

// ClusterInfo holds the static connection parameters of the target cluster:
// API endpoint and base64-encoded CA certificate material. Resolved once at
// process start, either from configuration or from the cluster-describe
// exchange.
type ClusterInfo struct {
	Endpoint string
	CAData   string
}

// Token is a short-lived bearer credential for one named cluster. Its value
// must never be logged or written to durable storage.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at the given instant.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}
