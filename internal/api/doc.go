// Package api serves the organization data vault REST API.
//
// Member-facing routes live under /api/v1/vault and require a JWT bearer
// token for a member of the target organization. The scheduled backup
// trigger lives under /internal/v1/vault and is guarded by a shared token.
package api
