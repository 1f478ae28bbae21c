// Package vault implements the organization data vault: a registry of
// pluggable data modules, snapshot creation with bounded retention, restore
// validation and the scheduled backup trigger.
package vault

import (
	"context"
	"encoding/json"
)

// DataModule is the contract every vertical registers with the vault.
//
// ExportData must be read-only. ImportData must be idempotent when fed the
// module's own prior ExportData output. ClearData removes exactly the
// module's organization-scoped data.
type DataModule interface {
	Key() string
	Dependencies() []string
	ExportData(ctx context.Context, organizationID string) (json.RawMessage, error)
	ImportData(ctx context.Context, organizationID string, data json.RawMessage) error
	ClearData(ctx context.Context, organizationID string) error
}

// ModuleInfo is the public description of a registered module.
type ModuleInfo struct {
	Key          string   `json:"key"`
	Dependencies []string `json:"dependencies"`
}

// Describe returns the ModuleInfo of each module, preserving order.
func Describe(modules []DataModule) []ModuleInfo {
	infos := make([]ModuleInfo, 0, len(modules))
	for _, m := range modules {
		deps := m.Dependencies()
		if deps == nil {
			deps = []string{}
		}
		infos = append(infos, ModuleInfo{Key: m.Key(), Dependencies: deps})
	}
	return infos
}
