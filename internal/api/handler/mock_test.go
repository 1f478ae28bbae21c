package handler

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/agency/internal/model"
	"github.com/edvin/agency/internal/vault"
)

type mockSnapshots struct {
	mock.Mock
}

func (m *mockSnapshots) CreateSnapshot(ctx context.Context, actor vault.Actor, name string, includedModules []string) (vault.Result, error) {
	args := m.Called(ctx, actor, name, includedModules)
	return args.Get(0).(vault.Result), args.Error(1)
}

func (m *mockSnapshots) ListSnapshots(ctx context.Context, actor vault.Actor) ([]model.Snapshot, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Snapshot), args.Error(1)
}

func (m *mockSnapshots) DeleteSnapshot(ctx context.Context, actor vault.Actor, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

type mockValidator struct {
	mock.Mock
}

func (m *mockValidator) ValidateForRestore(ctx context.Context, organizationID, snapshotID string) (vault.Validation, error) {
	args := m.Called(ctx, organizationID, snapshotID)
	return args.Get(0).(vault.Validation), args.Error(1)
}

type mockRestorer struct {
	mock.Mock
	enabled bool
}

func (m *mockRestorer) Enabled() bool { return m.enabled }

func (m *mockRestorer) Restore(ctx context.Context, organizationID, snapshotID, confirmation string) error {
	return m.Called(ctx, organizationID, snapshotID, confirmation).Error(0)
}

type mockConfigs struct {
	mock.Mock
}

func (m *mockConfigs) Get(ctx context.Context, organizationID string) (*model.VaultConfig, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VaultConfig), args.Error(1)
}

func (m *mockConfigs) Update(ctx context.Context, organizationID string, enabled bool, frequency string) (*model.VaultConfig, error) {
	args := m.Called(ctx, organizationID, enabled, frequency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VaultConfig), args.Error(1)
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context) (vault.Report, error) {
	args := m.Called(ctx)
	return args.Get(0).(vault.Report), args.Error(1)
}

type stubModule struct {
	key  string
	deps []string
}

func (s stubModule) Key() string            { return s.key }
func (s stubModule) Dependencies() []string { return s.deps }
func (s stubModule) ExportData(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}
func (s stubModule) ImportData(context.Context, string, json.RawMessage) error { return nil }
func (s stubModule) ClearData(context.Context, string) error                   { return nil }

type stubCatalog struct {
	modules []vault.DataModule
	err     error
}

func (c stubCatalog) Sorted() ([]vault.DataModule, error) { return c.modules, c.err }
