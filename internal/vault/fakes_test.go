package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/edvin/agency/internal/model"
)

// ---------- Fake snapshot repository ----------

type fakeSnapshotRepo struct {
	mu    sync.Mutex
	rows  map[string]*model.Snapshot
	seq   map[string]int
	next  int
	errOn map[string]error
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{
		rows:  map[string]*model.Snapshot{},
		seq:   map[string]int{},
		errOn: map[string]error{},
	}
}

func (f *fakeSnapshotRepo) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errOn[method] = err
}

func (f *fakeSnapshotRepo) sortedLocked(organizationID string, desc bool) []*model.Snapshot {
	var out []*model.Snapshot
	for _, s := range f.rows {
		if s.OrganizationID == organizationID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if desc {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if desc {
			return f.seq[a.ID] > f.seq[b.ID]
		}
		return f.seq[a.ID] < f.seq[b.ID]
	})
	return out
}

func (f *fakeSnapshotRepo) ListByOrganization(_ context.Context, organizationID string) ([]model.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errOn["ListByOrganization"]; err != nil {
		return nil, err
	}
	var out []model.Snapshot
	for _, s := range f.sortedLocked(organizationID, true) {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSnapshotRepo) GetByID(_ context.Context, id string) (*model.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("get snapshot %s: %w", id, model.ErrNotFound)
	}
	c := *s
	return &c, nil
}

func (f *fakeSnapshotRepo) Create(_ context.Context, snap *model.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errOn["Create"]; err != nil {
		return err
	}
	c := *snap
	f.rows[snap.ID] = &c
	f.next++
	f.seq[snap.ID] = f.next
	return nil
}

func (f *fakeSnapshotRepo) MarkCompleted(_ context.Context, id, storagePath string, sizeBytes int64, checksum string, completedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errOn["MarkCompleted"]; err != nil {
		return err
	}
	s, ok := f.rows[id]
	if !ok {
		return model.ErrNotFound
	}
	s.Status = model.SnapshotCompleted
	s.StoragePath = &storagePath
	s.FileSizeBytes = sizeBytes
	s.Checksum = &checksum
	s.CompletedAt = &completedAt
	return nil
}

func (f *fakeSnapshotRepo) MarkFailed(_ context.Context, id, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return model.ErrNotFound
	}
	s.Status = model.SnapshotFailed
	s.StatusMessage = &message
	s.StoragePath = nil
	return nil
}

func (f *fakeSnapshotRepo) SetStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return model.ErrNotFound
	}
	s.Status = status
	return nil
}

func (f *fakeSnapshotRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errOn["Delete"]; err != nil {
		return err
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeSnapshotRepo) CountByOrganization(_ context.Context, organizationID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errOn["CountByOrganization"]; err != nil {
		return 0, err
	}
	return len(f.sortedLocked(organizationID, false)), nil
}

func (f *fakeSnapshotRepo) OldestByOrganization(_ context.Context, organizationID string) (*model.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.sortedLocked(organizationID, false) {
		if row.Status == model.SnapshotRestoring {
			continue
		}
		c := *row
		return &c, nil
	}
	return nil, model.ErrNotFound
}

func (f *fakeSnapshotRepo) FailProcessingBefore(_ context.Context, before time.Time, message string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, s := range f.rows {
		if s.Status == model.SnapshotProcessing && s.CreatedAt.Before(before) {
			s.Status = model.SnapshotFailed
			s.StatusMessage = &message
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeSnapshotRepo) get(id string) *model.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return nil
	}
	c := *s
	return &c
}

func (f *fakeSnapshotRepo) ids(organizationID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, s := range f.sortedLocked(organizationID, false) {
		ids = append(ids, s.ID)
	}
	return ids
}

// ---------- Fake object store ----------

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
	getErr  error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjectStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = append([]byte(nil), data...)
	f.types[key] = contentType
	return nil
}

func (f *fakeObjectStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, ErrObjectNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return fmt.Errorf("delete %s: %w", key, ErrObjectNotFound)
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func (f *fakeObjectStore) set(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
}

func (f *fakeObjectStore) remove(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
}

// ---------- Fake data module ----------

// fakeModule keeps organization data in memory as a JSON array of strings.
type fakeModule struct {
	key          string
	deps         []string
	exportErr    error
	exportErrFor map[string]error
	exportRaw    json.RawMessage
	panicMsg     string
	importErr    error

	mu    sync.Mutex
	data  map[string][]string
	calls *[]string
}

func newFakeModule(key string, deps ...string) *fakeModule {
	return &fakeModule{key: key, deps: deps, data: map[string][]string{}}
}

func (m *fakeModule) Key() string            { return m.key }
func (m *fakeModule) Dependencies() []string { return m.deps }

func (m *fakeModule) record(op string) {
	if m.calls != nil {
		*m.calls = append(*m.calls, op+":"+m.key)
	}
}

func (m *fakeModule) ExportData(_ context.Context, organizationID string) (json.RawMessage, error) {
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.exportErr != nil {
		return nil, m.exportErr
	}
	if err := m.exportErrFor[organizationID]; err != nil {
		return nil, err
	}
	if m.exportRaw != nil {
		return m.exportRaw, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.data[organizationID]
	if rows == nil {
		rows = []string{}
	}
	return json.Marshal(rows)
}

func (m *fakeModule) ImportData(_ context.Context, organizationID string, data json.RawMessage) error {
	m.record("import")
	if m.importErr != nil {
		return m.importErr
	}
	var rows []string
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := map[string]bool{}
	for _, r := range m.data[organizationID] {
		existing[r] = true
	}
	for _, r := range rows {
		if !existing[r] {
			m.data[organizationID] = append(m.data[organizationID], r)
			existing[r] = true
		}
	}
	return nil
}

func (m *fakeModule) ClearData(_ context.Context, organizationID string) error {
	m.record("clear")
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, organizationID)
	return nil
}

func (m *fakeModule) rows(organizationID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.data[organizationID]...)
}

func (m *fakeModule) seed(organizationID string, rows ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[organizationID] = append(m.data[organizationID], rows...)
}

// ---------- Fake config repository ----------

type fakeConfigRepo struct {
	mu        sync.Mutex
	configs   map[string]*model.VaultConfig
	scheduled []model.ScheduledOrganization
	listErr   error
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{configs: map[string]*model.VaultConfig{}}
}

func (f *fakeConfigRepo) Get(_ context.Context, organizationID string) (*model.VaultConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.configs[organizationID]
	if !ok {
		cfg = &model.VaultConfig{OrganizationID: organizationID, Frequency: model.DefaultVaultFrequency}
		f.configs[organizationID] = cfg
	}
	c := *cfg
	return &c, nil
}

func (f *fakeConfigRepo) Update(_ context.Context, cfg *model.VaultConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *cfg
	f.configs[cfg.OrganizationID] = &c
	return nil
}

func (f *fakeConfigRepo) ListScheduled(context.Context) ([]model.ScheduledOrganization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.ScheduledOrganization(nil), f.scheduled...), nil
}

// ---------- Fake maintenance gate ----------

type fakeGate struct {
	maintenance  bool
	err          error
	inconsistent []string
}

func (g *fakeGate) InMaintenance(context.Context, string) (bool, error) {
	return g.maintenance, g.err
}

func (g *fakeGate) FlagInconsistent(_ context.Context, organizationID, _ string) error {
	g.inconsistent = append(g.inconsistent, organizationID)
	return nil
}

var errBoom = errors.New("boom")
