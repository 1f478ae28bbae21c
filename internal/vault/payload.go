package vault

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"golang.org/x/crypto/blake2b"
)

// PayloadVersion is written into every export envelope.
const PayloadVersion = "1.0"

// PayloadContentType is the content type of stored payload objects.
const PayloadContentType = "application/json"

// PayloadMeta identifies the snapshot a payload belongs to.
type PayloadMeta struct {
	Version        string    `json:"version"`
	OrganizationID string    `json:"organizationId"`
	Timestamp      time.Time `json:"timestamp"`
	SnapshotID     string    `json:"snapshotId"`
	Source         string    `json:"source"`
}

// Payload is the serialized artifact written to the object store.
type Payload struct {
	Meta    PayloadMeta                `json:"meta"`
	Modules map[string]json.RawMessage `json:"modules"`
}

// Encode serializes the payload. Module keys are emitted in sorted order and
// fragments compacted, so equal payloads encode to equal bytes.
func (p *Payload) Encode() ([]byte, error) {
	if p.Modules == nil {
		p.Modules = map[string]json.RawMessage{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

// ModuleKeys returns the sorted keys of the modules present in the payload.
func (p *Payload) ModuleKeys() []string {
	keys := make([]string, 0, len(p.Modules))
	for k := range p.Modules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParsePayload decodes and sanity-checks an export envelope.
func ParsePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if p.Meta.Version != PayloadVersion {
		return nil, fmt.Errorf("unsupported payload version %q", p.Meta.Version)
	}
	if p.Meta.OrganizationID == "" || p.Meta.SnapshotID == "" {
		return nil, fmt.Errorf("payload meta is incomplete")
	}
	if p.Modules == nil {
		p.Modules = map[string]json.RawMessage{}
	}
	return &p, nil
}

// StoragePath returns the object key of a snapshot payload.
func StoragePath(organizationID, snapshotID string) string {
	return organizationID + "/" + snapshotID + ".json"
}

// Checksum returns the hex BLAKE2b-256 digest of a serialized payload.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
