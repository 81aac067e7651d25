package inventory

import (
	"encoding/json"

	"github.com/revittco/toolrt/internal/runspec"
)

// SnapshotVersion tags the persisted blob format (spec.md §6
// "snapshot.json blob: {version:'v2', externalArtifacts, warnings}").
const SnapshotVersion = "v2"

// Snapshot is the persisted cache blob: every externally-sourced tool
// (built-ins and catalog/discover are regenerated fresh on every read,
// never cached) plus the warnings collected while building them.
type Snapshot struct {
	Version           string                   `json:"version"`
	ExternalArtifacts []runspec.ToolDefinition `json:"externalArtifacts"`
	Warnings          []string                 `json:"warnings"`
	TimedOutSources   []string                 `json:"timedOutSources,omitempty"`
	SourceQuality     map[string]string        `json:"sourceQuality,omitempty"` // sourceKey -> "ok"|"degraded"|"failed"
	SourceAuthProfile map[string]*InferredAuth `json:"sourceAuthProfiles,omitempty"`
	TypesStorageID    string                   `json:"typesStorageId,omitempty"`
}

// InferredAuth mirrors openapi.InferredAuth without importing the
// openapi package from inventory, since GraphQL/Postman/MCP sources
// have no equivalent inference and the field is display-only here.
type InferredAuth struct {
	Type       string `json:"type"`
	HeaderName string `json:"headerName,omitempty"`
	Mode       string `json:"mode,omitempty"`
}

func marshalSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

func unmarshalSnapshot(b []byte) (Snapshot, error) {
	var s Snapshot
	err := json.Unmarshal(b, &s)
	return s, err
}
