package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/revittco/toolrt/internal/runspec"
	"github.com/revittco/toolrt/internal/sources"
	"github.com/revittco/toolrt/internal/store"
)

// Mode reports how getWorkspaceTools satisfied a request (spec.md §4.4
// public contract).
type Mode string

const (
	ModeCacheFresh Mode = "cache-fresh"
	ModeCacheStale Mode = "cache-stale"
	ModeRebuild    Mode = "rebuild"
)

// Options mirrors getWorkspaceTools' options bag (spec.md §4.4).
type Options struct {
	SourceTimeout        time.Duration
	AllowStaleOnMismatch bool
	SkipCacheRead        bool
	ActorID              string

	// NeedTypes requests that a cache-fresh hit whose persisted snapshot
	// predates type-bundle support (empty TypesStorageID) fall through
	// to rebuild instead of serving a hit with no type bundle (spec.md
	// §4.4 step 3 "If typesStorageId is missing and needed, fall through
	// to rebuild").
	NeedTypes bool
}

// Debug is the observability record spec.md §4.4 requires ("mode,
// source counts, cache hit/fresh, timed-out source names, per-step
// timings").
type Debug struct {
	Mode            Mode          `json:"mode"`
	SourceCount     int           `json:"sourceCount"`
	CacheHit        bool          `json:"cacheHit"`
	CacheFresh      bool          `json:"cacheFresh"`
	TimedOutSources []string      `json:"timedOutSources,omitempty"`
	LoadDuration    time.Duration `json:"loadDurationNs"`
}

// Result is getWorkspaceTools' return value.
type Result struct {
	Tools          map[string]runspec.ToolDefinition
	Warnings       []string
	TypesStorageID string
	Debug          Debug
}

// Assembler implements the Workspace Inventory Assembler (spec.md
// §4.4). Grounded on internal/downstream/manager.go's errgroup fan-out
// over per-server loads, generalized to per-source tool loads, and on
// internal/cache/cache.go's signature-keyed freshness-check idiom,
// generalized from per-server capability caching to whole-inventory
// snapshot caching.
type Assembler struct {
	Stores    store.CacheStore
	Sources   store.ToolSourceStore
	Loaders   sources.Registry
	Blobs     BlobStore
	Builtins  []runspec.ToolDefinition
	CatalogFn func(tools map[string]runspec.ToolDefinition) []runspec.ToolDefinition
}

func NewAssembler(
	cacheStore store.CacheStore,
	sourceStore store.ToolSourceStore,
	loaders sources.Registry,
	blobs BlobStore,
	builtins []runspec.ToolDefinition,
	catalogFn func(tools map[string]runspec.ToolDefinition) []runspec.ToolDefinition,
) *Assembler {
	return &Assembler{
		Stores: cacheStore, Sources: sourceStore, Loaders: loaders,
		Blobs: blobs, Builtins: builtins, CatalogFn: catalogFn,
	}
}

// GetWorkspaceTools implements spec.md §4.4's algorithm end to end.
func (a *Assembler) GetWorkspaceTools(ctx context.Context, workspaceID string, opts Options) (*Result, error) {
	start := time.Now()

	enabled, err := a.listEnabledSources(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list enabled sources: %w", err)
	}
	signature := Signature(workspaceID, enabled)

	skipCacheRead, skipCacheWrite := opts.SkipCacheRead, false
	for _, src := range enabled {
		if src.Type == "mcp" && mcpSourceHasActorAuth(src) {
			skipCacheRead, skipCacheWrite = true, true
			break
		}
	}

	if !skipCacheRead {
		entry, err := a.Stores.GetCacheEntry(ctx, workspaceID)
		if err == nil && entry != nil {
			isFresh := entry.Signature == signature
			if isFresh {
				snapshot, blobErr := a.hydrate(ctx, entry.StorageID)
				if blobErr == nil && !(opts.NeedTypes && snapshot.TypesStorageID == "") {
					return a.mergeResult(snapshot, ModeCacheFresh, true, true, enabled, nil, time.Since(start)), nil
				}
			} else if opts.AllowStaleOnMismatch {
				snapshot, blobErr := a.hydrate(ctx, entry.StorageID)
				if blobErr == nil {
					snapshot.Warnings = append(snapshot.Warnings, "sources changed; previous results")
					return a.mergeResult(snapshot, ModeCacheStale, true, false, enabled, nil, time.Since(start)), nil
				}
			}
		}
	}

	return a.rebuild(ctx, workspaceID, enabled, signature, opts, skipCacheWrite, start)
}

func (a *Assembler) listEnabledSources(ctx context.Context, workspaceID string) ([]store.ToolSource, error) {
	all, err := a.Sources.ListToolSources(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	enabled := make([]store.ToolSource, 0, len(all))
	for _, s := range all {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled, nil
}

func mcpSourceHasActorAuth(src store.ToolSource) bool {
	var cfg struct {
		Credential *runspec.CredentialSpec `json:"credential"`
	}
	if err := json.Unmarshal(src.Config, &cfg); err != nil {
		return false
	}
	return cfg.Credential != nil && cfg.Credential.Mode == "actor"
}

func (a *Assembler) hydrate(ctx context.Context, storageID string) (Snapshot, error) {
	blob, err := a.Blobs.Get(ctx, storageID)
	if err != nil {
		return Snapshot{}, err
	}
	if blob == nil {
		return Snapshot{}, fmt.Errorf("snapshot blob %s not found", storageID)
	}
	return unmarshalSnapshot(blob)
}

// rebuild implements spec.md §4.4 steps 4-7: normalize+parallel-load,
// merge, build the type bundle, and persist (unless a source timed
// out).
func (a *Assembler) rebuild(
	ctx context.Context,
	workspaceID string,
	enabled []store.ToolSource,
	signature string,
	opts Options,
	skipCacheWrite bool,
	start time.Time,
) (*Result, error) {
	type sourceResult struct {
		tools    []runspec.ToolDefinition
		warnings []string
		timedOut bool
		quality  string
	}
	results := make([]sourceResult, len(enabled))

	g, gCtx := errgroup.WithContext(ctx)
	for i, src := range enabled {
		i, src := i, src
		g.Go(func() error {
			loader, ok := a.Loaders.For(src.Type)
			if !ok {
				results[i] = sourceResult{warnings: []string{fmt.Sprintf("source %s: no loader for type %q", src.Name, src.Type)}, quality: "failed"}
				return nil
			}

			loadCtx := gCtx
			var cancel context.CancelFunc
			if opts.SourceTimeout > 0 {
				loadCtx, cancel = context.WithTimeout(gCtx, opts.SourceTimeout)
				defer cancel()
			}

			tools, warnings, err := loader.Load(loadCtx, src)
			if err != nil {
				if loadCtx.Err() == context.DeadlineExceeded {
					results[i] = sourceResult{
						warnings: append(warnings, fmt.Sprintf("source %s: still loading; partial results", src.Name)),
						timedOut: true, quality: "failed",
					}
					return nil
				}
				results[i] = sourceResult{
					warnings: append(warnings, fmt.Sprintf("source %s: load failed: %v", src.Name, err)),
					quality:  "failed",
				}
				return nil
			}
			quality := "ok"
			if len(warnings) > 0 {
				quality = "degraded"
			}
			results[i] = sourceResult{tools: tools, warnings: warnings, quality: quality}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Per-source failures are captured into results[i] above and never
		// propagated here; g.Go never returns a non-nil error.
		return nil, err
	}

	var allWarnings []string
	var timedOut []string
	sourceQuality := map[string]string{}
	externals := make([]runspec.ToolDefinition, 0)
	for i, r := range results {
		allWarnings = append(allWarnings, r.warnings...)
		if r.timedOut {
			timedOut = append(timedOut, enabled[i].Name)
		}
		sourceQuality[enabled[i].Name] = r.quality
		externals = append(externals, r.tools...)
	}
	sort.Strings(timedOut)

	merged := mergeTools(a.Builtins, externals)
	if a.CatalogFn != nil {
		catalogTools := a.CatalogFn(merged)
		for _, t := range catalogTools {
			merged[t.Path] = t
		}
	}

	debug := Debug{
		Mode: ModeRebuild, SourceCount: len(enabled), CacheHit: false, CacheFresh: false,
		TimedOutSources: timedOut, LoadDuration: time.Since(start),
	}

	if len(timedOut) > 0 || skipCacheWrite {
		// spec.md §4.4 step 7: "If any source timed out, skip snapshot
		// write and return mode rebuild with timedOutSources." No type
		// bundle is built either: it would only be stored alongside a
		// snapshot this path deliberately never writes.
		return &Result{Tools: merged, Warnings: allWarnings, Debug: debug}, nil
	}

	typesStorageID, err := a.storeTypeBundle(ctx, externals)
	if err != nil {
		return nil, fmt.Errorf("store type bundle: %w", err)
	}

	snapshot := Snapshot{
		Version:           SnapshotVersion,
		ExternalArtifacts: externals,
		Warnings:          allWarnings,
		TimedOutSources:   timedOut,
		SourceQuality:     sourceQuality,
		TypesStorageID:    typesStorageID,
	}

	blob, err := marshalSnapshot(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	storageID, err := a.Blobs.Store(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}
	if err := a.Stores.PutCacheEntry(ctx, &store.CacheEntry{
		WorkspaceID: workspaceID,
		Signature:   signature,
		StorageID:   storageID,
		ToolCount:   len(externals),
		SizeBytes:   len(blob),
	}); err != nil {
		return nil, fmt.Errorf("put cache entry: %w", err)
	}

	return &Result{Tools: merged, Warnings: allWarnings, TypesStorageID: typesStorageID, Debug: debug}, nil
}

// storeTypeBundle implements spec.md §4.4 step 6: build the workspace
// type bundle from every externally-sourced tool's typing (per-source
// DTS text, where a loader generated one, already collapsed into each
// tool's InputHint/OutputHint by internal/toolpath.DisplayHint) and
// persist it as its own blob, independent of the snapshot blob, so a
// client can fetch just the type bundle by typesStorageId without
// pulling the whole tool inventory.
func (a *Assembler) storeTypeBundle(ctx context.Context, externals []runspec.ToolDefinition) (string, error) {
	if len(externals) == 0 {
		return "", nil
	}
	return a.Blobs.Store(ctx, buildTypeBundle(externals))
}

// buildTypeBundle renders a deterministic, path-sorted TypeScript
// declaration block per tool: "path": { input: <hint>; output: <hint> }.
// This is the same display-hint vocabulary internal/discovery already
// exposes per tool, reassembled here into one document instead of
// requiring a client to stitch per-tool hints together itself.
func buildTypeBundle(externals []runspec.ToolDefinition) []byte {
	sorted := make([]runspec.ToolDefinition, len(externals))
	copy(sorted, externals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var buf bytes.Buffer
	buf.WriteString("interface WorkspaceTools {\n")
	for _, t := range sorted {
		inputHint := t.Typing.InputHint
		if inputHint == "" {
			inputHint = "any"
		}
		outputHint := t.Typing.OutputHint
		if outputHint == "" {
			outputHint = "any"
		}
		fmt.Fprintf(&buf, "  %q: { input: %s; output: %s };\n", t.Path, inputHint, outputHint)
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

func (a *Assembler) mergeResult(
	snapshot Snapshot,
	mode Mode,
	cacheHit, cacheFresh bool,
	enabled []store.ToolSource,
	timedOut []string,
	elapsed time.Duration,
) *Result {
	merged := mergeTools(a.Builtins, snapshot.ExternalArtifacts)
	if a.CatalogFn != nil {
		for _, t := range a.CatalogFn(merged) {
			merged[t.Path] = t
		}
	}
	return &Result{
		Tools:          merged,
		Warnings:       snapshot.Warnings,
		TypesStorageID: snapshot.TypesStorageID,
		Debug: Debug{
			Mode: mode, SourceCount: len(enabled), CacheHit: cacheHit, CacheFresh: cacheFresh,
			TimedOutSources: timedOut, LoadDuration: elapsed,
		},
	}
}

// mergeTools implements spec.md §4.4 step 5's layering: built-ins,
// then externals (later wins on path collision); catalog/discover are
// merged in by the caller afterward so they always win last.
func mergeTools(builtins, externals []runspec.ToolDefinition) map[string]runspec.ToolDefinition {
	merged := make(map[string]runspec.ToolDefinition, len(builtins)+len(externals))
	for _, t := range builtins {
		merged[t.Path] = t
	}
	for _, t := range externals {
		merged[t.Path] = t
	}
	return merged
}
