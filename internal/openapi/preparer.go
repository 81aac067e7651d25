package openapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/getkin/kin-openapi/openapi3"
	"golang.org/x/sync/errgroup"
)

// Preparer turns a raw OpenAPI document (fetched once) into a
// PreparedSpec, running the reference bundle and type-declaration
// generation concurrently (spec.md §4.1 step 2). Grounded on the
// teacher's Manager.ListToolsForServers errgroup fan-out pattern in
// internal/downstream/manager.go, generalized from "N servers in
// parallel" to "2 independent derivations of one parsed document".
type Preparer struct {
	TypeGen TypeGenerator
}

// NewPreparer constructs a Preparer with the given type generator; pass
// NoopTypeGenerator{} when none is configured.
func NewPreparer(gen TypeGenerator) *Preparer {
	if gen == nil {
		gen = NoopTypeGenerator{}
	}
	return &Preparer{TypeGen: gen}
}

// Prepare fetches (if specURL is non-empty) or parses (raw) a document
// exactly once and shares it between bundling and type generation
// (spec.md §4.1 step 1), then assembles a PreparedSpec.
func (p *Preparer) Prepare(ctx context.Context, specURL string, raw []byte, sourceName string) (*PreparedSpec, error) {
	doc, warnings, err := p.load(ctx, specURL, raw)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: fetch/parse failed: %w", sourceName, err)
	}

	var (
		ops          []CompactedOperation
		refHintTable = map[string]string{}
		dts          string
		dtsStatus    string
		genWarnings  []string
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var bundleWarnings []string
		var bundleErr error
		ops, refHintTable, bundleWarnings = Compact(doc)
		warnings = append(warnings, bundleWarnings...)
		return bundleErr
	})
	g.Go(func() error {
		d, status, w := p.generateTypes(gCtx, doc, sourceName)
		dts, dtsStatus, genWarnings = d, status, w
		return nil
	})
	if err := g.Wait(); err != nil {
		// Bundle failure degrades to parse-only with a recorded warning
		// rather than failing the whole source (spec.md §4.1 "Failure
		// semantics").
		warnings = append(warnings, fmt.Sprintf("bundle failed, continuing parse-only: %v", err))
	}
	warnings = append(warnings, genWarnings...)

	return &PreparedSpec{
		Servers:      serverURLs(doc),
		Paths:        ops,
		DTS:          dts,
		DTSStatus:    dtsStatus,
		InferredAuth: InferAuth(doc),
		RefHintTable: refHintTable,
		Warnings:     warnings,
	}, nil
}

func (p *Preparer) generateTypes(ctx context.Context, doc *openapi3.T, sourceName string) (string, string, []string) {
	dts, _, err := p.TypeGen.Generate(ctx, doc)
	if err == nil {
		if dts == "" {
			return "", DTSSkipped, nil
		}
		return dts, DTSReady, nil
	}

	if !isDiscriminatorMappingFailure(err) {
		slog.Warn("openapi type generation failed", "source", sourceName, "error", err)
		return "", DTSFailed, []string{fmt.Sprintf("type generation failed: %v", err)}
	}

	patched, changed := dropBrokenDiscriminators(doc)
	if !changed {
		return "", DTSFailed, []string{fmt.Sprintf("type generation failed: %v", err)}
	}
	dts, _, retryErr := p.TypeGen.Generate(ctx, patched)
	if retryErr != nil {
		slog.Warn("openapi type generation failed after discriminator patch retry", "source", sourceName, "error", retryErr)
		return "", DTSFailed, []string{fmt.Sprintf("type generation failed after discriminator patch: %v", retryErr)}
	}
	if dts == "" {
		return "", DTSSkipped, nil
	}
	return dts, DTSReady, []string{"type generation succeeded after dropping unresolved discriminator.mapping entries"}
}

// load fetches (URL) or parses (raw bytes) the document exactly once
// and resolves internal/external $refs so downstream consumers never
// see a SchemaRef with a non-nil Ref and nil Value.
func (p *Preparer) load(ctx context.Context, specURL string, raw []byte) (*openapi3.T, []string, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	var doc *openapi3.T
	var err error
	if specURL != "" {
		u, parseErr := url.Parse(specURL)
		if parseErr != nil {
			return nil, nil, fmt.Errorf("parse spec URL: %w", parseErr)
		}
		doc, err = loader.LoadFromURI(u)
	} else {
		doc, err = loader.LoadFromData(raw)
	}
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	if err := doc.Validate(ctx); err != nil {
		warnings = append(warnings, fmt.Sprintf("spec validation warnings: %v", err))
	}
	return doc, warnings, nil
}

func serverURLs(doc *openapi3.T) []string {
	out := make([]string, 0, len(doc.Servers))
	for _, s := range doc.Servers {
		if s == nil || s.URL == "" {
			continue
		}
		out = append(out, s.URL)
	}
	return out
}
