package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/revittco/toolrt/internal/approval"
	"github.com/revittco/toolrt/internal/discovery"
	"github.com/revittco/toolrt/internal/events"
	"github.com/revittco/toolrt/internal/executors"
	"github.com/revittco/toolrt/internal/inventory"
	"github.com/revittco/toolrt/internal/invocation"
	"github.com/revittco/toolrt/internal/mcpwire"
	"github.com/revittco/toolrt/internal/openapi"
	"github.com/revittco/toolrt/internal/policy"
	"github.com/revittco/toolrt/internal/runtime"
	"github.com/revittco/toolrt/internal/secrets"
	"github.com/revittco/toolrt/internal/sources"
	"github.com/revittco/toolrt/internal/store/sqlite"
)

// openDB opens the sqlite database at cfg.DBDSN, running migrations.
func openDB(ctx context.Context, cfg *Config) (*sqlite.DB, error) {
	return sqlite.New(ctx, cfg.DBDSN)
}

// components is every long-lived collaborator the serve subcommand
// needs, assembled once per process in buildComponents.
// Grounded on the teacher's runHTTP/runStdio, which build the same kind
// of flat dependency bag before handing it to api.NewRouter or
// gateway.NewServer; this runtime's bag is narrower (no routing engine,
// no downstream manager, no OAuth flow manager) because those concerns
// are now owned by internal/policy, internal/sources, and
// internal/secrets respectively.
type components struct {
	db         *sqlite.DB
	encryptor  *secrets.AgeEncryptor
	secretsMgr *secrets.Manager
	host       *runtime.Host
	pipeline   *invocation.Pipeline
}

func buildComponents(cfg *Config, db *sqlite.DB) (*components, error) {
	identity, err := loadOrCreateIdentity(cfg.AgeKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load age identity: %w", err)
	}
	enc, err := secrets.NewAgeEncryptor(identity)
	if err != nil {
		return nil, fmt.Errorf("create age encryptor: %w", err)
	}
	secretsMgr := secrets.NewManager(db, enc)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	pool := mcpwire.NewPool()

	loaderRegistry := sources.NewRegistry(
		sources.NewOpenAPILoader(openapi.NewPreparer(nil)),
		sources.NewPostmanLoader(httpClient),
		sources.NewGraphQLLoader(),
		sources.NewMCPLoader(pool, "toolrt", "0.1.0"),
	)

	assembler := inventory.NewAssembler(
		db, db, loaderRegistry, inventory.NewMemoryBlobStore(),
		sources.BuiltinDefinitions(), discovery.BuildCatalogTools,
	)

	executorRegistry := executors.NewRegistry(httpClient, pool)
	host := runtime.NewHost(assembler, executorRegistry)

	pipeline := &invocation.Pipeline{
		Calls:           db,
		Policies:        policy.NewEngine(db),
		Approvals:       approval.NewManager(db, approval.NewBus()),
		Events:          events.NewEmitter(db, events.NewTaskEventBus()),
		Static:          secretsMgr,
		DefaultApproval: "required",
	}

	return &components{db: db, encryptor: enc, secretsMgr: secretsMgr, host: host, pipeline: pipeline}, nil
}
