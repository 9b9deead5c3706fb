package entitlementservice

import (
	"log/slog"
	"time"

	httpadapter "gatehouse/contexts/access-control/entitlement-service/adapters/http"
	"gatehouse/contexts/access-control/entitlement-service/adapters/memory"
	"gatehouse/contexts/access-control/entitlement-service/application/commands"
	"gatehouse/contexts/access-control/entitlement-service/application/queries"
	"gatehouse/contexts/access-control/entitlement-service/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Store    *memory.Store
	Identity *memory.IdentityDirectory
}

type Dependencies struct {
	Identity       ports.IdentityProvider
	Primary        ports.EntitlementWriter
	Fallback       ports.EntitlementWriter
	Repository     ports.Repository
	Snapshots      ports.SnapshotStore
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	grantTemporaryAccess := commands.GrantTemporaryAccessUseCase{
		Identity:    deps.Identity,
		Primary:     deps.Primary,
		Fallback:    deps.Fallback,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	recordPaymentSuccess := commands.RecordPaymentSuccessUseCase{
		Identity:       deps.Identity,
		Primary:        deps.Primary,
		Fallback:       deps.Fallback,
		Idempotency:    deps.Idempotency,
		Clock:          deps.Clock,
		IDGenerator:    deps.IDGenerator,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	expireStaleGrants := commands.ExpireStaleGrantsUseCase{
		Repository: deps.Repository,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}

	checkAccess := queries.CheckAccessUseCase{
		Repository: deps.Repository,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	userStatus := queries.UserStatusUseCase{
		Snapshots:  deps.Snapshots,
		Repository: deps.Repository,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			GrantTemporaryAccess: grantTemporaryAccess,
			RecordPaymentSuccess: recordPaymentSuccess,
			ExpireStaleGrants:    expireStaleGrants,
			CheckAccess:          checkAccess,
			UserStatus:           userStatus,
			Logger:               deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	identity := memory.NewIdentityDirectory()
	module := NewModule(Dependencies{
		Identity:       identity,
		Primary:        memory.NewPrimaryWriter(store),
		Fallback:       memory.NewFallbackWriter(store),
		Repository:     store,
		Snapshots:      store,
		Idempotency:    store,
		Clock:          store,
		IDGenerator:    store,
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	module.Identity = identity
	return module
}
