package cli

import (
	"go-pos-sync/internal/config"
	"go-pos-sync/internal/remote"
	"go-pos-sync/internal/repository"
	"go-pos-sync/internal/syncengine"
	"go-pos-sync/pkg/database"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

// agent is what every command works with: the local store and, when the
// command talks to the remote store, a client and an engine.
type agent struct {
	cfg    *config.Config
	db     *gorm.DB
	store  *repository.Store
	client *remote.Client
	engine *syncengine.Engine
}

func openAgent(opts *RootOptions, withRemote bool) (*agent, error) {
	_ = godotenv.Load()
	cfg := config.Load()
	if opts.DBPath != "" {
		cfg.LocalDBPath = opts.DBPath
	}
	if withRemote {
		if err := cfg.Validate(); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
		}
	}

	db, err := database.OpenLocal(cfg.LocalDBPath, database.LocalOptions{Debug: cfg.DBDebug, Silent: !opts.Verbose})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open local store", err)
	}
	a := &agent{cfg: cfg, db: db, store: repository.NewStore(db)}
	if withRemote {
		a.client = remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteAPIKey, cfg.RemoteTimeout)
		a.engine = syncengine.NewEngine(a.store, a.client, syncengine.LogReporter{})
	}
	return a, nil
}

func (a *agent) Close() {
	database.Close(a.db)
}
