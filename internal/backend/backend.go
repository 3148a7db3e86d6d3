// Package backend selects and wires the data store the server runs on.
package backend

import (
	"fmt"

	"footprint/internal/config"
	"footprint/internal/core"
	"footprint/internal/storage"
	"footprint/internal/store"
	"footprint/internal/store/memory"
)

// Type identifies a data backend.
type Type string

const (
	Memory Type = "memory"
	SQLite Type = "sqlite"
)

func (t Type) IsValid() bool {
	return t == Memory || t == SQLite
}

// Stores bundles the store ports one backend provides. Both backends expose
// every port, so the split exists only to keep consumers on narrow interfaces.
type Stores struct {
	Events    store.EventStore
	Summaries store.SummaryStore
	Activity  store.ActivityLister
	Factors   core.FactorSource
}

// Result holds the opened backend and its cleanup function. Cleanup is nil
// for backends without resources to release.
type Result struct {
	Stores  Stores
	Cleanup func() error
}

// Open creates the backend named by the configuration.
func Open(cfg *config.Config) (*Result, error) {
	t := Type(cfg.DataBackend)
	switch t {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		return &Result{
			Stores: Stores{
				Events:    repo,
				Summaries: repo,
				Activity:  repo,
				Factors:   repo,
			},
			Cleanup: repo.Close,
		}, nil
	case Memory:
		st := memory.New()
		return &Result{
			Stores: Stores{
				Events:    st,
				Summaries: st,
				Activity:  st,
				Factors:   st,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}
}
