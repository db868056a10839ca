package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/variance-cli/internal/store"
)

// initStore opens the configured backend and applies the schema.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
