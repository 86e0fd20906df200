package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"litoralcitrus/config"
	"litoralcitrus/db"
)

// openStore connects the document store selected by STORE_BACKEND.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (db.Store, error) {
	if !cfg.UsesFirestore() {
		log.Warn().Msg("using the in-memory store; data is lost on restart")
		return db.NewMemoryDB(), nil
	}

	store, err := db.NewFirestoreDB(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath, log.With().Str("component", "firestore").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore: %w", err)
	}
	return store, nil
}
