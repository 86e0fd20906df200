package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"litoralcitrus/auth"
	"litoralcitrus/config"
	"litoralcitrus/db"
	"litoralcitrus/logger"
	"litoralcitrus/models"
)

type seedUser struct {
	Email       string
	DisplayName string
	Role        models.UserRole
	PlantID     models.PlantID
	Password    string
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg)
	if !cfg.UsesFirestore() {
		log.Fatal().Msg("seeding requires STORE_BACKEND=firestore")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	store, err := db.NewFirestoreDB(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Firestore")
	}
	defer store.Close()

	log.Info().Msg("starting database seeding")

	users := []seedUser{{
		Email:       envOr("SEED_ADMIN_EMAIL", "admin@litoralcitrus.com"),
		DisplayName: "Administrador",
		Role:        models.RoleAdmin,
		Password:    envOr("SEED_ADMIN_PASSWORD", "password"),
	}}
	if !cfg.IsProduction() {
		users = append(users,
			seedUser{Email: "gerente@litoralcitrus.com", DisplayName: "Gerente Operativo", Role: models.RoleOperationalManager, Password: "password"},
			seedUser{Email: "concordia@litoralcitrus.com", DisplayName: "Gerente Concordia", Role: models.RolePlantManager, PlantID: models.PlantConcordia, Password: "password"},
			seedUser{Email: "carga.tucuman@litoralcitrus.com", DisplayName: "Carga Tucumán", Role: models.RoleDataEntry, PlantID: models.PlantTucuman, Password: "password"},
		)
	}

	if err := seedUsers(ctx, store, users, log); err != nil {
		log.Fatal().Err(err).Msg("failed to seed users")
	}
	log.Info().Int("users", len(users)).Msg("database seeding completed")
}

// seedUsers creates active accounts. Existing emails are skipped.
func seedUsers(ctx context.Context, store db.Store, users []seedUser, log zerolog.Logger) error {
	for _, u := range users {
		if _, err := store.GetUserByEmail(ctx, u.Email); err == nil {
			log.Info().Str("email", u.Email).Msg("user exists, skipped")
			continue
		} else if !errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("failed to look up %s: %w", u.Email, err)
		}

		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", u.Email, err)
		}

		now := time.Now().UTC()
		profile := &models.UserProfile{
			UID:         uuid.NewString(),
			Email:       u.Email,
			DisplayName: u.DisplayName,
			Role:        u.Role,
			PlantID:     u.PlantID,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := store.CreateUser(ctx, profile); err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}
		if err := store.StorePasswordHash(ctx, profile.UID, hash); err != nil {
			return fmt.Errorf("failed to store password for %s: %w", u.Email, err)
		}
		log.Info().Str("email", u.Email).Str("role", string(u.Role)).Msg("created user")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
