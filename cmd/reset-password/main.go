package main

import (
	"log"

	"go-pos-sync/internal/config"
	"go-pos-sync/internal/repository"
	"go-pos-sync/internal/service"
	"go-pos-sync/pkg/database"
	"go-pos-sync/pkg/jwt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	var username, newPassword string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset the password of a local user",
		RunE: func(cmd *cobra.Command, args []string) error {
			// 1. Load Env
			if err := godotenv.Load(); err != nil {
				log.Println("Warning: .env file not found, relying on system env")
			}
			cfg := config.Load()

			// 2. Setup Database
			db, err := database.OpenLocal(cfg.LocalDBPath, database.LocalOptions{Debug: cfg.DBDebug})
			if err != nil {
				return err
			}
			defer database.Close(db)

			// 3. Reset; the new hash is pushed with the next sync cycle
			auth := service.NewAuthService(repository.NewStore(db), service.BcryptHasher{}, jwt.NewSigner(cfg.JWTSecret, 0))
			if err := auth.ResetPassword(cmd.Context(), username, newPassword); err != nil {
				return err
			}
			log.Printf("✅ Success! Password for %s has been reset", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "user to reset")
	cmd.Flags().StringVar(&newPassword, "password", "admin123", "new password")

	if err := cmd.Execute(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}
