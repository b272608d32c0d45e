// Command createadmin creates the initial Admin account, or seeds several
// accounts from a YAML file.  It exits non-zero if the admin already
// exists.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/camera-management/internal/config"
	"github.com/iliyamo/camera-management/internal/database"
	"github.com/iliyamo/camera-management/internal/logger"
	"github.com/iliyamo/camera-management/internal/repository"
	"github.com/iliyamo/camera-management/internal/seed"
	"github.com/iliyamo/camera-management/internal/service"
	"github.com/iliyamo/camera-management/internal/utils"
)

func main() {
	username := flag.String("username", seed.DefaultAdminUsername, "admin username")
	password := flag.String("password", "", "admin password (prompted when empty)")
	seedFile := flag.String("file", "", "YAML file of accounts to seed instead of a single admin")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := logger.New(cfg.LogLevel, true, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, cfg, log, *username, *password, *seedFile); err != nil {
		if errors.Is(err, seed.ErrExists) {
			fmt.Fprintf(os.Stderr, "user %q already exists\n", *username)
			os.Exit(1)
		}
		log.WithError(err).Fatal("createadmin")
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger, username, password, seedFile string) error {
	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DBDriver, log); err != nil {
		return err
	}

	auth, err := service.NewAuthService(repository.NewUserRepo(db), utils.NewTokenService(cfg.JWTSecret, cfg.TokenTTL), cfg.BcryptCost)
	if err != nil {
		return err
	}
	s := &seed.Seeder{Auth: auth, Log: log}

	if seedFile != "" {
		accounts, err := seed.LoadFile(seedFile)
		if err != nil {
			return err
		}
		created, skipped, err := s.Apply(ctx, accounts)
		if err != nil {
			return err
		}
		fmt.Printf("seeded %d users (%d already existed)\n", created, skipped)
		return nil
	}

	if password == "" {
		password, err = utils.PromptPassword(os.Stdin, os.Stderr, "Password for "+username+": ")
		if err != nil {
			return fmt.Errorf("no -password given: %w", err)
		}
	}
	u, err := s.CreateAdmin(ctx, username, password)
	if err != nil {
		return err
	}
	fmt.Printf("admin user %q created (id %s)\n", u.Username, u.ID)
	return nil
}
