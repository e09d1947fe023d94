// Command useradd creates an account for the login form.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/anonto42/silex-blog/backend/internal/models"
	"github.com/anonto42/silex-blog/backend/internal/repositories"
	"github.com/anonto42/silex-blog/backend/pkg/config"
	"github.com/anonto42/silex-blog/backend/pkg/logger"
)

func main() {
	username := flag.String("username", "", "login name of the new account")
	password := flag.String("password", "", "plain text password, stored as a bcrypt hash")
	roles := flag.String("roles", models.RoleUser, "comma separated roles")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if *username == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}
	if cfg.PostgresConnStr == "" {
		log.Fatal("POSTGRES_CONN_STR environment variable not set")
	}

	db, err := config.InitPostgres(cfg.PostgresConnStr, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to PostgreSQL")
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		log.WithError(err).Fatal("Failed to migrate users table")
	}

	user := &models.User{Username: *username, Password: *password, Roles: *roles}
	if err := user.HashPassword(); err != nil {
		log.WithError(err).Fatal("Failed to hash password")
	}

	repo := repositories.NewPostgresUserRepository(db)
	if err := repo.CreateUser(context.Background(), user); err != nil {
		log.WithError(err).Fatal("Failed to create user")
	}

	log.WithField("username", user.Username).WithField("roles", user.RoleList()).Info("User created")
}
