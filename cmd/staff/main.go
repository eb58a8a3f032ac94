// cmd/staff/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/domain/staff"
	"github.com/your-org/fruitbox/internal/infrastructure/database/postgres"
	"github.com/your-org/fruitbox/internal/pkg/auth"
	"github.com/your-org/fruitbox/internal/pkg/logger"
)

// Provisions admin and delivery-partner accounts, or prints a bcrypt hash
// for seeding by hand.
func main() {
	email := flag.String("email", "", "account email")
	name := flag.String("name", "", "display name")
	role := flag.String("role", string(auth.RolePartner), "admin or partner")
	password := flag.String("password", "", "account password")
	hashOnly := flag.Bool("hash", false, "only print the bcrypt hash of -password")
	flag.Parse()

	if *password == "" {
		fmt.Fprintln(os.Stderr, "-password is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	if *hashOnly {
		hash, err := auth.NewPasswordManager(cfg).HashPassword(*password)
		if err != nil {
			logrus.Fatalf("failed to hash password: %v", err)
		}
		fmt.Println(hash)
		return
	}

	log := logger.New(cfg)

	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	if err := postgres.NewMigration(db.GetDB(), log).RunAutoMigrations(); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}

	svc := staff.NewService(db.GetDB(), cfg, log)
	account, err := svc.Create(context.Background(), &staff.CreateRequest{
		Email:    *email,
		Name:     *name,
		Password: *password,
		Role:     auth.Role(*role),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create account")
	}

	log.WithFields(logrus.Fields{
		"id":    account.ID,
		"email": account.Email,
		"role":  account.Role,
	}).Info("staff account created")
}
