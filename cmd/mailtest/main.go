// cmd/mailtest/main.go
package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/pkg/email"
	"github.com/your-org/fruitbox/internal/pkg/logger"
)

// Sends one message through the configured provider to check credentials.
func main() {
	to := flag.String("to", "", "recipient address")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := logger.New(cfg)

	if *to == "" {
		log.Fatal("-to is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = email.NewService(cfg, log).Send(ctx, &email.Message{
		To:          []string{*to},
		Subject:     cfg.App.Name + " mail check",
		HTMLContent: "<h1>It works</h1><p>Order emails will be delivered through " + cfg.Email.Provider + ".</p>",
		Kind:        email.KindTest,
	})
	if err != nil {
		log.WithError(err).Fatal("send failed")
	}
	log.WithField("provider", cfg.Email.Provider).Info("email sent")
}
