// Command initdb creates the database schema and exits.
package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"webstarter/internal/config"
	"webstarter/internal/repository/sqlite"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	path := sqlite.PathFromURL(cfg.Database.URL)
	logger.Infof("initializing database at %s", path)

	db, err := sqlite.Open(path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := sqlite.Migrate(context.Background(), db); err != nil {
		logger.Fatalf("migrate database: %v", err)
	}
	logger.Info("tables ready: users, sessions")
}
