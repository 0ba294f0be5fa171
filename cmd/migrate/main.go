package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/channelsync/backend/internal/infrastructure/config"
	"github.com/channelsync/backend/internal/infrastructure/logger"
	"github.com/channelsync/backend/internal/infrastructure/persistence"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Connect with a zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(logLevel))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	switch command {
	case "up":
		if err := migrateUp(db); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("Migration completed",
			zap.String("database", cfg.Database.DBName),
		)
	case "status":
		if err := printStatus(db); err != nil {
			log.Fatal("Status check failed", zap.Error(err))
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// migrateUp applies the schema for all persistence models
func migrateUp(db *persistence.Database) error {
	return db.DB.AutoMigrate(
		&models.DeadLetterJobModel{},
		&models.CrossChannelConflictModel{},
		&models.SyncMetricsModel{},
		&models.OutboxEntryModel{},
	)
}

// printStatus reports which tables exist
func printStatus(db *persistence.Database) error {
	tables := []string{
		models.DeadLetterJobModel{}.TableName(),
		models.CrossChannelConflictModel{}.TableName(),
		models.SyncMetricsModel{}.TableName(),
		models.OutboxEntryModel{}.TableName(),
	}
	migrator := db.DB.Migrator()
	for _, table := range tables {
		state := "missing"
		if migrator.HasTable(table) {
			state = "ok"
		}
		fmt.Printf("%-30s %s\n", table, state)
	}
	return nil
}

func printUsage() {
	fmt.Println(`ChannelSync database migration tool

Usage:
  migrate [flags] <command>

Commands:
  up       Apply the schema for all persistence models
  status   Show which tables exist

Flags:
  -log-level   Log level (debug, info, warn, error)`)
}
