package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/pflag"

	"fleet-records-backend/config"
	"fleet-records-backend/internal/db"
	"fleet-records-backend/internal/importer"
	"fleet-records-backend/internal/store"
)

func main() {
	var (
		file   = pflag.String("file", "", "path to the XLSX workbook to import")
		sheets = pflag.StringSlice("sheet", nil, "sheet to import (machines, maintenance, claims); repeatable, defaults to all present")
	)
	pflag.Parse()

	if *file == "" {
		pflag.Usage()
		os.Exit(2)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	imp := importer.New(store.NewGormStore(gormDB))
	summaries, err := imp.Run(context.Background(), *file, *sheets)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	for _, s := range summaries {
		log.Println(s)
	}
}
