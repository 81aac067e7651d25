package main

import (
	"context"
	"fmt"

	"github.com/revittco/toolrt/internal/config"
)

// cmdConfig applies a toolrt.yaml file to the store without starting
// the HTTP host, for operators who manage tool sources out of band from
// "toolrt serve" (which applies cfg.ConfigFile automatically on boot).
func cmdConfig(args []string) error {
	if len(args) < 1 || args[0] != "apply" {
		return fmt.Errorf("usage: toolrt config apply [file]")
	}

	ctx := context.Background()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := cfg.ConfigFile
	if len(args) > 1 {
		path = args[1]
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	fileCfg, err := config.LoadFile(path)
	if err != nil {
		return fmt.Errorf("load config file: %w", err)
	}
	if err := config.Apply(ctx, db, fileCfg); err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	fmt.Printf("Applied %d tool sources from %s\n", len(fileCfg.Sources), path)
	return nil
}
