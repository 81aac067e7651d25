package main

import (
	"context"
	"fmt"
	"os"
)

const defaultConfigTemplate = `# toolrt tool source declarations.
# Each entry becomes a store.ToolSource row on next "toolrt serve" or
# "toolrt config apply"; entries removed from this file are pruned.
sources: []
`

func cmdInit() error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	_ = db.Close()
	fmt.Printf("Database created: %s\n", cfg.DBDSN)

	if _, err := loadOrCreateIdentity(cfg.AgeKeyPath); err != nil {
		return fmt.Errorf("create age identity: %w", err)
	}
	fmt.Printf("Age identity ready: %s\n", cfg.AgeKeyPath)

	if _, err := os.Stat(cfg.ConfigFile); os.IsNotExist(err) {
		if err := os.WriteFile(cfg.ConfigFile, []byte(defaultConfigTemplate), 0o644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Config file created: %s\n", cfg.ConfigFile)
	} else {
		fmt.Printf("Config file already exists: %s\n", cfg.ConfigFile)
	}

	return nil
}
