package main

import (
	"context"
	"fmt"
)

func cmdStatus() error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	sources, err := db.ListToolSources(ctx, "")
	if err != nil {
		return fmt.Errorf("list tool sources: %w", err)
	}

	fmt.Printf("database: %s (ok)\n", cfg.DBDSN)
	fmt.Printf("tool sources: %d\n", len(sources))
	for _, s := range sources {
		state := "enabled"
		if !s.Enabled {
			state = "disabled"
		}
		fmt.Printf("  %-24s %-12s %s\n", s.ID, s.Type, state)
	}
	return nil
}
