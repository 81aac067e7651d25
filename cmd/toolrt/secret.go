package main

import (
	"context"
	"fmt"

	"github.com/revittco/toolrt/internal/secrets"
)

// cmdSecret manages the age-encrypted static credential blobs
// internal/secrets.Manager stores per ToolSource sourceKey, grounded on
// the teacher's cmdSecret, narrowed from its scope-keyed put/get/list/
// delete to sourceKey-keyed put/get/delete: the new Manager has no List
// (it stores one blob per sourceKey, not a key/value bag per scope, so
// there is nothing to enumerate without a sourceKey already in hand).
func cmdSecret(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: toolrt secret <put|get|delete> <source-key> [value]")
	}

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

	identity, err := loadOrCreateIdentity(cfg.AgeKeyPath)
	if err != nil {
		return fmt.Errorf("load age identity: %w", err)
	}
	enc, err := secrets.NewAgeEncryptor(identity)
	if err != nil {
		return fmt.Errorf("create encryptor: %w", err)
	}
	sm := secrets.NewManager(db, enc)

	sub := args[0]
	rest := args[1:]

	switch sub {
	case "put":
		if len(rest) < 2 {
			return fmt.Errorf("usage: toolrt secret put <source-key> <value>")
		}
		if err := sm.Put(ctx, rest[0], []byte(rest[1])); err != nil {
			return fmt.Errorf("put secret: %w", err)
		}
		fmt.Printf("Secret set for source %q\n", rest[0])

	case "get":
		if len(rest) < 1 {
			return fmt.Errorf("usage: toolrt secret get <source-key>")
		}
		val, err := sm.Get(ctx, rest[0])
		if err != nil {
			return fmt.Errorf("get secret: %w", err)
		}
		fmt.Print(string(val))

	case "delete":
		if len(rest) < 1 {
			return fmt.Errorf("usage: toolrt secret delete <source-key>")
		}
		if err := sm.Delete(ctx, rest[0]); err != nil {
			return fmt.Errorf("delete secret: %w", err)
		}
		fmt.Printf("Secret deleted for source %q\n", rest[0])

	default:
		return fmt.Errorf("unknown secret command: %s\nUsage: toolrt secret <put|get|delete>", sub)
	}

	return nil
}
