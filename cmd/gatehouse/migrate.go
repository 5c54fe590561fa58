// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/store"
)

// NewMigrateCmd creates the migrate subcommand with up, down, version,
// and force operations for the postgres credential backend.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
		Long:  `Apply, roll back, or inspect schema migrations for the postgres credential backend.`,
	}
	cmd.PersistentFlags().String("database-url", "", "connection url for the postgres backend")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations (drops all data)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("migrations rolled back")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if version == 0 {
					cmd.Println("no migrations applied")
					return nil
				}
				name, err := store.MigrationName(version)
				if err != nil {
					return err
				}
				if name == "" {
					name = strconv.FormatUint(uint64(version), 10)
				}
				if dirty {
					cmd.Printf("%s (dirty)\n", name)
				} else {
					cmd.Println(name)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil || version < 0 {
				return oops.Code("INVALID_VERSION").Errorf("version must be a non-negative integer, got %q", args[0])
			}
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("schema version forced to %d\n", version)
				return nil
			})
		},
	})

	return cmd
}

// withMigrator resolves the database URL, runs fn with a migrator, and
// closes it. The URL comes from --database-url or the config file.
func withMigrator(cmd *cobra.Command, fn func(*store.Migrator) error) error {
	databaseURL, err := cmd.Flags().GetString("database-url")
	if err != nil {
		return oops.Wrap(err)
	}
	if databaseURL == "" && configFile != "" {
		cfg, err := config.Load(configFile, nil)
		if err != nil {
			return err
		}
		databaseURL = cfg.Database.URL
	}
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("a database url is required: pass --database-url or set database.url in the config file")
	}

	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	return fn(m)
}
