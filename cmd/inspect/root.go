package main

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

// Config is read from the environment, flags win over it.
type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" default:"./data/badger"`
	Colours        bool   `envconfig:"INSPECT_COLOURS" default:"true"`
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Database string
	NoColour bool
	config   Config
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect the social-chat badger store",
		Long:  "Read-only views over conversations, messages, counters and accounts stored in badger.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			if err := envconfig.Process("", &opts.config); err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if opts.Database == "" {
				opts.Database = opts.config.BadgerFilepath
			}
			if opts.NoColour {
				opts.config.Colours = false
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the badger directory (default $BADGER_FILEPATH)")
	cmd.PersistentFlags().BoolVar(&opts.NoColour, "no-colour", false, "disable coloured output")

	cmd.AddCommand(NewScanCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	return cmd
}

// openReadOnly allows opening while the server holds the lock.
func openReadOnly(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		if strings.Contains(err.Error(), "Log truncate required") {
			return nil, fmt.Errorf("database needs recovery, start the server once: %w", err)
		}
		return nil, err
	}
	return db, nil
}
