package cli

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/keepvault/internal/crypto"
	"github.com/iudanet/keepvault/internal/keys"
	"github.com/iudanet/keepvault/internal/models"
	"github.com/iudanet/keepvault/internal/validation"
)

func (c *Cli) newBenchmarkCommand() *cobra.Command {
	var (
		duration time.Duration
		apply    bool
	)
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Measure how many AES-KDF rounds fit into the given time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBenchmark(cmd.Context(), duration, apply)
		},
	}
	cmd.Flags().DurationVar(&duration, "time", time.Second, "Target key derivation time")
	cmd.Flags().BoolVar(&apply, "apply", false, "Store the measured rounds in the database")
	return cmd
}

func (c *Cli) runBenchmark(ctx context.Context, d time.Duration, apply bool) error {
	if d <= 0 {
		return fmt.Errorf("benchmark time must be positive")
	}

	c.io.Printf("Measuring AES-KDF for %s...\n", d)
	rounds := crypto.BenchmarkRounds(d)
	if err := validation.ValidateRounds(rounds); err != nil {
		return err
	}
	c.io.Printf("%s %d rounds\n", ok(), rounds)

	if !apply {
		return nil
	}

	db, err := c.openDatabase(ctx, true)
	if err != nil {
		return err
	}
	defer c.closeDatabase(ctx, db)

	if !db.KDF.IsAES() {
		return fmt.Errorf("database does not use AES-KDF")
	}
	db.KDF.Rounds = rounds
	db.Meta.SettingsChanged = models.Now()
	db.Modified = true
	if err := c.save(ctx, db); err != nil {
		return err
	}
	c.io.Printf("Transform rounds of %s set to %d\n", highlight(db.Path()), rounds)
	return nil
}

func (c *Cli) newKeyFileCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "keyfile <path>",
		Short: "Generate a new random key file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runKeyFile(cmd.Context(), args[0], force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func (c *Cli) runKeyFile(ctx context.Context, path string, force bool) error {
	exists, err := c.store.Exists(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to check key file: %w", err)
	}
	if exists && !force {
		return fmt.Errorf("%s already exists. To override, run with --force", path)
	}

	if err := keys.GenerateKeyFile(ctx, c.store, path); err != nil {
		return fmt.Errorf("failed to generate key file: %w", err)
	}
	c.io.Printf("%s Key file created: %s\n", ok(), highlight(path))
	c.io.Println(warning("Keep a backup: the database cannot be opened without it."))
	return nil
}

func (c *Cli) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			c.io.Println("KeepVault")
			c.io.Printf("  Version:    %s\n", c.version.Version)
			c.io.Printf("  Build date: %s\n", c.version.BuildDate)
			c.io.Printf("  Git commit: %s\n", c.version.GitCommit)
			c.io.Printf("  Go version: %s\n", runtime.Version())
		},
	}
}
