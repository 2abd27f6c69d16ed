package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/keepvault/internal/crypto"
	"github.com/iudanet/keepvault/internal/kdbx"
	"github.com/iudanet/keepvault/internal/validation"
)

func (c *Cli) newInitCommand() *cobra.Command {
	var (
		rounds uint64
		name   string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInit(cmd.Context(), name, rounds)
		},
	}
	cmd.Flags().Uint64Var(&rounds, "rounds", crypto.DefaultTransformRounds, "AES-KDF transform rounds (see 'keepvault benchmark')")
	cmd.Flags().StringVar(&name, "name", kdbx.DefaultRootName, "Database name")
	return cmd
}

func (c *Cli) runInit(ctx context.Context, name string, rounds uint64) error {
	if err := validation.ValidateRounds(rounds); err != nil {
		return err
	}

	exists, err := c.store.Exists(ctx, c.opts.DBPath)
	if err != nil {
		return fmt.Errorf("failed to check database: %w", err)
	}
	if exists {
		return fmt.Errorf("database %s already exists", c.opts.DBPath)
	}

	c.io.Println("=== Create Database ===")
	c.io.Println()

	key, err := c.compositeKey(ctx, true)
	if err != nil {
		return err
	}

	db := kdbx.New(key)
	db.Root.Name = name
	db.Meta.SetName(name)
	db.KDF.Rounds = rounds

	if err := db.SaveAs(ctx, c.store, c.opts.DBPath, c.status()); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	c.io.Println()
	c.io.Printf("%s Database created: %s\n", ok(), highlight(c.opts.DBPath))
	c.io.Printf("Transform rounds: %d\n", rounds)
	return nil
}
