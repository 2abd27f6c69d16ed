package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/iudanet/keepvault/internal/keys"
	"github.com/iudanet/keepvault/internal/validation"
)

const envMasterPassword = "KEEPVAULT_MASTER_PASSWORD"

// masterPassword retrieves master password from various sources with priority:
// 1. Environment variable KEEPVAULT_MASTER_PASSWORD
// 2. File specified by --password-file
// 3. Command-line parameter --password
// 4. Interactive prompt (fallback), repeated for confirmation when confirm is set
func (c *Cli) masterPassword(ctx context.Context, confirm bool) (string, error) {
	// Priority 1: Environment variable
	if envPassword := c.getenv(envMasterPassword); envPassword != "" {
		return envPassword, nil
	}

	// Priority 2: File
	if c.opts.PasswordFile != "" {
		r, err := c.store.OpenRead(ctx, c.opts.PasswordFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		defer r.Close()
		content, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		// Убираем trailing newline/whitespace
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	// Priority 3: CLI parameter
	if c.opts.Password != "" {
		return c.opts.Password, nil
	}

	// Priority 4: Interactive prompt (fallback)
	return c.promptPassword(confirm)
}

// promptPassword asks for a password, twice when confirm is set.
func (c *Cli) promptPassword(confirm bool) (string, error) {
	password, err := c.io.ReadPassword("Master password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	if !confirm {
		return password, nil
	}

	again, err := c.io.ReadPassword("Repeat master password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	if again != password {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}

// compositeKey builds the composite key from the master password and the
// optional key file.
func (c *Cli) compositeKey(ctx context.Context, confirm bool) (*keys.CompositeKey, error) {
	password, err := c.masterPassword(ctx, confirm)
	if err != nil {
		return nil, fmt.Errorf("failed to get master password: %w", err)
	}
	return c.buildKey(ctx, password, c.opts.KeyFile)
}

// buildKey combines a password and a key file, either of which may be empty.
func (c *Cli) buildKey(ctx context.Context, password, keyFile string) (*keys.CompositeKey, error) {
	hasKeyFile := keyFile != ""
	if err := validation.ValidatePassword(password, hasKeyFile); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	key := keys.NewCompositeKey()
	if password != "" {
		pk, err := keys.NewPasswordKey(password)
		if err != nil {
			return nil, fmt.Errorf("failed to create password key: %w", err)
		}
		key.Add(pk)
	}
	if hasKeyFile {
		kf, err := keys.LoadKeyFile(ctx, c.store, keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load key file: %w", err)
		}
		key.Add(kf)
	}
	return key, nil
}
