package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/keyring"
	"github.com/julianstephens/habitual/internal/storage/postgres"
)

type KeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store a secret in the OS keyring."`
	Get    KeyringGetCmd    `cmd:"" help:"Show a stored secret (masked)."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove a secret from the OS keyring."`
	Status KeyringStatusCmd `cmd:"" help:"Check OS keyring availability."`
}

// entryFor selects the callback secret instead of the connection string.
func entryFor(secret bool) keyring.Entry {
	if secret {
		return keyring.CallbackSecret
	}
	return keyring.ConnectionString
}

type KeyringSetCmd struct {
	Value  string `arg:"" help:"PostgreSQL connection string, or the secret with --secret."`
	Secret bool   `help:"Store the action callback secret instead of the connection string."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	if !cmd.Secret {
		if !postgres.IsConnString(cmd.Value) && !strings.Contains(cmd.Value, "host=") {
			return errors.New("connection string must be a valid PostgreSQL connection string")
		}
		if _, err := postgres.ValidateConnString(cmd.Value); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				// The keyring is encrypted, so embedded credentials are accepted here.
				fmt.Println("⚠️  Warning: Connection string contains embedded credentials.")
				fmt.Println("   It will be stored as-is in the encrypted OS keyring.")
			} else {
				return fmt.Errorf("invalid connection string: %w", err)
			}
		}
	}

	entry := entryFor(cmd.Secret)
	if err := entry.Set(cmd.Value); err != nil {
		return err
	}

	fmt.Printf("✓ %s stored successfully in OS keyring\n", capitalize(entry.Label))
	if !cmd.Secret {
		fmt.Println("  Use --db keyring (or database: keyring in config.yaml) to connect with it")
	}
	return nil
}

type KeyringGetCmd struct {
	Secret bool `help:"Show the action callback secret instead of the connection string."`
}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	entry := entryFor(cmd.Secret)
	value, err := entry.Get()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring, use 'habitual keyring set' to store one", entry.Label)
		}
		return fmt.Errorf("failed to retrieve %s from keyring: %w", entry.Label, err)
	}

	fmt.Printf("%s retrieved from keyring:\n", capitalize(entry.Label))
	if cmd.Secret {
		fmt.Println(maskSecret(value))
	} else {
		fmt.Println(maskPassword(value))
	}
	return nil
}

type KeyringDeleteCmd struct {
	Secret bool `help:"Delete the action callback secret instead of the connection string."`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	entry := entryFor(cmd.Secret)
	if err := entry.Delete(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring", entry.Label)
		}
		return err
	}
	fmt.Printf("✓ %s deleted from OS keyring\n", capitalize(entry.Label))
	return nil
}

type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		fmt.Println("❌ OS keyring is not available on this system")
		return errors.New("keyring unavailable")
	}

	fmt.Println("✓ OS keyring is available")
	for _, entry := range []keyring.Entry{keyring.ConnectionString, keyring.CallbackSecret} {
		if _, err := entry.Get(); err == nil {
			fmt.Printf("✓ %s is stored in keyring\n", capitalize(entry.Label))
		} else if errors.Is(err, keyring.ErrNotFound) {
			fmt.Printf("ℹ No %s stored in keyring\n", entry.Label)
		}
	}
	return nil
}

// maskPassword masks passwords in connection strings for display
func maskPassword(connStr string) string {
	if postgres.IsConnString(connStr) {
		if idx := strings.Index(connStr, "://"); idx != -1 {
			remaining := connStr[idx+3:]
			// The last @ separates user info from host.
			if atIdx := strings.LastIndex(remaining, "@"); atIdx != -1 {
				userInfo := remaining[:atIdx]
				if colonIdx := strings.Index(userInfo, ":"); colonIdx != -1 {
					return connStr[:idx+3] + userInfo[:colonIdx] + ":****" + connStr[idx+3+atIdx:]
				}
			}
		}
		return connStr
	}

	if strings.Contains(connStr, "password=") {
		parts := strings.Fields(connStr)
		masked := make([]string, 0, len(parts))
		for _, part := range parts {
			if strings.HasPrefix(part, "password=") {
				masked = append(masked, "password=****")
			} else {
				masked = append(masked, part)
			}
		}
		return strings.Join(masked, " ")
	}

	return connStr
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
