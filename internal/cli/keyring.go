package cli

import (
	"errors"
	"fmt"

	"report-generator/internal/keyring"
)

// KeyringSetCmd stores the Airtable API key in the OS keyring
type KeyringSetCmd struct {
	APIKey string `arg:"" name:"api-key" help:"Airtable personal access token."`
}

func (cmd *KeyringSetCmd) Run(ctx *Context) error {
	if err := keyring.SetAPIKey(cmd.APIKey); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, successStyle.Render("✓ API key stored in OS keyring"))
	return nil
}

// KeyringDeleteCmd removes the Airtable API key from the OS keyring
type KeyringDeleteCmd struct{}

func (cmd *KeyringDeleteCmd) Run(ctx *Context) error {
	if err := keyring.DeleteAPIKey(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no API key found in keyring")
		}
		return err
	}
	fmt.Fprintln(ctx.Out, successStyle.Render("✓ API key deleted from OS keyring"))
	return nil
}

// KeyringStatusCmd reports whether an API key is stored
type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *Context) error {
	status, err := keyring.Status()
	if err != nil {
		return err
	}
	if !status.Stored {
		fmt.Fprintln(ctx.Out, infoStyle.Render("ℹ No API key stored in keyring"))
		return nil
	}
	fmt.Fprintln(ctx.Out, successStyle.Render("✓ API key is stored in keyring ("+status.Hint+")"))
	return nil
}
