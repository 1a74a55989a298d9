package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"report-generator/internal/cli"
	"report-generator/internal/config"
	"report-generator/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"YAML configuration file." type:"path" env:"REPORTGEN_CONFIG"`
	Debug   bool   `help:"Enable debug logging."`
	LogDir  string `help:"Write rotating log files to this directory." type:"path"`

	Wizard     cli.WizardCmd     `cmd:"" help:"Fill in and submit a report request." default:"1"`
	Categories cli.CategoriesCmd `cmd:"" help:"List or search report categories."`
	Keyring    struct {
		Set    cli.KeyringSetCmd    `cmd:"" help:"Store the Airtable API key in the OS keyring."`
		Delete cli.KeyringDeleteCmd `cmd:"" help:"Remove the Airtable API key from the OS keyring."`
		Status cli.KeyringStatusCmd `cmd:"" help:"Show whether an API key is stored."`
	} `cmd:"" help:"Manage the relay credential."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("reportgen"),
		kong.Description("Multi-step report request form"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": "v0.1.0"},
	)

	cfg, err := config.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logDir := cfg.Log.Dir
	if CLI.LogDir != "" {
		logDir = CLI.LogDir
	}
	if err := logger.Init(logger.Config{
		Debug: CLI.Debug || cfg.Log.Debug,
		Dir:   logDir,
		Quiet: true,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	appCtx := &cli.Context{
		Config: cfg,
		Out:    os.Stdout,
	}
	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
