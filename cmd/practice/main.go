package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/alkime/practice/internal/config"
	"github.com/alkime/practice/internal/logger"
)

// CLI defines the practice command structure.
type CLI struct {
	DataDir string `type:"path" help:"Data directory (default: $PRACTICE_DATA_DIR or ~/Documents/Practice)"`

	// Default TUI command (runs when no subcommand given)
	Record RecordCmd `cmd:"" default:"withargs" help:"Record a take, preview it and save it"`

	// Subcommands
	Play    PlayCmd    `cmd:"" help:"Play the saved recording"`
	Status  StatusCmd  `cmd:"" help:"Show the saved recording"`
	Delete  DeleteCmd  `cmd:"" help:"Delete the saved recording"`
	Devices DevicesCmd `cmd:"" help:"List available audio devices"`
	Config  ConfigCmd  `cmd:"" help:"Manage configuration"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Text logs for plain commands; the TUI commands move them to a file.
	logger.SetupCLI(cfg, os.Stderr)

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli,
		kong.Name("practice"),
		kong.Description("Record, review and keep a spoken practice take."),
	)

	if cli.DataDir != "" {
		cfg.DataDir = cli.DataDir
	}
	slog.Debug("configuration loaded", "env", cfg.Env, "dataDir", cfg.DataDir)

	err = ctx.Run(cfg)
	ctx.FatalIfErrorf(err)
	os.Exit(0)
}
