package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alkime/practice/internal/audio"
	"github.com/alkime/practice/internal/config"
	"github.com/alkime/practice/internal/keyring"
	"github.com/alkime/practice/internal/store"
)

// StatusCmd prints the saved recording's location and size.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run(cfg *config.Config) error {
	st := store.NewOS(cfg.DataDir)

	fmt.Printf("path:   %s\n", st.Path())
	if !st.Exists() {
		fmt.Println("stored: no")
		return nil
	}

	info, err := st.Info()
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}

	fmt.Println("stored: yes")
	fmt.Printf("size:   %d bytes\n", info.Size())
	fmt.Printf("saved:  %s\n", info.ModTime().Format(time.DateTime))

	return nil
}

// DeleteCmd deletes the saved recording.
type DeleteCmd struct{}

// Run executes the delete command.
func (c *DeleteCmd) Run(cfg *config.Config) error {
	st := store.NewOS(cfg.DataDir)
	if err := st.Delete(); err != nil {
		return fmt.Errorf("failed to delete recording: %w", err)
	}

	fmt.Println("recording deleted")

	return nil
}

// DevicesCmd lists available audio devices.
type DevicesCmd struct{}

// Run executes the devices command.
func (dcmd *DevicesCmd) Run() error {
	slog.Info("Enumerating audio devices...")

	adev := audio.NewDevice(nil, nil)
	devices, err := adev.EnumerateDevices(context.Background())
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	for _, dev := range devices {
		slog.Info("Audio Device",
			"name", dev.Name,
			"isDefault", dev.IsDefault,
			"formatCount", dev.FormatCount,
			"formats", dev.Formats,
		)
	}

	return nil
}

// ConfigCmd groups configuration-related subcommands.
type ConfigCmd struct {
	SetKey   SetKeyCmd   `cmd:"" help:"Store an API key in system keychain"`
	ListKeys ListKeysCmd `cmd:"" name:"list-keys" help:"Show which API keys are configured"`
}

// SetKeyCmd stores an API key in the system keychain.
type SetKeyCmd struct {
	Service string `arg:"" enum:"openai" help:"Service name (openai)"`
	Secret  string `arg:"" help:"API key value"`
}

// Run executes the set-key command.
func (c *SetKeyCmd) Run() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("API key cannot be empty")
	}

	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Set(apiKey, c.Secret); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("%s API key stored in keychain\n", c.Service)

	return nil
}

// ListKeysCmd shows which API keys are configured.
type ListKeysCmd struct{}

// Run executes the list-keys command.
//
//nolint:unparam // error return required by Kong interface
func (c *ListKeysCmd) Run() error {
	allSet := true

	for _, apiKey := range keyring.AllAPIKeys() {
		if keyring.IsSet(apiKey) {
			fmt.Printf("%s: configured\n", apiKey.DisplayName())
		} else {
			fmt.Printf("%s: not set\n", apiKey.DisplayName())
			allSet = false
		}
	}

	if !allSet {
		fmt.Println("\nRun 'practice config set-key <service> <key>' to configure.")
	}

	return nil
}
