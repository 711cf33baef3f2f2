package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roman-kulish/power-quality/internal/instrument"
	"github.com/roman-kulish/power-quality/internal/instrument/dwf"
	"github.com/roman-kulish/power-quality/internal/instrument/simulator"
	"github.com/roman-kulish/power-quality/internal/notify"
	"github.com/roman-kulish/power-quality/internal/storage"
)

const (
	storageDir = "data"
)

type versioner interface {
	Version() (string, error)
}

// Run executes a complete measurement campaign. The store is created before
// the instrument so that a storage failure never leaves a device open.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer func() {
		if cErr := store.Close(); cErr != nil {
			logger.Error("closing storage", slog.String("error", cErr.Error()))
		}
	}()

	opener, err := createOpener(&config.Device)
	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	if v, ok := opener.(versioner); ok {
		if version, err := v.Version(); err == nil {
			logger.Info("instrument runtime", slog.String("device", opener.Device()), slog.String("version", version))
		}
	}

	options := []func(*Campaign){
		WithLogger(logger),
	}
	if config.Notifier.Enabled {
		notifier, err := notify.NewSMTPNotifier(&config.Notifier, notify.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to create notifier: %w", err)
		}
		options = append(options, WithNotifier(notifier))
	}
	if config.Settings.ClearScreen {
		options = append(options, WithTerminal(os.Stdout))
	}

	campaign, err := NewCampaign(config, opener, store, options...)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	if _, err = campaign.Run(ctx); err != nil {
		return err
	}

	return nil
}

func createOpener(config *DeviceConfig) (instrument.Opener, error) {
	switch config.Type {
	case DeviceDWF:
		opener, err := dwf.New(config.DWF)
		if err != nil {
			return nil, fmt.Errorf("creating WaveForms device: %w", err)
		}
		return opener, nil

	case DeviceSimulator:
		opener, err := simulator.New(config.Simulator)
		if err != nil {
			return nil, fmt.Errorf("creating simulator: %w", err)
		}
		return opener, nil

	default:
		return nil, fmt.Errorf("creating device: unknown type '%s'", config.Type)
	}
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, error) {
	dbPath := config.DataDirectory
	if dbPath == "" {
		dbPath = storageDir
	}
	if !filepath.IsAbs(dbPath) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		dbPath = filepath.Join(wd, dbPath)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, fmt.Errorf("storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("pq_campaign_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	store := storage.NewSqliteStore(dbPath)
	if err = store.Init(); err != nil {
		return nil, fmt.Errorf("creating storage: %w", err)
	}

	return store, nil
}
