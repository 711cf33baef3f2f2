package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/roman-kulish/power-quality/internal/storage"
)

// Run renders the harmonic evolution of one stored campaign into an image
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	m, caption, err := readHarmonics(ctx, store, config, logger)
	if err != nil {
		return err
	}

	var bounds *Bounds
	if config.MinValue != nil || config.MaxValue != nil {
		b := m.Bounds()
		if config.MinValue != nil {
			b.Min = *config.MinValue
		}
		if config.MaxValue != nil {
			b.Max = *config.MaxValue
		}
		if b.Max <= b.Min {
			return fmt.Errorf("invalid color scale: %g - %g", b.Min, b.Max)
		}
		bounds = &b
	}

	renderer, err := NewHeatmapRenderer(RenderConfig{
		CellWidth:     config.CellWidth,
		CellHeight:    config.CellHeight,
		ColorTheme:    config.Theme,
		Bounds:        bounds,
		NoAnnotations: config.NoAnnotations,
		Caption:       caption,
	})
	if err != nil {
		return fmt.Errorf("creating heatmap renderer: %w", err)
	}

	logger.Info("rendering heatmap",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("columns", m.Width()),
			slog.Int("rows", m.Height()),
		))

	img, err := renderer.Render(m)
	if err != nil {
		return fmt.Errorf("rendering heatmap: %w", err)
	}

	return writeImage(config.OutputFile, config.Format, img)
}

func readHarmonics(ctx context.Context, store *storage.SqliteStore, config *Config, logger *slog.Logger) (*HarmonicMatrix, string, error) {
	campaign, err := store.Campaign(ctx, config.CampaignID)
	if err != nil {
		return nil, "", fmt.Errorf("reading campaign %d: %w", config.CampaignID, err)
	}

	last := config.LastIteration
	if last == 0 {
		last = math.MaxInt32
	}

	logger.Info("iterator configuration",
		slog.Int64("campaign", campaign.ID),
		slog.String("device", campaign.DeviceType),
		slog.Int("firstIteration", config.FirstIteration),
		slog.Int("lastIteration", config.LastIteration))

	reader, err := store.ReadIterations(ctx, campaign.ID, storage.WithIterationRange(config.FirstIteration, last))
	if err != nil {
		return nil, "", err
	}
	defer reader.Close()

	m := NewHarmonicMatrix(config.Channel, config.Scale)
	for reader.Next(ctx) {
		m.Update(reader.Current())
	}
	if err = reader.Error(); err != nil {
		return nil, "", err
	}
	if m.Height() == 0 {
		return nil, "", errors.New("no iterations in range")
	}

	bounds := m.Bounds()
	logger.Info("finished reading iterations",
		slog.Group("stats",
			slog.Int("iterations", m.Height()),
			slog.String("minTimestamp", m.TimestampStart.Local().Format(time.DateTime)),
			slog.String("maxTimestamp", m.TimestampEnd.Local().Format(time.DateTime)),
			slog.String("min", formatValue(bounds.Min, m.Scale)),
			slog.String("max", formatValue(bounds.Max, m.Scale)),
		))

	caption := fmt.Sprintf("Campaign %d (%s %s)", campaign.ID, campaign.DeviceType, campaign.DeviceID)
	return m, caption, nil
}

func writeImage(path string, format ImageFormat, img image.Image) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}()

	switch format {
	case ImageJPEG:
		return jpeg.Encode(out, img, &jpeg.Options{Quality: 98})
	default:
		return png.Encode(out, img)
	}
}
