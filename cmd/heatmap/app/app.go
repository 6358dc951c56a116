package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/radiowatch/sigstream/internal/geo"
	"github.com/radiowatch/sigstream/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	return renderSession(ctx, store, config, logger)
}

func renderSession(ctx context.Context, store storage.Store, config *Config, logger *slog.Logger) error {
	session, err := store.Session(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}
	if session == nil {
		return fmt.Errorf("session %d does not exist", config.SessionID)
	}

	logger.Info("reading geo samples",
		slog.Int64("session", session.ID),
		slog.String("channel", session.Channel))

	samples, err := store.GeoSamples(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("reading geo samples: %w", err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("session %d has no geo samples", config.SessionID)
	}

	cells := geo.Aggregate(samples, config.Precision)

	bounds := powerBounds(cells)
	if config.MinPower != nil {
		bounds.Min = *config.MinPower
	}
	if config.MaxPower != nil {
		bounds.Max = *config.MaxPower
	}

	grid := NewGridData(cells, config.Precision, bounds)
	if grid == nil {
		return fmt.Errorf("session %d produced no grid cells", config.SessionID)
	}

	logger.Info("finished aggregating geo samples",
		slog.Group("stats",
			slog.Int("samples", len(samples)),
			slog.Int("cells", len(cells)),
			slog.Int("width", grid.Width),
			slog.Int("height", grid.Height),
			slog.String("minPower", fmt.Sprintf("%0.2fdBm", bounds.Min)),
			slog.String("maxPower", fmt.Sprintf("%0.2fdBm", bounds.Max)),
		))

	fontPath := config.FontPath
	if config.NoAnnotations {
		fontPath = ""
	}
	renderer := NewGridRenderer(RenderConfig{
		FontPath:   fontPath,
		ColorTheme: config.Theme,
		CellSize:   config.CellSize,
	})

	logger.Info("rendering heatmap",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
		))

	img, err := renderer.Render(grid)
	if err != nil {
		return fmt.Errorf("rendering heatmap: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}
