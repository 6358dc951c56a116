package app

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

const (
	dpi      = 120.0
	fontSize = 12.0
)

type annotatorConfig struct {
	FontPath string
	FontSize float64
	Borders  BorderConfig
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	fontBytes, err := os.ReadFile(config.FontPath)
	if err != nil {
		return nil, fmt.Errorf("reading font file: %w", err)
	}

	parsedFont, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, grid *GridData, area image.Rectangle) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawLongitudeScale(img, grid, area); err != nil {
		return fmt.Errorf("drawing longitude scale: %w", err)
	}
	if err := a.drawLatitudeScale(img, grid, area); err != nil {
		return fmt.Errorf("drawing latitude scale: %w", err)
	}
	if err := a.drawInfoBar(img, grid); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}

	return nil
}

func (a *annotator) drawLongitudeScale(img *image.RGBA, grid *GridData, area image.Rectangle) error {
	lngRange := grid.LngMax - grid.LngMin
	if lngRange == 0 {
		return nil
	}

	step := calculateNiceDegreeStep(lngRange, area.Dx())
	startLng := math.Ceil(grid.LngMin/step) * step

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := a.config.Borders.Top - fontHeight/2

	for lng := startLng; lng <= grid.LngMax; lng += step {
		xRatio := (lng - grid.LngMin) / lngRange
		x := area.Min.X + int(xRatio*float64(area.Dx()))

		for y := a.config.Borders.Top - tickMarkLength; y < a.config.Borders.Top; y++ {
			img.Set(x, y, color.Black)
		}

		label := formatDegrees(lng, grid.Precision)
		width := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(x-(width.Round()/2), textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing longitude label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawLatitudeScale(img *image.RGBA, grid *GridData, area image.Rectangle) error {
	latRange := grid.LatMax - grid.LatMin
	if latRange == 0 {
		return nil
	}

	step := calculateNiceDegreeStep(latRange, area.Dy())
	startLat := math.Ceil(grid.LatMin/step) * step

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	for lat := startLat; lat <= grid.LatMax; lat += step {
		// North is up: larger latitudes sit closer to the top edge.
		yRatio := (grid.LatMax - lat) / latRange
		y := area.Min.Y + int(yRatio*float64(area.Dy()))

		for x := a.config.Borders.Left - tickMarkLength; x < a.config.Borders.Left; x++ {
			img.Set(x, y, color.Black)
		}

		textY := y + fontHeight/2 - metrics.Descent.Round()
		pt := freetype.Pt(10, textY)
		if _, err := a.context.DrawString(formatDegrees(lat, grid.Precision), pt); err != nil {
			return fmt.Errorf("drawing latitude label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, grid *GridData) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Lat: %s - %s",
		formatDegrees(grid.LatMin, grid.Precision), formatDegrees(grid.LatMax, grid.Precision)))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("Lng: %s - %s",
		formatDegrees(grid.LngMin, grid.Precision), formatDegrees(grid.LngMax, grid.Precision)))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("%s samples in %s cells",
		humanize.Comma(int64(grid.TotalSamples)), humanize.Comma(int64(len(grid.Cells)))))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("Power: %.1f to %.1f dBm", grid.Bounds.Min, grid.Bounds.Max))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("1 cell = %.*f deg", grid.Precision, 1/grid.scale))

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := img.Bounds().Max.Y - (a.config.Borders.Bottom-fontHeight)/2 - metrics.Descent.Round()

	pt := freetype.Pt(a.config.Borders.Left, textY)
	if _, err := a.context.DrawString(sb.String(), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}

	return nil
}

func formatDegrees(deg float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, deg)
}
