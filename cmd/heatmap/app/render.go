package app

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/radiowatch/sigstream/internal/geo"
	"github.com/radiowatch/sigstream/internal/spectrum"
)

const (
	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 40
	defaultRightBorder  = 40

	pixelsPerLabel = 150.0
	tickMarkLength = 5
)

// GridData is a renderable view over one session's aggregated geo grid.
type GridData struct {
	Cells     []spectrum.GridCell
	Precision int
	Bounds    geo.PowerRange

	LatMin, LatMax float64
	LngMin, LngMax float64
	Width, Height  int // Grid dimensions in cells

	TotalSamples int

	scale                    float64
	latIndexMax, lngIndexMin int64
}

// NewGridData computes the grid extents for cells aggregated at the given
// precision. Returns nil when there are no cells to render.
func NewGridData(cells []spectrum.GridCell, precision int, bounds geo.PowerRange) *GridData {
	if len(cells) == 0 {
		return nil
	}

	g := GridData{
		Cells:     cells,
		Precision: precision,
		Bounds:    bounds,
		LatMin:    math.MaxFloat64,
		LatMax:    -math.MaxFloat64,
		LngMin:    math.MaxFloat64,
		LngMax:    -math.MaxFloat64,
		scale:     math.Pow(10, float64(precision)),
	}

	var latIndexMin, lngIndexMax int64
	latIndexMin = math.MaxInt64
	g.latIndexMax = math.MinInt64
	g.lngIndexMin = math.MaxInt64
	lngIndexMax = math.MinInt64

	for _, cell := range cells {
		g.LatMin = min(g.LatMin, cell.Latitude)
		g.LatMax = max(g.LatMax, cell.Latitude)
		g.LngMin = min(g.LngMin, cell.Longitude)
		g.LngMax = max(g.LngMax, cell.Longitude)
		g.TotalSamples += cell.Samples

		latIndex, lngIndex := g.cellIndex(cell)
		latIndexMin = min(latIndexMin, latIndex)
		g.latIndexMax = max(g.latIndexMax, latIndex)
		g.lngIndexMin = min(g.lngIndexMin, lngIndex)
		lngIndexMax = max(lngIndexMax, lngIndex)
	}

	g.Width = int(lngIndexMax-g.lngIndexMin) + 1
	g.Height = int(g.latIndexMax-latIndexMin) + 1
	return &g
}

// cellIndex maps rounded cell coordinates onto integer grid indices.
func (g *GridData) cellIndex(cell spectrum.GridCell) (latIndex, lngIndex int64) {
	return int64(math.Round(cell.Latitude * g.scale)), int64(math.Round(cell.Longitude * g.scale))
}

// cellOrigin returns the top-left pixel of a cell within the grid area.
// North is up, so larger latitudes map to smaller y.
func (g *GridData) cellOrigin(cell spectrum.GridCell, cellSize int) (x, y int) {
	latIndex, lngIndex := g.cellIndex(cell)
	return int(lngIndex-g.lngIndexMin) * cellSize, int(g.latIndexMax-latIndex) * cellSize
}

// BorderConfig defines the sizes of white space around the grid
type BorderConfig struct {
	Top    int // Space for longitude scale
	Left   int // Space for latitude scale
	Bottom int // Space for information bar
	Right  int // Right padding
}

// RenderConfig holds all configuration options for heatmap visualization
type RenderConfig struct {
	FontPath     string     // TTF font for annotations, empty to disable them
	FontSize     float64    // Font size in points
	ColorTheme   ColorTheme // Color scheme for power values
	CellSize     int        // Rendered size of one grid cell in pixels
	BorderConfig BorderConfig
}

// GridRenderer draws aggregated geo grids as annotated raster images.
type GridRenderer struct {
	colorMap *ColorMapper
	config   RenderConfig
}

// NewGridRenderer creates a renderer with the given configuration, filling
// zero values with defaults.
func NewGridRenderer(config RenderConfig) *GridRenderer {
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.CellSize <= 0 {
		config.CellSize = 8
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &GridRenderer{
		colorMap: NewColorMapper(config.ColorTheme),
		config:   config,
	}
}

// Render creates an image of the grid data with annotations.
func (r *GridRenderer) Render(grid *GridData) (*image.RGBA, error) {
	gridWidth := grid.Width * r.config.CellSize
	gridHeight := grid.Height * r.config.CellSize

	fullWidth := gridWidth + r.config.BorderConfig.Left + r.config.BorderConfig.Right
	fullHeight := gridHeight + r.config.BorderConfig.Top + r.config.BorderConfig.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	gridArea := image.Rect(
		r.config.BorderConfig.Left,
		r.config.BorderConfig.Top,
		r.config.BorderConfig.Left+gridWidth,
		r.config.BorderConfig.Top+gridHeight,
	)

	if r.config.FontPath != "" {
		ann, err := newAnnotator(annotatorConfig{
			FontPath: r.config.FontPath,
			FontSize: r.config.FontSize,
			Borders:  r.config.BorderConfig,
		})
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()

		if err = ann.annotate(img, grid, gridArea); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	r.renderGrid(img, gridArea, grid)

	return img, nil
}

// renderGrid paints the cells over a no-data background.
func (r *GridRenderer) renderGrid(img *image.RGBA, area image.Rectangle, grid *GridData) {
	draw.Draw(img, area, image.NewUniform(NoDataColor), image.Point{}, draw.Src)

	for _, cell := range grid.Cells {
		x, y := grid.cellOrigin(cell, r.config.CellSize)
		cellArea := image.Rect(
			area.Min.X+x,
			area.Min.Y+y,
			area.Min.X+x+r.config.CellSize,
			area.Min.Y+y+r.config.CellSize,
		)

		c := r.colorMap.GetColor(geo.Intensity(cell.Power, grid.Bounds))
		draw.Draw(img, cellArea, image.NewUniform(c), image.Point{}, draw.Src)
	}
}

// calculateNiceDegreeStep picks a round coordinate step so that labels land
// roughly pixelsPerLabel apart.
func calculateNiceDegreeStep(degreeRange float64, pixels int) float64 {
	steps := []float64{
		0.00001, 0.00002, 0.00005,
		0.0001, 0.0002, 0.0005,
		0.001, 0.002, 0.005,
		0.01, 0.02, 0.05,
		0.1, 0.2, 0.5,
		1, 2, 5, 10,
	}

	desiredSteps := float64(pixels) / pixelsPerLabel
	if desiredSteps < 1 {
		desiredSteps = 1
	}
	targetStep := degreeRange / desiredSteps

	for _, step := range steps {
		if step >= targetStep {
			return step
		}
	}
	return degreeRange / 2
}
