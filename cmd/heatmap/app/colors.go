package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorTheme selects a predefined gradient for power visualization:
// - ClassicTheme: traditional spectrum display (blue to red)
// - GrayscaleTheme: monochrome visualization
// - JungleTheme: dark green to yellow, higher contrast on maps
// - ThermalTheme: black to red to yellow to white heat map
// - MarineTheme: deep blue to cyan to white
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"
	GrayscaleTheme ColorTheme = "grayscale"
	JungleTheme    ColorTheme = "jungle"
	ThermalTheme   ColorTheme = "thermal"
	MarineTheme    ColorTheme = "marine"

	DefaultColorMapSize = 256
)

// NoDataColor fills grid positions without any samples.
var NoDataColor = color.RGBA{R: 16, G: 16, B: 16, A: 255}

// ColorMapper maps normalized intensity in [0, 1] to a theme color through a
// pre-computed lookup table.
type ColorMapper struct {
	colorMap  []color.Color
	theme     func(float64) color.Color
	themeName ColorTheme
	size      int
}

// NewColorMapper creates a mapper with the default table size.
func NewColorMapper(theme ColorTheme) *ColorMapper {
	return NewColorMapperWithSize(theme, DefaultColorMapSize)
}

// NewColorMapperWithSize creates a mapper with size pre-computed colors.
func NewColorMapperWithSize(theme ColorTheme, size int) *ColorMapper {
	if size <= 0 {
		size = DefaultColorMapSize
	}

	cm := &ColorMapper{
		colorMap:  make([]color.Color, size),
		theme:     getColorTheme(theme),
		themeName: theme,
		size:      size,
	}
	for i := 0; i < size; i++ {
		cm.colorMap[i] = cm.theme(float64(i) / float64(size-1))
	}
	return cm
}

// GetColor returns the color for a normalized intensity, clamping out-of-range
// values to the table edges.
func (cm *ColorMapper) GetColor(intensity float64) color.Color {
	index := int(intensity * float64(cm.size-1))
	if index < 0 {
		return cm.colorMap[0]
	}
	if index >= cm.size {
		return cm.colorMap[cm.size-1]
	}
	return cm.colorMap[index]
}

// ThemeName returns the current color theme name
func (cm *ColorMapper) ThemeName() ColorTheme {
	return cm.themeName
}

// Size returns the color map size
func (cm *ColorMapper) Size() int {
	return cm.size
}

func getColorTheme(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case ClassicTheme:
		return func(intensity float64) color.Color {
			return colorful.Hsv(240-(intensity*240), 0.9+(intensity*0.1), math.Pow(intensity, 0.7))
		}

	case GrayscaleTheme:
		return func(intensity float64) color.Color {
			v := uint8(math.Pow(intensity, 0.7) * 255)
			return color.RGBA{R: v, G: v, B: v, A: 255}
		}

	case JungleTheme:
		return func(intensity float64) color.Color {
			return colorful.Hsv(120-(intensity*60), 1.0, 0.3+(math.Pow(intensity, 0.6)*0.7))
		}

	case ThermalTheme:
		return func(intensity float64) color.Color {
			if intensity < 0.33 {
				return color.RGBA{
					R: uint8((intensity * 3) * 255),
					A: 255,
				}
			}
			if intensity < 0.66 {
				return color.RGBA{
					R: 255,
					G: uint8(((intensity - 0.33) * 3) * 255),
					A: 255,
				}
			}
			return color.RGBA{
				R: 255,
				G: 255,
				B: uint8(((intensity - 0.66) * 3) * 255),
				A: 255,
			}
		}

	case MarineTheme:
		return func(intensity float64) color.Color {
			return colorful.Hsv(240-(intensity*60), 1.0-(intensity*0.8), 0.3+(math.Pow(intensity, 0.6)*0.7))
		}

	default: // Enhanced default theme with better low-intensity differentiation
		return func(intensity float64) color.Color {
			intensity = math.Max(0, math.Min(1, intensity))
			enhanced := math.Pow(intensity, 0.7)

			switch {
			case intensity < 0.25:
				return colorful.Hsv(240, 1.0, math.Min(1.0, enhanced*4))
			case intensity < 0.5:
				return colorful.Hsv(240-((intensity-0.25)*240), 1.0, math.Min(1.0, enhanced*1.5))
			case intensity < 0.75:
				p := (intensity - 0.5) * 4
				return colorful.Hsv(180-(p*120), 1.0, math.Min(1.0, enhanced*1.5))
			default:
				p := (intensity - 0.75) * 4
				return colorful.Hsv(60-(p*60), 1.0, 1.0)
			}
		}
	}
}
