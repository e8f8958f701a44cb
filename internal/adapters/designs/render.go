package designs

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"gardencore/pkg/domain"
)

// Format names a design artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatPNG  Format = "png"
)

// Formats lists every supported format in the order exports default to.
var Formats = []Format{FormatJSON, FormatCSV, FormatHTML, FormatPNG}

// ParseFormat normalises a user supplied format name.
func ParseFormat(raw string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type written alongside the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPNG:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// Render encodes rec in the requested format.
func Render(format Format, rec domain.DesignRecord) ([]byte, error) {
	switch format {
	case FormatJSON:
		payload, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		return payload, nil
	case FormatCSV:
		return renderCSV(rec.Design)
	case FormatHTML:
		return renderHTML(rec.Design), nil
	case FormatPNG:
		return RenderPNG(rec.Design)
	default:
		return nil, fmt.Errorf("unsupported export format %s", format)
	}
}

var csvHeader = []string{
	"zone_id", "sun_exposure", "water_condition", "scientific_name",
	"common_name", "plant_type", "quantity", "score",
}

func renderCSV(d domain.Design) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, zd := range d.Zones {
		for _, sel := range zd.Plants {
			row := []string{
				zd.Zone.ID,
				string(zd.Zone.SunExposure),
				string(zd.Zone.WaterCondition),
				sel.Plant.ScientificName,
				sel.Plant.CommonName,
				sel.Plant.Category,
				strconv.Itoa(sel.Quantity),
				strconv.FormatFloat(sel.Score, 'f', 2, 64),
			}
			if err := writer.Write(row); err != nil {
				return nil, err
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var titler = cases.Title(language.English)

// label turns identifiers such as full_sun into display text.
func label(raw string) string {
	return titler.String(strings.ReplaceAll(raw, "_", " "))
}

func renderHTML(d domain.Design) []byte {
	buf := &strings.Builder{}
	title := html.EscapeString("Landscape Design: " + d.Site.Name)
	buf.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>")
	buf.WriteString(title)
	buf.WriteString("</title></head><body><h1>")
	buf.WriteString(title)
	buf.WriteString("</h1>")

	stats := d.Statistics
	buf.WriteString("<table class=\"statistics\"><tbody>")
	writeRow(buf, "Total Plants", strconv.Itoa(stats.TotalPlants))
	writeRow(buf, "Native Percentage", strconv.FormatFloat(stats.NativePercentage, 'f', 1, 64)+"%")
	writeRow(buf, "Water Usage Score", strconv.FormatFloat(stats.WaterUsageScore, 'f', 2, 64))
	writeRow(buf, "Maintenance Score", strconv.FormatFloat(stats.MaintenanceScore, 'f', 2, 64))
	writeRow(buf, "Biodiversity Score", strconv.FormatFloat(stats.BiodiversityScore, 'f', 2, 64))
	buf.WriteString("</tbody></table>")

	for _, zd := range d.Zones {
		buf.WriteString("<h2>")
		buf.WriteString(html.EscapeString(fmt.Sprintf("%s / %s (%.1f sq ft)",
			label(string(zd.Zone.SunExposure)), label(string(zd.Zone.WaterCondition)), zd.Zone.Area)))
		buf.WriteString("</h2><table class=\"zone\"><thead><tr>")
		for _, h := range []string{"Plant", "Common Name", "Type", "Quantity", "Score"} {
			buf.WriteString("<th>" + h + "</th>")
		}
		buf.WriteString("</tr></thead><tbody>")
		for _, sel := range zd.Plants {
			buf.WriteString("<tr>")
			for _, cell := range []string{
				sel.Plant.ScientificName,
				sel.Plant.CommonName,
				label(sel.Plant.Category),
				strconv.Itoa(sel.Quantity),
				strconv.FormatFloat(sel.Score, 'f', 2, 64),
			} {
				buf.WriteString("<td>")
				buf.WriteString(html.EscapeString(cell))
				buf.WriteString("</td>")
			}
			buf.WriteString("</tr>")
		}
		buf.WriteString("</tbody></table>")
	}
	buf.WriteString("</body></html>")
	return []byte(buf.String())
}

func writeRow(buf *strings.Builder, key, value string) {
	buf.WriteString("<tr><th>")
	buf.WriteString(key)
	buf.WriteString("</th><td>")
	buf.WriteString(html.EscapeString(value))
	buf.WriteString("</td></tr>")
}

const (
	plotWidth  = 600
	plotHeight = 400
	plotBorder = 2
	markerSize = 10
)

var defaultCategoryColor = rgb(0x2E8B57)

// categoryColors is keyed by lower-cased plant type.
var categoryColors = map[string]color.RGBA{
	"tree":                 rgb(0x2E8B57),
	"deciduous tree":       rgb(0x228B22),
	"evergreen tree":       rgb(0x006400),
	"shrub":                rgb(0x3CB371),
	"deciduous shrub":      rgb(0x32CD32),
	"evergreen shrub":      rgb(0x008000),
	"herbaceous perennial": rgb(0x7CFC00),
	"perennial":            rgb(0x7CFC00),
	"grass":                rgb(0xADFF2F),
	"groundcover":          rgb(0x98FB98),
	"vine":                 rgb(0x00FA9A),
	"fern":                 rgb(0x00FF7F),
	"bulb":                 rgb(0x9ACD32),
	"annual":               rgb(0x6B8E23),
	"aquatic":              rgb(0x66CDAA),
	"succulent":            rgb(0x8FBC8F),
	"fruit":                rgb(0x556B2F),
}

var waterColors = map[domain.WaterCondition]color.RGBA{
	domain.WaterDry:       rgb(0xF5DEB3),
	domain.WaterMediumDry: rgb(0xDAA520),
	domain.WaterMedium:    rgb(0x1E90FF),
	domain.WaterMediumWet: rgb(0x4169E1),
	domain.WaterWet:       rgb(0x0000CD),
}

func rgb(hex uint32) color.RGBA {
	return color.RGBA{R: uint8(hex >> 16), G: uint8(hex >> 8), B: uint8(hex), A: 255}
}

// tint mixes c with white, keeping weight of the original colour.
func tint(c color.RGBA, weight float64) color.RGBA {
	mix := func(v uint8) uint8 { return uint8(float64(v)*weight + 255*(1-weight)) }
	return color.RGBA{R: mix(c.R), G: mix(c.G), B: mix(c.B), A: 255}
}

// CategoryColor returns the marker colour for a plant type.
func CategoryColor(category string) color.RGBA {
	if c, ok := categoryColors[strings.ToLower(strings.TrimSpace(category))]; ok {
		return c
	}
	return defaultCategoryColor
}

// RenderPNG draws the design as horizontal zone bands, each sized by zone area
// and tinted by water condition, with one marker per selection laid out on an
// even grid across its band. Identical designs produce identical bytes.
func RenderPNG(d domain.Design) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, plotWidth, plotHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	inner := image.Rect(plotBorder, plotBorder, plotWidth-plotBorder, plotHeight-plotBorder)
	var total float64
	for _, zd := range d.Zones {
		total += zd.Zone.Area
	}

	y := inner.Min.Y
	for i, zd := range d.Zones {
		bandHeight := 0
		switch {
		case i == len(d.Zones)-1:
			bandHeight = inner.Max.Y - y
		case total > 0:
			bandHeight = int(float64(inner.Dy()) * zd.Zone.Area / total)
		default:
			bandHeight = inner.Dy() / len(d.Zones)
		}
		band := image.Rect(inner.Min.X, y, inner.Max.X, y+bandHeight)
		fill, ok := waterColors[zd.Zone.WaterCondition]
		if !ok {
			fill = rgb(0xD3D3D3)
		}
		draw.Draw(img, band, &image.Uniform{tint(fill, 0.3)}, image.Point{}, draw.Src)
		drawMarkers(img, band, zd.Plants)
		y += bandHeight
	}

	drawFrame(img, color.Black)

	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawMarkers(img *image.RGBA, band image.Rectangle, selections []domain.Selection) {
	if len(selections) == 0 || band.Dy() <= 0 {
		return
	}
	step := band.Dx() / len(selections)
	cy := band.Min.Y + band.Dy()/2
	half := markerSize / 2
	if band.Dy() < markerSize {
		half = band.Dy() / 2
	}
	for i, sel := range selections {
		cx := band.Min.X + step*i + step/2
		marker := image.Rect(cx-half, cy-half, cx+half, cy+half).Intersect(band)
		draw.Draw(img, marker, &image.Uniform{CategoryColor(sel.Plant.Category)}, image.Point{}, draw.Src)
	}
}

func drawFrame(img *image.RGBA, c color.Color) {
	b := img.Bounds()
	fill := &image.Uniform{c}
	draw.Draw(img, image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+plotBorder), fill, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(b.Min.X, b.Max.Y-plotBorder, b.Max.X, b.Max.Y), fill, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(b.Min.X, b.Min.Y, b.Min.X+plotBorder, b.Max.Y), fill, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(b.Max.X-plotBorder, b.Min.Y, b.Max.X, b.Max.Y), fill, image.Point{}, draw.Src)
}
