// Package thumbnail renders size-reduced derivatives of image artifacts.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/server/config"
	_ "golang.org/x/image/webp"
)

// Result is an encoded thumbnail. Ext includes the leading dot.
type Result struct {
	Data   []byte
	Format string
	Ext    string
	Width  int
	Height int
}

// Generator is stateless and safe for concurrent use.
//
// The Go JPEG encoder has no progressive or optimized-Huffman mode, so
// config.Thumbnail.Progressive is accepted and ignored. Decoding never
// carries EXIF/ICC metadata into the output; EXIF orientation is applied.
type Generator struct{}

func NewGenerator() *Generator { return &Generator{} }

// Generate decodes src, resizes it into the configured box without ever
// upscaling, applies blur then sharpen, and encodes it. ext is the
// extension of the source artifact and drives the "auto" format choice.
func (g *Generator) Generate(src []byte, cfg config.Thumbnail, ext string) (*Result, error) {
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, common.NewError(common.ErrThumbnailEncode, "decode", err)
	}

	bg, err := ParseColor(cfg.Background)
	if err != nil {
		return nil, common.NewError(common.ErrThumbnailEncode, "background", err)
	}

	out, err := fit(img, cfg.Fit, cfg.MaxWidth, cfg.MaxHeight, bg)
	if err != nil {
		return nil, common.NewError(common.ErrThumbnailEncode, "resize", err)
	}

	if cfg.Blur > 0 {
		out = imaging.Blur(out, cfg.Blur)
	}
	if cfg.Sharpen > 0 {
		out = imaging.Sharpen(out, cfg.Sharpen)
	}

	format := OutputFormat(cfg, ext)
	data, err := encode(out, format, cfg.Quality, bg)
	if err != nil {
		return nil, common.NewError(common.ErrThumbnailEncode, "encode "+format, err)
	}

	b := out.Bounds()
	return &Result{
		Data:   data,
		Format: format,
		Ext:    Extension(format),
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// OutputFormat picks the encoding. An explicit format wins; "auto" keeps
// png and webp sources when PreserveFormat is set and falls back to jpeg.
func OutputFormat(cfg config.Thumbnail, ext string) string {
	switch cfg.Format {
	case config.FormatJPEG, config.FormatPNG, config.FormatWEBP:
		return cfg.Format
	}
	src := strings.TrimPrefix(strings.ToLower(ext), ".")
	if cfg.PreserveFormat && (src == config.FormatPNG || src == config.FormatWEBP) {
		return src
	}
	return config.FormatJPEG
}

// Extension maps an output format onto the file extension of the derivative.
func Extension(format string) string {
	switch format {
	case config.FormatPNG:
		return ".png"
	case config.FormatWEBP:
		return ".webp"
	default:
		return ".jpg"
	}
}

func fit(img image.Image, mode string, maxW, maxH int, bg color.Color) (*image.NRGBA, error) {
	if maxW <= 0 || maxH <= 0 {
		return nil, fmt.Errorf("invalid box %dx%d", maxW, maxH)
	}
	sw, sh := img.Bounds().Dx(), img.Bounds().Dy()

	switch mode {
	case config.FitCover, "":
		return imaging.Fill(img, min(maxW, sw), min(maxH, sh), imaging.Center, imaging.Lanczos), nil
	case config.FitContain:
		inner := imaging.Fit(img, maxW, maxH, imaging.Lanczos)
		return imaging.PasteCenter(imaging.New(maxW, maxH, bg), inner), nil
	case config.FitInside:
		return imaging.Fit(img, maxW, maxH, imaging.Lanczos), nil
	case config.FitFill:
		return imaging.Resize(img, min(maxW, sw), min(maxH, sh), imaging.Lanczos), nil
	case config.FitOutside:
		scale := math.Max(float64(maxW)/float64(sw), float64(maxH)/float64(sh))
		if scale >= 1 {
			return imaging.Clone(img), nil
		}
		w := max(1, int(math.Round(float64(sw)*scale)))
		h := max(1, int(math.Round(float64(sh)*scale)))
		return imaging.Resize(img, w, h, imaging.Lanczos), nil
	default:
		return nil, fmt.Errorf("unknown fit %q", mode)
	}
}

func encode(img *image.NRGBA, format string, quality int, bg color.Color) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case config.FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		var src image.Image = img
		if p, ok := palettize(img); ok {
			src = p
		}
		if err := enc.Encode(&buf, src); err != nil {
			return nil, err
		}
	case config.FormatWEBP:
		if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return nil, err
		}
	default:
		// jpeg has no alpha channel
		flat := imaging.Overlay(imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), bg), img, image.Pt(0, 0), 1.0)
		if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// palettize converts img to a paletted image when it uses at most 256
// distinct colours.
func palettize(img *image.NRGBA) (*image.Paletted, bool) {
	index := make(map[color.NRGBA]uint8, 256)
	pal := make(color.Palette, 0, 256)

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			if _, ok := index[c]; ok {
				continue
			}
			if len(pal) == 256 {
				return nil, false
			}
			index[c] = uint8(len(pal))
			pal = append(pal, c)
		}
	}

	p := image.NewPaletted(b, pal)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			p.SetColorIndex(x, y, index[img.NRGBAAt(x, y)])
		}
	}
	return p, true
}

// ParseColor parses "#rgb" or "#rrggbb". An empty string is opaque white.
func ParseColor(s string) (color.NRGBA, error) {
	if s == "" {
		return color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
