package loaders

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

var ErrFaceNotFound = errors.New("font face not found")

// DefaultCharset is printable ASCII.
const DefaultCharset = " !\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~"

/** @brief Parameters for rasterizing a system font. */
type SystemFontParams struct {
	/** @brief Pixel size of the glyphs. */
	Size float64
	/** @brief The characters to rasterize. Defaults to printable ASCII. */
	Charset string
	/** @brief Width of the atlas. The height is grown to fit. Defaults to 512. */
	AtlasWidth int
}

type glyphBitmap struct {
	glyph  FontGlyph
	pixels []byte
}

/**
 * @brief Rasterizes the glyphs of a TrueType/OpenType font into a single
 * channel atlas packed in shelves.
 * @param data The font file, either a single font or a collection.
 * @param faceName The full name of the face in a collection; empty picks the first.
 */
func RasterizeFont(data []byte, faceName string, params SystemFontParams) (*FontData, error) {
	if params.Size <= 0 {
		return nil, fmt.Errorf("invalid font size %f", params.Size)
	}
	if params.Charset == "" {
		params.Charset = DefaultCharset
	}
	if params.AtlasWidth <= 0 {
		params.AtlasWidth = 512
	}

	f, name, err := pickFace(data, faceName)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    params.Size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	defer face.Close()

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	out := &FontData{
		Face:       name,
		Size:       int(params.Size),
		LineHeight: metrics.Height.Ceil(),
		Baseline:   ascent,
		AtlasWidth: params.AtlasWidth,
		Pages:      []FontPage{{ID: 0}},
	}

	bitmaps := make([]glyphBitmap, 0, len(params.Charset))
	seen := make(map[rune]bool)
	for _, r := range params.Charset {
		if seen[r] {
			continue
		}
		seen[r] = true
		dr, mask, maskp, advance, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}
		bitmaps = append(bitmaps, glyphBitmap{
			glyph: FontGlyph{
				Codepoint: r,
				Width:     dr.Dx(),
				Height:    dr.Dy(),
				XOffset:   dr.Min.X,
				YOffset:   dr.Min.Y + ascent,
				XAdvance:  advance.Round(),
			},
			pixels: alphaPixels(mask, maskp, dr.Dx(), dr.Dy()),
		})
	}

	if err := packShelves(out, bitmaps); err != nil {
		return nil, err
	}
	kernings(out, face)
	return out, nil
}

func pickFace(data []byte, faceName string) (*sfnt.Font, string, error) {
	coll, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse font: %w", err)
	}
	for i := 0; i < coll.NumFonts(); i++ {
		f, err := coll.Font(i)
		if err != nil {
			return nil, "", err
		}
		name, err := f.Name(nil, sfnt.NameIDFull)
		if err != nil {
			name = ""
		}
		if faceName == "" || strings.EqualFold(name, faceName) {
			return f, name, nil
		}
	}
	return nil, "", fmt.Errorf("%w: '%s'", ErrFaceNotFound, faceName)
}

func alphaPixels(mask image.Image, maskp image.Point, w, h int) []byte {
	pixels := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			_, _, _, a := mask.At(maskp.X+x, maskp.Y+y).RGBA()
			pixels[y*w+x] = byte(a >> 8)
		}
	}
	return pixels
}

const glyphPadding = 1

// packShelves places glyphs left to right in rows as tall as the tallest
// glyph of the row and copies their pixels into the atlas.
func packShelves(out *FontData, bitmaps []glyphBitmap) error {
	x, y, rowHeight := glyphPadding, glyphPadding, 0
	for i := range bitmaps {
		g := &bitmaps[i].glyph
		if g.Width+2*glyphPadding > out.AtlasWidth {
			return fmt.Errorf("glyph %q is wider than the %dpx atlas", g.Codepoint, out.AtlasWidth)
		}
		if x+g.Width+glyphPadding > out.AtlasWidth {
			x = glyphPadding
			y += rowHeight + glyphPadding
			rowHeight = 0
		}
		g.X, g.Y = x, y
		x += g.Width + glyphPadding
		if g.Height > rowHeight {
			rowHeight = g.Height
		}
	}
	out.AtlasHeight = nextPowerOfTwo(y + rowHeight + glyphPadding)
	out.Atlas = make([]byte, out.AtlasWidth*out.AtlasHeight)
	out.Glyphs = make([]FontGlyph, 0, len(bitmaps))
	for _, b := range bitmaps {
		g := b.glyph
		for row := 0; row < g.Height; row++ {
			dst := (g.Y+row)*out.AtlasWidth + g.X
			copy(out.Atlas[dst:dst+g.Width], b.pixels[row*g.Width:(row+1)*g.Width])
		}
		out.Glyphs = append(out.Glyphs, g)
	}
	return nil
}

func kernings(out *FontData, face font.Face) {
	for _, a := range out.Glyphs {
		for _, b := range out.Glyphs {
			if k := face.Kern(a.Codepoint, b.Codepoint).Round(); k != 0 {
				out.Kernings = append(out.Kernings, FontKerning{Codepoint0: a.Codepoint, Codepoint1: b.Codepoint, Amount: k})
			}
		}
	}
}

func nextPowerOfTwo(v int) int {
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}

type SystemFontLoader struct{}

/**
 * @brief Loads a system font config: "file=" names the font file relative
 * to the config and every "face=" line names a face to rasterize.
 * The resource data is a []*FontData, one per face.
 */
func (fl *SystemFontLoader) Load(path string, params interface{}) (*Resource, error) {
	p := SystemFontParams{Size: 32}
	switch typed := params.(type) {
	case nil:
	case SystemFontParams:
		p = typed
	case *SystemFontParams:
		p = *typed
	default:
		return nil, paramsError("system font", params)
	}

	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var fontFile string
	var faces []string
	scanner := bufio.NewScanner(bytes.NewReader(cfg))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Skip comments and empty lines
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "file=") {
			fontFile = strings.TrimPrefix(line, "file=")
		} else if strings.HasPrefix(line, "face=") {
			faces = append(faces, strings.TrimPrefix(line, "face="))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if fontFile == "" {
		return nil, fmt.Errorf("system font config '%s' has no file entry", path)
	}
	if len(faces) == 0 {
		faces = []string{""}
	}

	fontBytes, err := readFile(filepath.Join(filepath.Dir(path), fontFile))
	if err != nil {
		return nil, err
	}
	fonts := make([]*FontData, 0, len(faces))
	size := uint64(0)
	for _, name := range faces {
		fd, err := RasterizeFont(fontBytes, name, p)
		if err != nil {
			return nil, fmt.Errorf("system font '%s': %w", path, err)
		}
		fonts = append(fonts, fd)
		size += uint64(len(fd.Atlas))
	}
	return &Resource{
		Name:     resourceName(path),
		FullPath: path,
		DataSize: size,
		Data:     fonts,
	}, nil
}

func (fl *SystemFontLoader) Unload(r *Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}
