package loaders

/** @brief One glyph inside a font atlas page. */
type FontGlyph struct {
	Codepoint rune
	X         int
	Y         int
	Width     int
	Height    int
	/** @brief Offset from the pen position to the left edge of the bitmap. */
	XOffset int
	/** @brief Offset from the top of the line to the top edge of the bitmap. */
	YOffset  int
	XAdvance int
	PageID   int
}

type FontKerning struct {
	Codepoint0 rune
	Codepoint1 rune
	Amount     int
}

type FontPage struct {
	ID   int
	File string
}

/** @brief Glyph metrics plus, for rasterized fonts, the single channel atlas pixels. */
type FontData struct {
	Face        string
	Size        int
	LineHeight  int
	Baseline    int
	AtlasWidth  int
	AtlasHeight int
	Glyphs      []FontGlyph
	Kernings    []FontKerning
	Pages       []FontPage
	// nil for bitmap fonts, whose pixels live in the page files
	Atlas []byte
}

// Glyph returns the glyph for a codepoint.
func (f *FontData) Glyph(r rune) (FontGlyph, bool) {
	for _, g := range f.Glyphs {
		if g.Codepoint == r {
			return g, true
		}
	}
	return FontGlyph{}, false
}
