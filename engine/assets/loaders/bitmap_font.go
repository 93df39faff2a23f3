package loaders

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/fzipp/bmfont"
)

type BitmapFontLoader struct{}

// LoadBitmapFont reads an AngelCode .fnt file and its page sheets.
func LoadBitmapFont(path string) (*FontData, error) {
	font, err := bmfont.Load(path)
	if err != nil {
		return nil, fmt.Errorf("bitmap font '%s': %w", path, err)
	}
	desc := font.Descriptor

	out := &FontData{
		Face:        desc.Info.Face,
		Size:        int(desc.Info.Size),
		LineHeight:  int(desc.Common.LineHeight),
		Baseline:    int(desc.Common.Base),
		AtlasWidth:  int(desc.Common.ScaleW),
		AtlasHeight: int(desc.Common.ScaleH),
		Glyphs:      make([]FontGlyph, 0, len(desc.Chars)),
		Kernings:    make([]FontKerning, 0, len(desc.Kerning)),
		Pages:       make([]FontPage, 0, len(desc.Pages)),
	}

	dir := filepath.Dir(path)
	for _, p := range desc.Pages {
		out.Pages = append(out.Pages, FontPage{ID: int(p.ID), File: filepath.Join(dir, p.File)})
	}
	for _, g := range desc.Chars {
		out.Glyphs = append(out.Glyphs, FontGlyph{
			Codepoint: rune(g.ID),
			X:         int(g.X),
			Y:         int(g.Y),
			Width:     int(g.Width),
			Height:    int(g.Height),
			XOffset:   int(g.XOffset),
			YOffset:   int(g.YOffset),
			XAdvance:  int(g.XAdvance),
			PageID:    int(g.Page),
		})
	}
	for pair, k := range desc.Kerning {
		out.Kernings = append(out.Kernings, FontKerning{
			Codepoint0: rune(pair.First),
			Codepoint1: rune(pair.Second),
			Amount:     int(k.Amount),
		})
	}

	sort.Slice(out.Pages, func(i, j int) bool { return out.Pages[i].ID < out.Pages[j].ID })
	sort.Slice(out.Glyphs, func(i, j int) bool { return out.Glyphs[i].Codepoint < out.Glyphs[j].Codepoint })
	sort.Slice(out.Kernings, func(i, j int) bool {
		a, b := out.Kernings[i], out.Kernings[j]
		if a.Codepoint0 != b.Codepoint0 {
			return a.Codepoint0 < b.Codepoint0
		}
		return a.Codepoint1 < b.Codepoint1
	})
	return out, nil
}

func (fl *BitmapFontLoader) Load(path string, params interface{}) (*Resource, error) {
	data, err := LoadBitmapFont(path)
	if err != nil {
		return nil, err
	}
	return &Resource{
		Name:     resourceName(path),
		FullPath: path,
		DataSize: uint64(len(data.Glyphs)),
		Data:     data,
	}, nil
}

func (fl *BitmapFontLoader) Unload(r *Resource) error {
	if data, ok := r.Data.(*FontData); ok {
		data.Glyphs = nil
		data.Kernings = nil
		data.Pages = nil
	}
	r.Data = nil
	r.DataSize = 0
	r.FullPath = ""
	return nil
}
