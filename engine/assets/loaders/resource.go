// Package loaders decodes asset files into the typed data the engine
// uploads: PCM sounds, RGBA pixels, single-mesh geometry, font glyphs and
// shader sources.
package loaders

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

/** @brief A decoded asset. Data holds the loader specific type. */
type Resource struct {
	Name     string
	FullPath string
	DataSize uint64
	Data     interface{}
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func resourceName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func paramsError(loader string, params interface{}) error {
	return fmt.Errorf("failed to cast params %T in %s loader", params, loader)
}

type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, params interface{}) (*Resource, error) {
	buf, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return &Resource{
		Name:     resourceName(path),
		FullPath: path,
		DataSize: uint64(len(buf)),
		Data:     buf,
	}, nil
}

func (bl *BinaryLoader) Unload(r *Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}
