package loaders

import (
	"fmt"
	"strings"
)

type ShaderTarget uint8

const (
	// ShaderTargetDesktop keeps the sources as written for GL 3.3 core.
	ShaderTargetDesktop ShaderTarget = iota
	// ShaderTargetWeb rewrites the version header for WebGL2 (GLSL ES 3.00).
	ShaderTargetWeb
)

const webHeader = "#version 300 es\nprecision highp float;\n"

/** @brief The stage sources of one shader program. */
type ShaderSource struct {
	Name     string
	Vertex   string
	Fragment string
}

/** @brief Parameters for the shader loader. */
type ShaderParams struct {
	Target ShaderTarget
}

type ShaderLoader struct{}

// LoadShaderSource reads <base>.vert and <base>.frag.
func LoadShaderSource(base string, target ShaderTarget) (*ShaderSource, error) {
	vertex, err := readFile(base + ".vert")
	if err != nil {
		return nil, err
	}
	fragment, err := readFile(base + ".frag")
	if err != nil {
		return nil, err
	}
	return &ShaderSource{
		Name:     resourceName(base),
		Vertex:   Retarget(string(vertex), target),
		Fragment: Retarget(string(fragment), target),
	}, nil
}

// Retarget swaps the #version line of a GLSL source for the target.
func Retarget(source string, target ShaderTarget) string {
	if target != ShaderTargetWeb {
		return source
	}
	body := source
	if strings.HasPrefix(strings.TrimSpace(body), "#version") {
		body = strings.TrimSpace(body)
		if i := strings.IndexByte(body, '\n'); i >= 0 {
			body = body[i+1:]
		} else {
			body = ""
		}
	}
	return webHeader + body
}

// Load takes the path of either stage file; the other stage is found next to it.
func (sl *ShaderLoader) Load(path string, params interface{}) (*Resource, error) {
	var p ShaderParams
	switch typed := params.(type) {
	case nil:
	case ShaderParams:
		p = typed
	case *ShaderParams:
		p = *typed
	default:
		return nil, paramsError("shader", params)
	}
	base := strings.TrimSuffix(strings.TrimSuffix(path, ".vert"), ".frag")
	src, err := LoadShaderSource(base, p.Target)
	if err != nil {
		return nil, fmt.Errorf("shader '%s': %w", base, err)
	}
	return &Resource{
		Name:     src.Name,
		FullPath: base,
		DataSize: uint64(len(src.Vertex) + len(src.Fragment)),
		Data:     src,
	}, nil
}

func (sl *ShaderLoader) Unload(r *Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}
