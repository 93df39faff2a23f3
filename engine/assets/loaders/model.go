package loaders

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
)

var (
	ErrMultipleMeshes         = fmt.Errorf("model holds more than one mesh: %w", core.ErrUnsupported)
	ErrUnsupportedModelFormat = fmt.Errorf("unsupported model format: %w", core.ErrUnsupported)
)

/** @brief A single indexed triangle mesh. Normals and UVs are zero when the file has none. */
type MeshData struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	UVs       []math.Vec2
	Indices   []uint32
	Extents   math.Extents3D
}

// VertexStride is the float count of one interleaved vertex: position, normal, uv.
const VertexStride = 8

// Interleaved packs the vertices as position(3) normal(3) uv(2).
func (m *MeshData) Interleaved() []float32 {
	out := make([]float32, 0, len(m.Positions)*VertexStride)
	for i, p := range m.Positions {
		n, uv := m.Normals[i], m.UVs[i]
		out = append(out, p.X, p.Y, p.Z, n.X, n.Y, n.Z, uv.X, uv.Y)
	}
	return out
}

type ModelLoader struct{}

// DecodeModel parses raw model bytes. Only single-mesh Wavefront OBJ is supported.
func DecodeModel(data []byte, ext string) (*MeshData, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "obj":
		return parseOBJ(data)
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedModelFormat, ext)
	}
}

type objVertex struct {
	position, uv, normal int
}

type objParser struct {
	positions []math.Vec3
	uvs       []math.Vec2
	normals   []math.Vec3

	lookup map[objVertex]uint32
	mesh   *MeshData
}

func parseOBJ(data []byte) (*MeshData, error) {
	p := &objParser{
		lookup: make(map[objVertex]uint32),
		mesh:   &MeshData{},
	}
	objects := 0
	facesSinceObject := 0

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		var err error
		switch fields[0] {
		case "v":
			var v math.Vec3
			v, err = parseVec3(fields[1:])
			p.positions = append(p.positions, v)
		case "vn":
			var v math.Vec3
			v, err = parseVec3(fields[1:])
			p.normals = append(p.normals, v)
		case "vt":
			var v math.Vec2
			v, err = parseVec2(fields[1:])
			p.uvs = append(p.uvs, v)
		case "o", "g":
			// a new object only counts once the previous one produced faces
			if objects == 0 || facesSinceObject > 0 {
				objects++
				facesSinceObject = 0
			}
			if objects > 1 {
				return nil, ErrMultipleMeshes
			}
		case "f":
			if objects == 0 {
				objects = 1
			}
			err = p.face(fields[1:])
			facesSinceObject++
		}
		if err != nil {
			return nil, fmt.Errorf("obj line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(p.mesh.Indices) == 0 {
		return nil, fmt.Errorf("obj has no faces: %w", core.ErrUnsupported)
	}
	p.computeExtents()
	return p.mesh, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d components, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

func parseVec3(fields []string) (math.Vec3, error) {
	f, err := parseFloats(fields, 3)
	if err != nil {
		return math.Vec3{}, err
	}
	return math.NewVec3(f[0], f[1], f[2]), nil
}

func parseVec2(fields []string) (math.Vec2, error) {
	f, err := parseFloats(fields, 2)
	if err != nil {
		return math.Vec2{}, err
	}
	return math.NewVec2(f[0], f[1]), nil
}

// resolve turns a 1-based or negative relative OBJ index into a 0-based one.
// Missing components resolve to -1.
func resolve(field string, count int) (int, error) {
	if field == "" {
		return -1, nil
	}
	i, err := strconv.Atoi(field)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0 && i <= count:
		return i - 1, nil
	case i < 0 && -i <= count:
		return count + i, nil
	default:
		return 0, fmt.Errorf("index %d out of range (%d)", i, count)
	}
}

func (p *objParser) vertex(token string) (uint32, error) {
	parts := strings.Split(token, "/")
	var key objVertex
	var err error
	if key.position, err = resolve(parts[0], len(p.positions)); err != nil {
		return 0, err
	}
	if key.position < 0 {
		return 0, fmt.Errorf("face vertex '%s' has no position", token)
	}
	key.uv, key.normal = -1, -1
	if len(parts) > 1 {
		if key.uv, err = resolve(parts[1], len(p.uvs)); err != nil {
			return 0, err
		}
	}
	if len(parts) > 2 {
		if key.normal, err = resolve(parts[2], len(p.normals)); err != nil {
			return 0, err
		}
	}

	if idx, ok := p.lookup[key]; ok {
		return idx, nil
	}
	idx := uint32(len(p.mesh.Positions))
	p.mesh.Positions = append(p.mesh.Positions, p.positions[key.position])
	var uv math.Vec2
	if key.uv >= 0 {
		uv = p.uvs[key.uv]
	}
	var n math.Vec3
	if key.normal >= 0 {
		n = p.normals[key.normal]
	}
	p.mesh.UVs = append(p.mesh.UVs, uv)
	p.mesh.Normals = append(p.mesh.Normals, n)
	p.lookup[key] = idx
	return idx, nil
}

// face triangulates a convex polygon as a fan.
func (p *objParser) face(tokens []string) error {
	if len(tokens) < 3 {
		return fmt.Errorf("face with %d vertices", len(tokens))
	}
	indices := make([]uint32, len(tokens))
	for i, t := range tokens {
		idx, err := p.vertex(t)
		if err != nil {
			return err
		}
		indices[i] = idx
	}
	for i := 1; i+1 < len(indices); i++ {
		p.mesh.Indices = append(p.mesh.Indices, indices[0], indices[i], indices[i+1])
	}
	return nil
}

func (p *objParser) computeExtents() {
	ext := math.Extents3D{Min: p.mesh.Positions[0], Max: p.mesh.Positions[0]}
	for _, v := range p.mesh.Positions[1:] {
		ext.Min = ext.Min.Min(v)
		ext.Max = ext.Max.Max(v)
	}
	p.mesh.Extents = ext
}

func (ml *ModelLoader) Load(path string, params interface{}) (*Resource, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	mesh, err := DecodeModel(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("model '%s': %w", path, err)
	}
	return &Resource{
		Name:     resourceName(path),
		FullPath: path,
		DataSize: uint64(len(mesh.Positions) * VertexStride * 4),
		Data:     mesh,
	}, nil
}

func (ml *ModelLoader) Unload(r *Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}
