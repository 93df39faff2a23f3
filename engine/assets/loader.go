package assets

import "github.com/spaghettifunk/ember/engine/assets/loaders"

type Loader interface {
	// params lets each loader take its own options, e.g. loaders.ImageParams
	Load(path string, params interface{}) (*loaders.Resource, error)
	Unload(*loaders.Resource) error
}

type AssetType uint8

const (
	AssetTypeNone AssetType = iota
	AssetTypeBinary
	AssetTypeShader
	AssetTypeImage
	AssetTypeModel
	AssetTypeSound
	AssetTypeBitmapFont
	AssetTypeSystemFont
)

func (t AssetType) String() string {
	switch t {
	case AssetTypeBinary:
		return "binary"
	case AssetTypeShader:
		return "shader"
	case AssetTypeImage:
		return "image"
	case AssetTypeModel:
		return "model"
	case AssetTypeSound:
		return "sound"
	case AssetTypeBitmapFont:
		return "bitmap font"
	case AssetTypeSystemFont:
		return "system font"
	default:
		return "none"
	}
}
