package layered

// TransparencyType classifies the alpha content of a layer channel or a
// process result.
type TransparencyType int32

const (
	TransparencyUnknown TransparencyType = iota
	Opaque
	OnlyFullTransparencies
	HasTransparencies
	FullyTransparent
)

func (t TransparencyType) String() string {
	switch t {
	case Opaque:
		return "opaque"
	case OnlyFullTransparencies:
		return "only-full-transparencies"
	case HasTransparencies:
		return "has-transparencies"
	case FullyTransparent:
		return "fully-transparent"
	default:
		return "unknown"
	}
}

// AddOpacity merges tt with a constant-opacity contribution such as a
// border or undefined colour.
func AddOpacity(tt TransparencyType, opacity float32) TransparencyType {
	switch {
	case tt == TransparencyUnknown:
		return tt
	case opacity <= 0:
		if tt == Opaque {
			return OnlyFullTransparencies
		}
		return tt
	case opacity >= 1:
		if tt == FullyTransparent {
			return OnlyFullTransparencies
		}
		return tt
	default:
		return HasTransparencies
	}
}

// MultiplyOpacity applies a global opacity factor to tt.
func MultiplyOpacity(tt TransparencyType, opacity float32) TransparencyType {
	switch {
	case tt == TransparencyUnknown:
		return tt
	case opacity <= 0:
		return FullyTransparent
	case opacity >= 1:
		return tt
	case tt == FullyTransparent:
		return tt
	default:
		return HasTransparencies
	}
}
