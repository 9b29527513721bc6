package mesh

import "strings"

// Tag names a boundary of the domain, or the embedded solid
type Tag uint8

const (
	Left Tag = iota
	Right
	Bottom
	Top
	Back
	Front
	Embed
)

// FaceTag maps a face index (2*axis + side) onto the domain boundary it lies on
func FaceTag(face int) Tag { return Tag(face) }

// Axis is the coordinate direction normal to a domain boundary
func (t Tag) Axis() int { return int(t) / 2 }

// Side is 0 for the low boundary of an axis and 1 for the high one
func (t Tag) Side() int { return int(t) % 2 }

func (t Tag) String() string {
	switch t {
	case Left:
		return "left"
	case Right:
		return "right"
	case Bottom:
		return "bottom"
	case Top:
		return "top"
	case Back:
		return "back"
	case Front:
		return "front"
	case Embed:
		return "embed"
	}
	return "unknown"
}

// TagNameMap maps boundary names and their common aliases to a Tag.
// Keys are lowercase.
var TagNameMap = map[string]Tag{
	"left":    Left,
	"inlet":   Left,
	"inflow":  Left,
	"right":   Right,
	"outlet":  Right,
	"outflow": Right,
	"exit":    Right,
	"bottom":  Bottom,
	"floor":   Bottom,
	"top":     Top,
	"back":    Back,
	"front":   Front,
	"embed":   Embed,
	"wall":    Embed,
	"solid":   Embed,
}

// ParseTag converts a boundary name to a Tag, case-insensitively
func ParseTag(name string) (t Tag, ok bool) {
	t, ok = TagNameMap[strings.ToLower(strings.TrimSpace(name))]
	return
}
