package models

// Reserved tag names. The default tag is attached to expenses created
// without an explicit tag and cannot be removed from an event; the
// money-transfer tag marks settlement records and is hidden from the
// user-selectable tag list.
const (
	DefaultTagName  = "default"
	TransferTagName = "money transfer"
)

// Tag is a named, colored label for expenses.
type Tag struct {
	Name      string `json:"name"`
	ColorCode string `json:"colorCode"` // "#RRGGBB"
}

// DefaultTag returns the reserved fallback tag.
func DefaultTag() Tag {
	return Tag{Name: DefaultTagName, ColorCode: "#808080"}
}

// TransferTag returns the reserved settlement-record tag.
func TransferTag() Tag {
	return Tag{Name: TransferTagName, ColorCode: "#2E86C1"}
}

// Equals compares tags by name and color.
func (t Tag) Equals(other Tag) bool {
	return t.Name == other.Name && t.ColorCode == other.ColorCode
}

// Reserved reports whether the tag name is one of the reserved names.
func (t Tag) Reserved() bool {
	return t.Name == DefaultTagName || t.Name == TransferTagName
}
