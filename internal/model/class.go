package model

// ClassInfo describes a registered class for listing.
type ClassInfo struct {
	Name         string
	Package      string
	Constructors []string
	Methods      []string
	Fields       []string
	// Goals counts coverage goals per criterion once the class is loaded.
	Goals map[string]int
}
