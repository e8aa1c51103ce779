package model

// SuiteSpec is the YAML description of a test suite.
//
// Statements refer to earlier results by their ID. Members are addressed as
// "<package>.<Type>.<Member>" for constructors, static methods and static
// fields, and by bare name when a receiver is given with On.
type SuiteSpec struct {
	// Package is the package clause used when the suite is rendered.
	Package string     `yaml:"package"`
	Tests   []TestSpec `yaml:"tests"`
}

// TestSpec is one test case.
type TestSpec struct {
	Name       string          `yaml:"name"`
	Statements []StatementSpec `yaml:"statements"`
}

// StatementSpec describes a single statement. Exactly one of Value, Nil,
// New, Call, Get or Set selects the statement kind.
type StatementSpec struct {
	ID string `yaml:"id,omitempty"`

	// Value declares a primitive (int, string, bool or float64).
	Value any `yaml:"value,omitempty"`
	// Nil declares a nil pointer of the named class.
	Nil string `yaml:"nil,omitempty"`
	// New invokes a constructor.
	New string `yaml:"new,omitempty"`
	// Call invokes a method on On, or a static method when On is empty.
	Call string `yaml:"call,omitempty"`
	// Get reads a field of On, or a static field when On is empty.
	Get string `yaml:"get,omitempty"`
	// Set writes From into a field of On, or a static field when On is empty.
	Set string `yaml:"set,omitempty"`

	On   string   `yaml:"on,omitempty"`
	Args []string `yaml:"args,omitempty"`
	From string   `yaml:"from,omitempty"`

	// Equals adds an equality assertion on the statement's result.
	Equals any `yaml:"equals,omitempty"`
	// IsNil adds a nil assertion on the statement's result.
	IsNil *bool `yaml:"is_nil,omitempty"`
}
