package domain

import "fmt"

// InputKind is the closed set of workflow input types. The kind decides how a
// raw value is prepared for submission: image inputs go through upload
// resolution, every other kind passes through unchanged.
type InputKind string

const (
	InputKindText   InputKind = "text"
	InputKindNumber InputKind = "number"
	InputKindToggle InputKind = "toggle"
	InputKindSelect InputKind = "select"
	InputKindImage  InputKind = "image"
)

// Valid reports whether the kind is a member of the closed set.
func (k InputKind) Valid() bool {
	switch k {
	case InputKindText, InputKindNumber, InputKindToggle, InputKindSelect, InputKindImage:
		return true
	}
	return false
}

// Input is one workflow input value as provided by the caller, before
// resolution.
type Input struct {
	ID    string    `json:"id"`
	Kind  InputKind `json:"kind"`
	Value string    `json:"value"`
}

// Validate checks the input for submission.
func (in Input) Validate() error {
	if in.ID == "" {
		return fmt.Errorf("input is missing an id")
	}
	if !in.Kind.Valid() {
		return fmt.Errorf("input %q has unknown kind %q", in.ID, in.Kind)
	}
	return nil
}

// RunInput is the wire form of a resolved input sent in a run request. Value
// is either the raw string value or an UploadDescriptor for resolved image
// inputs.
type RunInput struct {
	InputID string `json:"inputId"`
	Value   any    `json:"value"`
}
