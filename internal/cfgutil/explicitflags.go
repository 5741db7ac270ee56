// Copyright (c) 2016-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

// ExplicitString is a config string that remembers whether the flags parser
// assigned it, so a default can be told apart from the same value given on
// the command line or in the config file.
type ExplicitString struct {
	Value         string
	explicitlySet bool
}

// NewExplicitString returns an unset ExplicitString holding defaultValue.
func NewExplicitString(defaultValue string) *ExplicitString {
	return &ExplicitString{Value: defaultValue}
}

// ExplicitlySet reports whether the value came from the parser.
func (e *ExplicitString) ExplicitlySet() bool {
	return e.explicitlySet
}

// String returns the current value.
func (e *ExplicitString) String() string {
	return e.Value
}

// MarshalFlag implements the flags.Marshaler interface.
func (e *ExplicitString) MarshalFlag() (string, error) {
	return e.Value, nil
}

// UnmarshalFlag implements the flags.Unmarshaler interface.
func (e *ExplicitString) UnmarshalFlag(value string) error {
	e.Value = value
	e.explicitlySet = true
	return nil
}
