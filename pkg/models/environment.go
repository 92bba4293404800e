package models

import "strings"

// Environment describes one external environment as listed by the gateway
type Environment struct {
	// Alias is the opaque reference used in every gateway call. It may
	// contain spaces and is compared by exact string equality.
	Alias       string `json:"alias"`
	DisplayName string `json:"display_name,omitempty"`
	ID          string `json:"id,omitempty"`
	Username    string `json:"username,omitempty"`
	IsDefault   bool   `json:"is_default,omitempty"`
}

// Descriptor is the opaque environment descriptor returned by validation
type Descriptor struct {
	Alias       string            `json:"alias"`
	ID          string            `json:"id,omitempty"`
	InstanceURL string            `json:"instance_url,omitempty"`
	Username    string            `json:"username,omitempty"`
	Status      string            `json:"status,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// EnvironmentPair identifies the two environments under comparison
type EnvironmentPair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Validate checks that both aliases are set and distinct
func (p EnvironmentPair) Validate() error {
	if strings.TrimSpace(p.A) == "" {
		return &ValidationError{Field: "A", Message: "environment A alias is required"}
	}
	if strings.TrimSpace(p.B) == "" {
		return &ValidationError{Field: "B", Message: "environment B alias is required"}
	}
	if p.A == p.B {
		return &ValidationError{Field: "B", Message: "environments A and B must differ"}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
