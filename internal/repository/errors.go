// Package repository contains data access logic separated from HTTP
// handlers. Sentinel errors defined here let handlers distinguish failure
// scenarios without inspecting driver errors.
package repository

import "errors"

// ErrCountryNotFound is returned when no country matches the requested name.
// Handlers translate it into an HTTP 404 response.
var ErrCountryNotFound = errors.New("country not found")
