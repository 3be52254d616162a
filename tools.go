//go:build tools
// +build tools

// Package tools declares tool dependencies for this module.
//
// mockgen is only invoked through `go generate`; importing it here keeps it
// pinned in go.mod so the mocks/ directory can be regenerated on a fresh checkout.
package chat_relay

import (
	_ "go.uber.org/mock/mockgen"
)
