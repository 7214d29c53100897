//go:build tools
// +build tools

// Package tools tracks the code generators invoked through go generate.
package social_chat

import (
	_ "go.uber.org/mock/mockgen"
)
