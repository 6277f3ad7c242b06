//go:build tools

// Package tools pins the linters run over shim and shimgen.
package tools

import _ "github.com/golangci/golangci-lint/cmd/golangci-lint"
