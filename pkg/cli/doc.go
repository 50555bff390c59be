// Package cli provides shared helpers for the voxauth command-line
// tool.
//
// This package includes:
//   - Styled terminal rendering of verification results (lipgloss)
//   - Output formatting for structured results (JSON, YAML)
//   - Standard filesystem locations under ~/.voxauth/
//   - Small formatting helpers for durations and sizes
package cli
