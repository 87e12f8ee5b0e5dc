// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML or YAML settings under ~/.repochat
//   - PromptStore: editable answer prompt templates
package file
