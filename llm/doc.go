// Package llm defines the generation-backend boundary consumed by workers.
//
// The engine never talks to a concrete model directly: it sends a message
// sequence to a Provider and awaits a single text response. Backends that
// support per-role fine-tuned adapters additionally implement AdapterManager,
// which the worker pool drives on a best-effort basis before each spawn.
package llm
