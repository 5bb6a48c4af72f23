// Package testutil provides deterministic fixtures shared by package tests:
// record builders for every category and a fixed import-ID generator.
package testutil
