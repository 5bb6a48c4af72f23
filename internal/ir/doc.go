// Package ir provides the record types shared by every builtingen package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Record identity is the declaration-order ID, never the name
//   - Optional string fields use "" for absent
//   - All JSON tags use snake_case
//   - Snapshots are immutable once loaded
package ir
