// Package repository holds the SQL access for the quote store.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.  Handlers translate
// it into a "No quote found" message rather than an error status.
var ErrNotFound = errors.New("not found")
