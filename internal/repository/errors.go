// Package repository implements persistence for the bed store.  MySQL
// repositories back the running service; memory repositories with the same
// method sets back tests and local runs without a database.
//
// Sentinel errors let handlers distinguish failure scenarios without
// inspecting driver errors.
package repository

import "errors"

// ErrBedNotFound is returned when a bed id matches no record.  Handlers
// translate it into an HTTP 404 response.
var ErrBedNotFound = errors.New("bed not found")

// ErrDuplicateBed is returned when a bed id is already registered in any
// ward.  Handlers translate it into an HTTP 409 response.
var ErrDuplicateBed = errors.New("bed id already exists")

// ErrUnknownWard is returned when a ward id is not part of the fixed ward
// set.  Handlers translate it into an HTTP 400 response.
var ErrUnknownWard = errors.New("unknown ward")
