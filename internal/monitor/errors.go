package monitor

import "errors"

var (
	// ErrNotFound marks an unknown flowmeter serial number or warning id.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied marks an acknowledge attempt by a user that does
	// not own the warning.
	ErrPermissionDenied = errors.New("permission denied")
)
