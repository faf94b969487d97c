package services

import "errors"

// ErrStudentNotFound is returned when an id does not resolve to a user with
// the student role. The message is shown to API clients as is.
var ErrStudentNotFound = errors.New("Student not found")

// ErrConsistency is returned when a write affects no rows even though the
// student was found just before it.
var ErrConsistency = errors.New("student record changed concurrently")

// ErrExportUnavailable is returned when no object storage is configured.
var ErrExportUnavailable = errors.New("roster export storage is not configured")

// ErrExportNotFound is returned when an export id has no stored workbook.
var ErrExportNotFound = errors.New("roster export not found")
