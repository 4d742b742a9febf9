package detour

import (
	"errors"
	"fmt"
	"strings"
)

type DtStatus uint32

const (
	// High level status.
	DT_FAILURE     DtStatus = 1 << 31 // Operation failed.
	DT_SUCCESS     DtStatus = 1 << 30 // Operation succeed.
	DT_IN_PROGRESS DtStatus = 1 << 29 // Operation still in progress.

	// Detail information for status.
	DT_STATUS_DETAIL_MASK DtStatus = 0x0ffffff
	DT_WRONG_MAGIC        DtStatus = 1 << 0 // Input data is not recognized.
	DT_WRONG_VERSION      DtStatus = 1 << 1 // Input data is in wrong version.
	DT_OUT_OF_MEMORY      DtStatus = 1 << 2 // Operation ran out of memory.
	DT_INVALID_PARAM      DtStatus = 1 << 3 // An input parameter was invalid.
	DT_BUFFER_TOO_SMALL   DtStatus = 1 << 4 // Result buffer for the query was too small to store all results.
	DT_OUT_OF_NODES       DtStatus = 1 << 5 // Query ran out of nodes during search.
	DT_PARTIAL_RESULT     DtStatus = 1 << 6 // Query did not reach the end location, returning best guess.
	DT_ALREADY_OCCUPIED   DtStatus = 1 << 7 // A tile has already been assigned to the given x,y coordinate
)

// Returns true of status is success.
func (status DtStatus) DtStatusSucceed() bool {
	return (status & DT_SUCCESS) != 0
}

// Returns true of status is failure.
func (status DtStatus) DtStatusFailed() bool {
	return (status & DT_FAILURE) != 0
}

// Returns true of status is in progress.
func (status DtStatus) DtStatusInProgress() bool {
	return (status & DT_IN_PROGRESS) != 0
}

// Returns true if specific detail is set.
func (status DtStatus) DtStatusDetail(detail DtStatus) bool {
	return (status & detail) != 0
}

var detailNames = []struct {
	bit  DtStatus
	name string
}{
	{DT_WRONG_MAGIC, "wrong magic"},
	{DT_WRONG_VERSION, "wrong version"},
	{DT_OUT_OF_MEMORY, "out of memory"},
	{DT_INVALID_PARAM, "invalid param"},
	{DT_BUFFER_TOO_SMALL, "buffer too small"},
	{DT_OUT_OF_NODES, "out of nodes"},
	{DT_PARTIAL_RESULT, "partial result"},
	{DT_ALREADY_OCCUPIED, "already occupied"},
}

func (status DtStatus) String() string {
	var parts []string
	switch {
	case status.DtStatusFailed():
		parts = append(parts, "failure")
	case status.DtStatusSucceed():
		parts = append(parts, "success")
	case status.DtStatusInProgress():
		parts = append(parts, "in progress")
	}
	for _, d := range detailNames {
		if status.DtStatusDetail(d.bit) {
			parts = append(parts, d.name)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("status(%#x)", uint32(status))
	}
	return strings.Join(parts, "|")
}

var (
	ErrFailure         = &StatusError{Status: DT_FAILURE}
	ErrWrongMagic      = &StatusError{Status: DT_FAILURE | DT_WRONG_MAGIC}
	ErrWrongVersion    = &StatusError{Status: DT_FAILURE | DT_WRONG_VERSION}
	ErrOutOfMemory     = &StatusError{Status: DT_FAILURE | DT_OUT_OF_MEMORY}
	ErrInvalidParam    = &StatusError{Status: DT_FAILURE | DT_INVALID_PARAM}
	ErrBufferTooSmall  = &StatusError{Status: DT_FAILURE | DT_BUFFER_TOO_SMALL}
	ErrAlreadyOccupied = &StatusError{Status: DT_FAILURE | DT_ALREADY_OCCUPIED}
)

// StatusError wraps a failed DtStatus as an error.
type StatusError struct {
	Status DtStatus
}

func (e *StatusError) Error() string {
	return "detour: " + e.Status.String()
}

// Is matches a target StatusError whose detail bits are all present in e.
func (e *StatusError) Is(target error) bool {
	var t *StatusError
	if !errors.As(target, &t) {
		return false
	}
	detail := t.Status & DT_STATUS_DETAIL_MASK
	if detail == 0 {
		return e.Status.DtStatusFailed() && t.Status.DtStatusFailed()
	}
	return e.Status&detail == detail
}

// Err returns nil unless the status carries DT_FAILURE.
func (status DtStatus) Err() error {
	if !status.DtStatusFailed() {
		return nil
	}
	return &StatusError{Status: status}
}
