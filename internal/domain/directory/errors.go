package directory

import "errors"

var (
	ErrStaffNotFound      = errors.New("staff member not found")
	ErrDuplicateStaffNo   = errors.New("staff number already in use")
	ErrSupervisorNotFound = errors.New("supervisor not found or inactive")
	ErrSelfSupervision    = errors.New("staff member cannot supervise themselves")
)
