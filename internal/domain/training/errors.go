package training

import "errors"

var (
	ErrProgramNotFound     = errors.New("training program not found")
	ErrProgramFull         = errors.New("training program is at capacity")
	ErrAlreadyEnrolled     = errors.New("staff member is already enrolled")
	ErrEnrollmentNotFound  = errors.New("enrollment not found")
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrNotAttended         = errors.New("certificates require attended status")
)
