package directory

import "context"

type StoreAPI interface {
	ListStaff(ctx context.Context, status string, limit, offset int) ([]Staff, error)
	GetStaff(ctx context.Context, staffID string) (Staff, error)
	CreateStaff(ctx context.Context, member Staff) (string, error)
	UpdateStaff(ctx context.Context, staffID string, member Staff) error
	SetStaffStatus(ctx context.Context, staffID, status string) error
	AssignSupervisor(ctx context.Context, staffID, supervisorID string) error
	ListActiveStaff(ctx context.Context) ([]Staff, error)
	ListActiveStaffWithoutSupervisor(ctx context.Context) ([]Staff, error)
}
