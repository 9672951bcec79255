package directory

import "context"

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) ListStaff(ctx context.Context, status string, limit, offset int) ([]Staff, error) {
	return s.store.ListStaff(ctx, status, limit, offset)
}

func (s *Service) GetStaff(ctx context.Context, staffID string) (Staff, error) {
	return s.store.GetStaff(ctx, staffID)
}

func (s *Service) CreateStaff(ctx context.Context, member Staff) (string, error) {
	if member.Status == "" {
		member.Status = StaffStatusActive
	}
	return s.store.CreateStaff(ctx, member)
}

func (s *Service) UpdateStaff(ctx context.Context, staffID string, member Staff) error {
	return s.store.UpdateStaff(ctx, staffID, member)
}

func (s *Service) SetStaffStatus(ctx context.Context, staffID, status string) error {
	return s.store.SetStaffStatus(ctx, staffID, status)
}

// AssignSupervisor points a staff member at a new supervisor. Evaluation records
// opened before this call keep their snapshot supervisor.
func (s *Service) AssignSupervisor(ctx context.Context, staffID, supervisorID string) error {
	if staffID == supervisorID {
		return ErrSelfSupervision
	}
	if _, err := s.store.GetStaff(ctx, staffID); err != nil {
		return err
	}
	return s.store.AssignSupervisor(ctx, staffID, supervisorID)
}

func (s *Service) ListActiveStaff(ctx context.Context) ([]Staff, error) {
	return s.store.ListActiveStaff(ctx)
}

func (s *Service) ListActiveStaffWithoutSupervisor(ctx context.Context) ([]Staff, error) {
	return s.store.ListActiveStaffWithoutSupervisor(ctx)
}
