package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tms/internal/platform/crypto"
	"tms/internal/platform/db"
)

type Store struct {
	DB     db.Querier
	Crypto *crypto.Service
}

func NewStore(pool db.Querier, cryptoSvc *crypto.Service) *Store {
	return &Store{DB: pool, Crypto: cryptoSvc}
}

const staffColumns = `id, staff_no, name, email, position, department, COALESCE(supervisor_id::text, ''), status, created_at`

func (s *Store) ListStaff(ctx context.Context, status string, limit, offset int) ([]Staff, error) {
	query := "SELECT " + staffColumns + " FROM staff"
	args := []any{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY name"
	if limit > 0 {
		args = append(args, limit, offset)
		query += placeholderPair(len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStaffRows(rows)
}

func placeholderPair(argCount int) string {
	if argCount == 3 {
		return " LIMIT $2 OFFSET $3"
	}
	return " LIMIT $1 OFFSET $2"
}

func (s *Store) GetStaff(ctx context.Context, staffID string) (Staff, error) {
	var member Staff
	var nationalIDEnc []byte
	err := s.DB.QueryRow(ctx, `
    SELECT `+staffColumns+`, national_id_enc
    FROM staff
    WHERE id = $1
  `, staffID).Scan(&member.ID, &member.StaffNo, &member.Name, &member.Email, &member.Position,
		&member.Department, &member.SupervisorID, &member.Status, &member.CreatedAt, &nationalIDEnc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Staff{}, ErrStaffNotFound
		}
		return Staff{}, err
	}
	if s.Crypto != nil {
		if plain, decErr := s.Crypto.DecryptString(nationalIDEnc); decErr == nil {
			member.NationalID = plain
		}
	}
	return member, nil
}

func (s *Store) CreateStaff(ctx context.Context, member Staff) (string, error) {
	var nationalIDEnc []byte
	if s.Crypto != nil && member.NationalID != "" {
		enc, err := s.Crypto.EncryptString(member.NationalID)
		if err != nil {
			return "", err
		}
		nationalIDEnc = enc
	}

	var supervisor any
	if member.SupervisorID != "" {
		supervisor = member.SupervisorID
	}

	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO staff (staff_no, name, email, position, department, supervisor_id, status, national_id_enc)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, member.StaffNo, member.Name, member.Email, member.Position, member.Department,
		supervisor, member.Status, nationalIDEnc).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateStaffNo
		}
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateStaff(ctx context.Context, staffID string, member Staff) error {
	var nationalIDEnc []byte
	if s.Crypto != nil && member.NationalID != "" {
		enc, err := s.Crypto.EncryptString(member.NationalID)
		if err != nil {
			return err
		}
		nationalIDEnc = enc
	}

	tag, err := s.DB.Exec(ctx, `
    UPDATE staff
    SET name = $1, email = $2, position = $3, department = $4, national_id_enc = $5
    WHERE id = $6
  `, member.Name, member.Email, member.Position, member.Department, nationalIDEnc, staffID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaffNotFound
	}
	return nil
}

func (s *Store) SetStaffStatus(ctx context.Context, staffID, status string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE staff SET status = $1 WHERE id = $2", status, staffID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaffNotFound
	}
	return nil
}

func (s *Store) AssignSupervisor(ctx context.Context, staffID, supervisorID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE staff
    SET supervisor_id = $1
    WHERE id = $2 AND EXISTS (
      SELECT 1 FROM staff sup WHERE sup.id = $1 AND sup.status = $3
    )
  `, supervisorID, staffID, StaffStatusActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSupervisorNotFound
	}
	return nil
}

func (s *Store) ListActiveStaff(ctx context.Context) ([]Staff, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+staffColumns+`
    FROM staff
    WHERE status = $1
    ORDER BY name
  `, StaffStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStaffRows(rows)
}

// ListActiveStaffWithoutSupervisor is the single query behind both the dashboard
// signal and the cycle-open guard.
func (s *Store) ListActiveStaffWithoutSupervisor(ctx context.Context) ([]Staff, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+staffColumns+`
    FROM staff
    WHERE status = $1 AND supervisor_id IS NULL
    ORDER BY name
  `, StaffStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStaffRows(rows)
}

func scanStaffRows(rows pgx.Rows) ([]Staff, error) {
	var out []Staff
	for rows.Next() {
		var member Staff
		if err := rows.Scan(&member.ID, &member.StaffNo, &member.Name, &member.Email,
			&member.Position, &member.Department, &member.SupervisorID, &member.Status, &member.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, member)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
