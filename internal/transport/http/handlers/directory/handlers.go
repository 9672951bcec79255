package directoryhandler

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tms/internal/domain/audit"
	"tms/internal/domain/auth"
	"tms/internal/domain/directory"
	"tms/internal/transport/http/api"
	"tms/internal/transport/http/middleware"
	"tms/internal/transport/http/shared"
)

type Handler struct {
	Service *directory.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *directory.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/staff", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermDirectoryRead, h.Perms)).Get("/", h.handleListStaff)
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite, h.Perms)).Post("/", h.handleCreateStaff)
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite, h.Perms)).Post("/import", h.handleImportStaff)
		r.With(middleware.RequirePermission(auth.PermDirectoryRead, h.Perms)).Get("/without-supervisor", h.handleWithoutSupervisor)
		r.With(middleware.RequirePermission(auth.PermDirectoryRead, h.Perms)).Get("/{staffID}", h.handleGetStaff)
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite, h.Perms)).Put("/{staffID}", h.handleUpdateStaff)
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite, h.Perms)).Put("/{staffID}/status", h.handleSetStatus)
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite, h.Perms)).Put("/{staffID}/supervisor", h.handleAssignSupervisor)
	})
}

type staffPayload struct {
	StaffNo      string `json:"staffNo"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Position     string `json:"position"`
	Department   string `json:"department"`
	SupervisorID string `json:"supervisorId"`
	Status       string `json:"status"`
	NationalID   string `json:"nationalId"`
}

func (h *Handler) handleListStaff(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 50, 200)
	status := strings.TrimSpace(r.URL.Query().Get("status"))

	v := shared.NewValidator()
	v.Enum("status", status, []string{directory.StaffStatusActive, directory.StaffStatusInactive}, "must be active or inactive")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	staff, err := h.Service.ListStaff(r.Context(), status, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "staff_list_failed", "failed to list staff", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, staff, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload staffPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("staffNo", payload.StaffNo, "staff number is required")
	v.Required("name", payload.Name, "name is required")
	v.Enum("status", payload.Status, []string{directory.StaffStatusActive, directory.StaffStatusInactive}, "must be active or inactive")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.CreateStaff(r.Context(), directory.Staff{
		StaffNo:      payload.StaffNo,
		Name:         payload.Name,
		Email:        payload.Email,
		Position:     payload.Position,
		Department:   payload.Department,
		SupervisorID: payload.SupervisorID,
		Status:       payload.Status,
		NationalID:   payload.NationalID,
	})
	if err != nil {
		if errors.Is(err, directory.ErrDuplicateStaffNo) {
			api.Fail(w, http.StatusConflict, "duplicate_staff_no", "staff number already exists", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "staff_create_failed", "failed to create staff member", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "directory.staff.create", "staff", id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]string{"staffNo": payload.StaffNo}); err != nil {
		slog.Warn("audit directory.staff.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

// handleImportStaff bulk-loads staff from a CSV body with a header row. Rows
// that fail keep the import going; the response reports both counts.
func (h *Handler) handleImportStaff(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "failed to read request body", middleware.GetRequestID(r.Context()))
		return
	}

	reader := csv.NewReader(bytes.NewReader(body))
	headers, err := reader.Read()
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid csv payload", middleware.GetRequestID(r.Context()))
		return
	}

	index := map[string]int{}
	for i, header := range headers {
		index[strings.ToLower(strings.TrimSpace(header))] = i
	}
	get := func(row []string, key string) string {
		if idx, ok := index[key]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	inserted := 0
	skipped := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid csv payload", middleware.GetRequestID(r.Context()))
			return
		}

		member := directory.Staff{
			StaffNo:    get(row, "staff_no"),
			Name:       get(row, "name"),
			Email:      get(row, "email"),
			Position:   get(row, "position"),
			Department: get(row, "department"),
			NationalID: get(row, "national_id"),
		}
		if member.StaffNo == "" || member.Name == "" {
			skipped++
			continue
		}
		if _, err := h.Service.CreateStaff(r.Context(), member); err != nil {
			slog.Warn("staff import row failed", "staffNo", member.StaffNo, "err", err)
			skipped++
			continue
		}
		inserted++
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "directory.staff.import", "staff", "", middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]int{"inserted": inserted, "skipped": skipped}); err != nil {
		slog.Warn("audit directory.staff.import failed", "err", err)
	}
	api.Success(w, map[string]int{"inserted": inserted, "skipped": skipped}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleWithoutSupervisor(w http.ResponseWriter, r *http.Request) {
	staff, err := h.Service.ListActiveStaffWithoutSupervisor(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "staff_list_failed", "failed to list staff", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, staff, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetStaff(w http.ResponseWriter, r *http.Request) {
	member, err := h.Service.GetStaff(r.Context(), chi.URLParam(r, "staffID"))
	if err != nil {
		if errors.Is(err, directory.ErrStaffNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "staff member not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "staff_get_failed", "failed to load staff member", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, member, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateStaff(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	staffID := chi.URLParam(r, "staffID")
	current, err := h.Service.GetStaff(r.Context(), staffID)
	if err != nil {
		if errors.Is(err, directory.ErrStaffNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "staff member not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "staff_get_failed", "failed to load staff member", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Name       *string `json:"name"`
		Email      *string `json:"email"`
		Position   *string `json:"position"`
		Department *string `json:"department"`
		NationalID *string `json:"nationalId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Name != nil {
		current.Name = *payload.Name
	}
	if payload.Email != nil {
		current.Email = *payload.Email
	}
	if payload.Position != nil {
		current.Position = *payload.Position
	}
	if payload.Department != nil {
		current.Department = *payload.Department
	}
	if payload.NationalID != nil {
		current.NationalID = *payload.NationalID
	}

	if err := h.Service.UpdateStaff(r.Context(), staffID, current); err != nil {
		api.Fail(w, http.StatusInternalServerError, "staff_update_failed", "failed to update staff member", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "directory.staff.update", "staff", staffID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil); err != nil {
		slog.Warn("audit directory.staff.update failed", "err", err)
	}
	api.Success(w, map[string]string{"id": staffID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	staffID := chi.URLParam(r, "staffID")
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("status", payload.Status, "status is required")
	v.Enum("status", payload.Status, []string{directory.StaffStatusActive, directory.StaffStatusInactive}, "must be active or inactive")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Service.SetStaffStatus(r.Context(), staffID, payload.Status); err != nil {
		if errors.Is(err, directory.ErrStaffNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "staff member not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "staff_status_failed", "failed to update status", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "directory.staff.status", "staff", staffID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]string{"status": payload.Status}); err != nil {
		slog.Warn("audit directory.staff.status failed", "err", err)
	}
	api.Success(w, map[string]string{"id": staffID, "status": payload.Status}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAssignSupervisor(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	staffID := chi.URLParam(r, "staffID")
	var payload struct {
		SupervisorID string `json:"supervisorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if strings.TrimSpace(payload.SupervisorID) == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "supervisor id is required", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.AssignSupervisor(r.Context(), staffID, payload.SupervisorID); err != nil {
		switch {
		case errors.Is(err, directory.ErrSelfSupervision):
			api.Fail(w, http.StatusBadRequest, "self_supervision", "a staff member cannot supervise themselves", middleware.GetRequestID(r.Context()))
		case errors.Is(err, directory.ErrStaffNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "staff member not found", middleware.GetRequestID(r.Context()))
		case errors.Is(err, directory.ErrSupervisorNotFound):
			api.Fail(w, http.StatusBadRequest, "supervisor_not_found", "supervisor must be an active staff member", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "supervisor_assign_failed", "failed to assign supervisor", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "directory.staff.assign_supervisor", "staff", staffID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]string{"supervisorId": payload.SupervisorID}); err != nil {
		slog.Warn("audit directory.staff.assign_supervisor failed", "err", err)
	}
	api.Success(w, map[string]string{"id": staffID, "supervisorId": payload.SupervisorID}, middleware.GetRequestID(r.Context()))
}
