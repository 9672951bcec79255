package traininghandler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tms/internal/domain/audit"
	"tms/internal/domain/auth"
	"tms/internal/domain/directory"
	"tms/internal/domain/notifications"
	"tms/internal/domain/training"
	"tms/internal/transport/http/api"
	"tms/internal/transport/http/middleware"
	"tms/internal/transport/http/shared"
)

type Handler struct {
	Service *training.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
}

func NewHandler(service *training.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/training", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermTrainingRead, h.Perms)).Get("/programs", h.handleListPrograms)
		r.With(middleware.RequirePermission(auth.PermTrainingWrite, h.Perms)).Post("/programs", h.handleCreateProgram)
		r.With(middleware.RequirePermission(auth.PermTrainingRead, h.Perms)).Get("/programs/{programID}", h.handleGetProgram)
		r.With(middleware.RequirePermission(auth.PermTrainingRead, h.Perms)).Post("/programs/{programID}/enroll", h.handleEnroll)
		r.With(middleware.RequirePermission(auth.PermTrainingWrite, h.Perms)).Get("/programs/{programID}/enrollments", h.handleListEnrollments)
		r.With(middleware.RequirePermission(auth.PermTrainingWrite, h.Perms)).Put("/programs/{programID}/attendance", h.handleAttendance)
		r.With(middleware.RequirePermission(auth.PermTrainingWrite, h.Perms)).Post("/programs/{programID}/certificates", h.handleIssueCertificate)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/reports/export", h.handleExportReport)
		r.With(middleware.RequirePermission(auth.PermTrainingRead, h.Perms)).Get("/certificates/mine", h.handleMyCertificates)
		r.With(middleware.RequirePermission(auth.PermTrainingRead, h.Perms)).Get("/certificates/{certificateID}", h.handleGetCertificate)
		r.With(middleware.RequirePermission(auth.PermTrainingRead, h.Perms)).Get("/certificates/{certificateID}/pdf", h.handleCertificatePDF)
	})
}

func (h *Handler) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 50, 200)
	programs, err := h.Service.ListPrograms(r.Context(), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "program_list_failed", "failed to list programs", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, programs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateProgram(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Venue       string `json:"venue"`
		StartDate   string `json:"startDate"`
		EndDate     string `json:"endDate"`
		Capacity    int    `json:"capacity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("title", payload.Title, "title is required")
	startDate, startOK := v.Date("startDate", payload.StartDate)
	endDate, endOK := v.Date("endDate", payload.EndDate)
	if startOK && endOK {
		v.DateOrder("startDate", startDate, "endDate", endDate)
	}
	if payload.Capacity < 0 {
		v.Add("capacity", "must be zero or positive")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	program, err := h.Service.CreateProgram(r.Context(), training.Program{
		Title:       payload.Title,
		Description: payload.Description,
		Venue:       payload.Venue,
		StartDate:   startDate,
		EndDate:     endDate,
		Capacity:    payload.Capacity,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "program_create_failed", "failed to create program", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "training.program.create", "training_program", program.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]string{"title": program.Title}); err != nil {
		slog.Warn("audit training.program.create failed", "err", err)
	}
	api.Created(w, program, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	program, err := h.Service.GetProgram(r.Context(), chi.URLParam(r, "programID"))
	if err != nil {
		h.failFromError(w, r, err, "failed to load program")
		return
	}
	api.Success(w, program, middleware.GetRequestID(r.Context()))
}

// handleEnroll seats the caller's own staff profile unless a writer enrolls
// someone else explicitly.
func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		StaffID string `json:"staffId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.StaffID == "" {
		payload.StaffID = user.StaffID
	}
	if payload.StaffID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "staff id required", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.StaffID != user.StaffID {
		allowed, err := h.Perms.HasPermission(r.Context(), user.RoleID, auth.PermTrainingWrite)
		if err != nil || !allowed {
			api.Fail(w, http.StatusForbidden, "forbidden", "cannot enroll other staff", middleware.GetRequestID(r.Context()))
			return
		}
	}

	enrollment, err := h.Service.Enroll(r.Context(), chi.URLParam(r, "programID"), payload.StaffID)
	if err != nil {
		h.failFromError(w, r, err, "failed to enroll")
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "training.enrollment.create", "training_enrollment", enrollment.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]string{"staffId": payload.StaffID}); err != nil {
		slog.Warn("audit training.enrollment.create failed", "err", err)
	}
	api.Created(w, enrollment, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	enrollments, err := h.Service.ListEnrollments(r.Context(), chi.URLParam(r, "programID"))
	if err != nil {
		h.failFromError(w, r, err, "failed to list enrollments")
		return
	}
	api.Success(w, enrollments, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAttendance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		StaffID  string `json:"staffId"`
		Attended bool   `json:"attended"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.StaffID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "staff id required", middleware.GetRequestID(r.Context()))
		return
	}

	programID := chi.URLParam(r, "programID")
	if err := h.Service.MarkAttendance(r.Context(), programID, payload.StaffID, payload.Attended); err != nil {
		h.failFromError(w, r, err, "failed to record attendance")
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "training.attendance.mark", "training_enrollment", programID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]any{"staffId": payload.StaffID, "attended": payload.Attended}); err != nil {
		slog.Warn("audit training.attendance.mark failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "recorded"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleIssueCertificate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		StaffID string `json:"staffId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.StaffID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "staff id required", middleware.GetRequestID(r.Context()))
		return
	}

	cert, err := h.Service.IssueCertificate(r.Context(), chi.URLParam(r, "programID"), payload.StaffID)
	if err != nil {
		h.failFromError(w, r, err, "failed to issue certificate")
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "training.certificate.issue", "certificate", cert.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]string{"serialNo": cert.SerialNo}); err != nil {
		slog.Warn("audit training.certificate.issue failed", "err", err)
	}
	if h.Notify != nil {
		if err := h.Notify.NotifyStaff(r.Context(), cert.StaffID, notifications.TypeCertificateIssued,
			"Certificate issued",
			"A training certificate has been issued to you."); err != nil {
			slog.Warn("certificate issued notification failed", "err", err)
		}
	}
	api.Created(w, cert, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExportReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.EnrollmentReport(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_export_failed", "failed to export enrollment report", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=training-enrollments.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"program_id", "program_title", "staff_no", "staff_name", "status", "enrolled_at"}); err != nil {
		slog.Warn("report export header failed", "err", err)
	}
	for _, row := range report {
		if err := writer.Write([]string{row.ProgramID, row.ProgramTitle, row.StaffNo, row.StaffName, row.Status, row.EnrolledAt.Format(time.RFC3339)}); err != nil {
			slog.Warn("report export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("report export flush failed", "err", err)
	}
}

func (h *Handler) handleMyCertificates(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user.StaffID == "" {
		api.Fail(w, http.StatusForbidden, "forbidden", "a staff profile is required", middleware.GetRequestID(r.Context()))
		return
	}
	certs, err := h.Service.ListCertificatesForStaff(r.Context(), user.StaffID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "certificate_list_failed", "failed to list certificates", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, certs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	cert, err := h.Service.GetCertificate(r.Context(), chi.URLParam(r, "certificateID"))
	if err != nil {
		h.failFromError(w, r, err, "failed to load certificate")
		return
	}
	if !h.canSeeCertificate(r, user.RoleID, user.StaffID, cert.StaffID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, cert, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCertificatePDF(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	certificateID := chi.URLParam(r, "certificateID")
	cert, err := h.Service.GetCertificate(r.Context(), certificateID)
	if err != nil {
		h.failFromError(w, r, err, "failed to load certificate")
		return
	}
	if !h.canSeeCertificate(r, user.RoleID, user.StaffID, cert.StaffID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	pdfBytes, err := h.Service.CertificatePDF(r.Context(), certificateID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "certificate_pdf_failed", "failed to render certificate", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=certificate-%s.pdf", cert.SerialNo))
	if _, err := w.Write(pdfBytes); err != nil {
		slog.Warn("certificate pdf write failed", "err", err)
	}
}

func (h *Handler) canSeeCertificate(r *http.Request, roleID, viewerStaffID, ownerStaffID string) bool {
	if viewerStaffID != "" && viewerStaffID == ownerStaffID {
		return true
	}
	allowed, err := h.Perms.HasPermission(r.Context(), roleID, auth.PermTrainingWrite)
	if err != nil {
		return false
	}
	return allowed
}

func (h *Handler) failFromError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, training.ErrProgramNotFound),
		errors.Is(err, training.ErrEnrollmentNotFound),
		errors.Is(err, training.ErrCertificateNotFound),
		errors.Is(err, directory.ErrStaffNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, training.ErrProgramFull):
		api.Fail(w, http.StatusConflict, "program_full", err.Error(), requestID)
	case errors.Is(err, training.ErrAlreadyEnrolled):
		api.Fail(w, http.StatusConflict, "already_enrolled", err.Error(), requestID)
	case errors.Is(err, training.ErrNotAttended):
		api.Fail(w, http.StatusConflict, "not_attended", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "internal_error", fallback, requestID)
	}
}
