package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"tms/internal/domain/appraisal"
	"tms/internal/domain/auth"
	"tms/internal/platform/config"
	"tms/internal/platform/db"
)

// TestAppraisalJourney walks the full portal flow against a real database:
// seed admin logs in, builds the roster, opens a cycle, both evaluation
// phases are submitted, and a training certificate is issued and rendered.
// Set TEST_DATABASE_URL to run it.
func TestAppraisalJourney(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	cfg := config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          "journey-test-secret",
		Environment:        "test",
		FrontendDir:        t.TempDir(),
		SeedAdminEmail:     "admin@journey.test",
		SeedAdminPassword:  "journey-admin-pw",
		MaxBodyBytes:       1 << 20,
		RateLimitPerMinute: 10000,
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, "../../../migrations"); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE staff, users, sessions, password_resets,
    evaluation_cycles, evaluation_records, training_programs, training_enrollments,
    certificates, notifications, audit_events, job_runs CASCADE`); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
	if err := db.Seed(ctx, pool, cfg); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	app, err := build(cfg, pool)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	adminToken := login(t, srv, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	// Roster: two staff members supervising each other.
	staffA := createStaff(t, srv, adminToken, "EMP-001", "Aisha Rahman")
	staffB := createStaff(t, srv, adminToken, "EMP-002", "Badrul Hisham")

	// Cycle open is blocked while anyone lacks a supervisor.
	status, body := request(t, srv, http.MethodPost, "/api/v1/appraisal/cycles", adminToken, map[string]any{"year": 2030})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 before supervisors assigned, got %d: %s", status, body)
	}
	if code := errorCode(t, body); code != "missing_supervisors" {
		t.Fatalf("expected missing_supervisors, got %s", code)
	}

	assignSupervisor(t, srv, adminToken, staffA, staffB)
	assignSupervisor(t, srv, adminToken, staffB, staffA)

	status, body = request(t, srv, http.MethodPost, "/api/v1/appraisal/cycles", adminToken, map[string]any{"year": 2030})
	if status != http.StatusCreated {
		t.Fatalf("cycle open failed: %d %s", status, body)
	}
	var cycle struct {
		ID string `json:"id"`
	}
	decodeData(t, body, &cycle)

	// Staff users so both evaluation phases can be exercised.
	tokenA := createStaffLogin(t, ctx, srv, pool, staffA, "aisha@journey.test", auth.RoleStaff)
	tokenB := createStaffLogin(t, ctx, srv, pool, staffB, "badrul@journey.test", auth.RoleSupervisor)

	// Staff A finds their record and submits the self-evaluation.
	status, body = request(t, srv, http.MethodGet, "/api/v1/appraisal/records/mine", tokenA, nil)
	if status != http.StatusOK {
		t.Fatalf("records/mine failed: %d %s", status, body)
	}
	var mine []struct {
		ID string `json:"id"`
	}
	decodeData(t, body, &mine)
	if len(mine) != 1 {
		t.Fatalf("expected 1 record for staff A, got %d", len(mine))
	}
	recordID := mine[0].ID

	answers := map[string]int{}
	for _, q := range appraisal.Questions() {
		answers[q.ID] = 4
	}
	status, body = request(t, srv, http.MethodPost, "/api/v1/appraisal/records/"+recordID+"/self", tokenA, map[string]any{"answers": answers})
	if status != http.StatusOK {
		t.Fatalf("self submission failed: %d %s", status, body)
	}

	// A second self submission is rejected.
	status, body = request(t, srv, http.MethodPost, "/api/v1/appraisal/records/"+recordID+"/self", tokenA, map[string]any{"answers": answers})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 on resubmission, got %d %s", status, body)
	}

	// Supervisor B reviews from their queue.
	status, body = request(t, srv, http.MethodGet, "/api/v1/appraisal/records/review", tokenB, nil)
	if status != http.StatusOK {
		t.Fatalf("review queue failed: %d %s", status, body)
	}
	status, body = request(t, srv, http.MethodPost, "/api/v1/appraisal/records/"+recordID+"/review", tokenB, map[string]any{"answers": answers})
	if status != http.StatusOK {
		t.Fatalf("review submission failed: %d %s", status, body)
	}
	var reviewed struct {
		Status          string `json:"status"`
		SupervisorScore *struct {
			Total int `json:"total"`
		} `json:"supervisorScore"`
	}
	decodeData(t, body, &reviewed)
	if reviewed.Status != string(appraisal.RecordStatusCompleted) {
		t.Fatalf("expected completed record, got %s", reviewed.Status)
	}
	if reviewed.SupervisorScore == nil || reviewed.SupervisorScore.Total != 80 {
		t.Fatalf("unexpected supervisor score: %+v", reviewed.SupervisorScore)
	}

	status, body = request(t, srv, http.MethodGet, "/api/v1/appraisal/cycles/"+cycle.ID+"/progress", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("progress failed: %d %s", status, body)
	}
	var progress struct {
		Total     int `json:"total"`
		Completed int `json:"completed"`
	}
	decodeData(t, body, &progress)
	if progress.Total != 2 || progress.Completed != 1 {
		t.Fatalf("unexpected progress: %+v", progress)
	}

	// Training: program, enrollment, attendance, certificate, PDF.
	status, body = request(t, srv, http.MethodPost, "/api/v1/training/programs", adminToken, map[string]any{
		"title":     "Competency Coaching",
		"venue":     "HQ",
		"startDate": "2030-04-01",
		"endDate":   "2030-04-03",
		"capacity":  10,
	})
	if status != http.StatusCreated {
		t.Fatalf("program create failed: %d %s", status, body)
	}
	var program struct {
		ID string `json:"id"`
	}
	decodeData(t, body, &program)

	status, body = request(t, srv, http.MethodPost, "/api/v1/training/programs/"+program.ID+"/enroll", tokenA, map[string]any{})
	if status != http.StatusCreated {
		t.Fatalf("enroll failed: %d %s", status, body)
	}
	status, body = request(t, srv, http.MethodPut, "/api/v1/training/programs/"+program.ID+"/attendance", adminToken, map[string]any{"staffId": staffA, "attended": true})
	if status != http.StatusOK {
		t.Fatalf("attendance failed: %d %s", status, body)
	}
	status, body = request(t, srv, http.MethodPost, "/api/v1/training/programs/"+program.ID+"/certificates", adminToken, map[string]any{"staffId": staffA})
	if status != http.StatusCreated {
		t.Fatalf("certificate issue failed: %d %s", status, body)
	}
	var cert struct {
		ID string `json:"id"`
	}
	decodeData(t, body, &cert)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/training/certificates/"+cert.ID+"/pdf", nil)
	req.Header.Set("Authorization", "Bearer "+tokenA)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("pdf request failed: %v", err)
	}
	defer resp.Body.Close()
	pdfBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(pdfBytes, []byte("%PDF")) {
		t.Fatalf("expected PDF, got %d %q", resp.StatusCode, pdfBytes[:min(8, len(pdfBytes))])
	}
}

func request(t *testing.T, srv *httptest.Server, method, path, token string, payload any) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, raw
}

func decodeData(t *testing.T, body []byte, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, body)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("decode data: %v (%s)", err, envelope.Data)
	}
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, body)
	}
	return envelope.Error.Code
}

func login(t *testing.T, srv *httptest.Server, email, password string) string {
	t.Helper()
	status, body := request(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login for %s failed: %d %s", email, status, body)
	}
	var out struct {
		Token string `json:"token"`
	}
	decodeData(t, body, &out)
	return out.Token
}

func createStaff(t *testing.T, srv *httptest.Server, token, staffNo, name string) string {
	t.Helper()
	status, body := request(t, srv, http.MethodPost, "/api/v1/staff", token, map[string]string{
		"staffNo": staffNo,
		"name":    name,
	})
	if status != http.StatusCreated {
		t.Fatalf("create staff %s failed: %d %s", staffNo, status, body)
	}
	var out struct {
		ID string `json:"id"`
	}
	decodeData(t, body, &out)
	return out.ID
}

func assignSupervisor(t *testing.T, srv *httptest.Server, token, staffID, supervisorID string) {
	t.Helper()
	status, body := request(t, srv, http.MethodPut, "/api/v1/staff/"+staffID+"/supervisor", token, map[string]string{
		"supervisorId": supervisorID,
	})
	if status != http.StatusOK {
		t.Fatalf("assign supervisor failed: %d %s", status, body)
	}
}

// createStaffLogin inserts a portal user bound to a staff profile directly,
// then logs them in. User provisioning is a seed/ops concern, not an API one.
func createStaffLogin(t *testing.T, ctx context.Context, srv *httptest.Server, pool *pgxpool.Pool, staffID, email, roleName string) string {
	t.Helper()
	hash, err := auth.HashPassword("staff-pw-123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	var userID string
	err = pool.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, role_id, staff_id)
    SELECT $1, $2, r.id, $3 FROM roles r WHERE r.name = $4
    RETURNING id
  `, email, hash, staffID, roleName).Scan(&userID)
	if err != nil {
		t.Fatalf("insert user %s: %v", email, err)
	}
	return login(t, srv, email, "staff-pw-123")
}
