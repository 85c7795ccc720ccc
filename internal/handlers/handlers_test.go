package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"taskdeck/internal/models"
	"taskdeck/internal/store"
	"taskdeck/internal/sweeper"
)

func setupTestHandlers(t *testing.T) (*Handlers, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	sw := sweeper.New(s, 30*24*time.Hour)
	h := New(s, HeaderAuth{}, sw, "test-admin-token")
	return h, s
}

func jsonRequest(method, path, owner string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set("X-Owner-ID", owner)
	}
	return req
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func seedTask(t *testing.T, s *store.SQLiteStore, owner, title string) *models.Task {
	t.Helper()
	task := &models.Task{
		OwnerID:   owner,
		Title:     title,
		StartDate: time.Now().AddDate(0, 0, -1),
		EndDate:   time.Now().AddDate(0, 0, 5),
		Priority:  "medium",
	}
	if err := s.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("failed to seed task: %v", err)
	}
	return task
}

func TestListTasks_RequiresIdentity(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := jsonRequest("GET", "/api/tasks", "", nil)
	rec := httptest.NewRecorder()

	h.ListTasks(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestListTasks_ReturnsDerivedStatus(t *testing.T) {
	h, s := setupTestHandlers(t)

	seedTask(t, s, "u1", "Due soon")

	req := jsonRequest("GET", "/api/tasks", "u1", nil)
	rec := httptest.NewRecorder()

	h.ListTasks(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var views []struct {
		Title  string `json:"title"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 task, got %d", len(views))
	}
	// Five days out lands in the approaching bucket.
	if views[0].Status != "approaching" {
		t.Errorf("expected status %q, got %q", "approaching", views[0].Status)
	}
}

func TestListTasks_ScopedToOwner(t *testing.T) {
	h, s := setupTestHandlers(t)

	seedTask(t, s, "u1", "Mine")
	seedTask(t, s, "u2", "Theirs")

	req := jsonRequest("GET", "/api/tasks", "u1", nil)
	rec := httptest.NewRecorder()

	h.ListTasks(rec, req)

	var views []struct {
		Title string `json:"title"`
	}
	json.Unmarshal(rec.Body.Bytes(), &views)
	if len(views) != 1 || views[0].Title != "Mine" {
		t.Errorf("expected only caller's task, got %+v", views)
	}
}

func TestCreateTask_Success(t *testing.T) {
	h, _ := setupTestHandlers(t)

	payload := map[string]any{
		"title":      "New task",
		"start_date": time.Now().Format(time.RFC3339),
		"end_date":   time.Now().AddDate(0, 0, 3).Format(time.RFC3339),
		"priority":   "high",
	}
	req := jsonRequest("POST", "/api/tasks", "u1", payload)
	rec := httptest.NewRecorder()

	h.CreateTask(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var task models.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if task.ID == 0 {
		t.Error("expected assigned id in response")
	}
	if task.Color != models.DefaultColor {
		t.Errorf("expected default color, got %q", task.Color)
	}
}

func TestCreateTask_EmptyTitleRejected(t *testing.T) {
	h, s := setupTestHandlers(t)

	payload := map[string]any{
		"title":      "",
		"start_date": time.Now().Format(time.RFC3339),
		"end_date":   time.Now().AddDate(0, 0, 3).Format(time.RFC3339),
	}
	req := jsonRequest("POST", "/api/tasks", "u1", payload)
	rec := httptest.NewRecorder()

	h.CreateTask(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	tasks, _ := s.ListActive(context.Background(), "u1")
	if len(tasks) != 0 {
		t.Errorf("expected no task persisted, got %d", len(tasks))
	}
}

func TestUpdateTask_Success(t *testing.T) {
	h, s := setupTestHandlers(t)
	task := seedTask(t, s, "u1", "Original")

	req := jsonRequest("PATCH", "/api/tasks/1", "u1", map[string]any{"title": "Updated"})
	req = withURLParam(req, "id", fmt.Sprint(task.ID))
	rec := httptest.NewRecorder()

	h.UpdateTask(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	got, _ := s.GetTask(context.Background(), "u1", task.ID)
	if got.Title != "Updated" {
		t.Errorf("expected title %q, got %q", "Updated", got.Title)
	}
}

func TestUpdateTask_NotFound(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := jsonRequest("PATCH", "/api/tasks/999", "u1", map[string]any{"title": "Ghost"})
	req = withURLParam(req, "id", "999")
	rec := httptest.NewRecorder()

	h.UpdateTask(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestDeleteTask_MovesToTrash(t *testing.T) {
	h, s := setupTestHandlers(t)
	task := seedTask(t, s, "u1", "Doomed")

	req := jsonRequest("DELETE", "/api/tasks/1", "u1", nil)
	req = withURLParam(req, "id", fmt.Sprint(task.ID))
	rec := httptest.NewRecorder()

	h.DeleteTask(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	trashed, _ := s.ListTrashed(context.Background(), "u1")
	if len(trashed) != 1 {
		t.Errorf("expected task in trash, got %d", len(trashed))
	}
}

func TestReorderTasks_PersistsNewOrder(t *testing.T) {
	h, s := setupTestHandlers(t)
	a := seedTask(t, s, "u1", "A")
	b := seedTask(t, s, "u1", "B")

	req := jsonRequest("PATCH", "/api/tasks/reorder", "u1",
		map[string]any{"task_ids": []int64{b.ID, a.ID}})
	rec := httptest.NewRecorder()

	h.ReorderTasks(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	active, _ := s.ListActive(context.Background(), "u1")
	if active[0].Title != "B" || active[1].Title != "A" {
		t.Errorf("expected order [B A], got [%s %s]", active[0].Title, active[1].Title)
	}
}

func TestReorderTasks_EmptyPayloadRejected(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := jsonRequest("PATCH", "/api/tasks/reorder", "u1", map[string]any{"task_ids": []int64{}})
	rec := httptest.NewRecorder()

	h.ReorderTasks(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestTrashAction_Restore(t *testing.T) {
	h, s := setupTestHandlers(t)
	task := seedTask(t, s, "u1", "Recovered")
	s.SoftDeleteTask(context.Background(), "u1", task.ID)

	req := jsonRequest("PATCH", "/api/tasks/trash/1", "u1", map[string]string{"action": "restore"})
	req = withURLParam(req, "id", fmt.Sprint(task.ID))
	rec := httptest.NewRecorder()

	h.TrashAction(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	got, _ := s.GetTask(context.Background(), "u1", task.ID)
	if got.IsDeleted {
		t.Error("expected task restored")
	}
}

func TestTrashAction_RestoreActiveTaskConflicts(t *testing.T) {
	h, s := setupTestHandlers(t)
	task := seedTask(t, s, "u1", "Never trashed")

	req := jsonRequest("PATCH", "/api/tasks/trash/1", "u1", map[string]string{"action": "restore"})
	req = withURLParam(req, "id", fmt.Sprint(task.ID))
	rec := httptest.NewRecorder()

	h.TrashAction(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestTrashAction_Permanent(t *testing.T) {
	h, s := setupTestHandlers(t)
	task := seedTask(t, s, "u1", "Purged")
	s.SoftDeleteTask(context.Background(), "u1", task.ID)

	req := jsonRequest("PATCH", "/api/tasks/trash/1", "u1", map[string]string{"action": "permanent"})
	req = withURLParam(req, "id", fmt.Sprint(task.ID))
	rec := httptest.NewRecorder()

	h.TrashAction(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	trashed, _ := s.ListTrashed(context.Background(), "u1")
	if len(trashed) != 0 {
		t.Errorf("expected empty trash, got %d", len(trashed))
	}
}

func TestTrashAction_InvalidAction(t *testing.T) {
	h, s := setupTestHandlers(t)
	task := seedTask(t, s, "u1", "Confused")
	s.SoftDeleteTask(context.Background(), "u1", task.ID)

	req := jsonRequest("PATCH", "/api/tasks/trash/1", "u1", map[string]string{"action": "archive"})
	req = withURLParam(req, "id", fmt.Sprint(task.ID))
	rec := httptest.NewRecorder()

	h.TrashAction(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestEmptyTrash_ReportsCount(t *testing.T) {
	h, s := setupTestHandlers(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B"} {
		task := seedTask(t, s, "u1", title)
		s.SoftDeleteTask(ctx, "u1", task.ID)
	}

	req := jsonRequest("DELETE", "/api/tasks/trash", "u1", nil)
	rec := httptest.NewRecorder()

	h.EmptyTrash(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp struct {
		DeletedCount int `json:"deleted_count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.DeletedCount != 2 {
		t.Errorf("expected 2 deleted, got %d", resp.DeletedCount)
	}
}

func TestCleanup_RequiresAdminToken(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := jsonRequest("POST", "/api/cleanup", "u1", nil)
	rec := httptest.NewRecorder()

	h.Cleanup(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestCleanup_WithTokenRunsSweep(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := jsonRequest("POST", "/api/cleanup", "", nil)
	req.Header.Set("X-Admin-Token", "test-admin-token")
	rec := httptest.NewRecorder()

	h.Cleanup(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp struct {
		DeletedCount int `json:"deleted_count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.DeletedCount != 0 {
		t.Errorf("expected nothing purged from fresh store, got %d", resp.DeletedCount)
	}
}

func TestAddFile_AttachesDescriptor(t *testing.T) {
	h, s := setupTestHandlers(t)
	task := seedTask(t, s, "u1", "Carrier")

	file := map[string]any{
		"name":      "photo.jpg",
		"size":      4096,
		"mime_type": "image/jpeg",
		"data_ref":  "blob:photo",
	}
	req := jsonRequest("POST", "/api/tasks/1/files", "u1", file)
	req = withURLParam(req, "id", fmt.Sprint(task.ID))
	rec := httptest.NewRecorder()

	h.AddFile(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	got, _ := s.GetTask(context.Background(), "u1", task.ID)
	if len(got.Files) != 1 || got.Files[0].Name != "photo.jpg" {
		t.Errorf("expected attachment stored, got %+v", got.Files)
	}
}
