package template

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/reportforge/designer/internal/auth"
	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/store"
	"github.com/reportforge/designer/internal/typeid"
)

func openRepo(t *testing.T) *store.SQLite {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSampleReceipt(t *testing.T) {
	elements := NewSampleReceipt()
	if len(elements) == 0 {
		t.Fatal("NewSampleReceipt() returned no elements")
	}

	seen := make(map[string]bool)
	var locked, hidden int
	for _, el := range elements {
		if err := typeid.Validate(el.ID, typeid.PrefixElement); err != nil {
			t.Errorf("element %q: %v", el.Name, err)
		}
		if seen[el.ID] {
			t.Errorf("duplicate id %q", el.ID)
		}
		seen[el.ID] = true
		if el.Size.Width <= 0 || el.Size.Height <= 0 {
			t.Errorf("element %q has empty size %v", el.Name, el.Size)
		}
		if !json.Valid(el.Data) {
			t.Errorf("element %q has invalid data %s", el.Name, el.Data)
		}
		if el.Locked {
			locked++
		}
		if !el.Visible {
			hidden++
		}
	}
	if locked == 0 || hidden == 0 {
		t.Errorf("sample has %d locked and %d hidden elements, want at least one of each", locked, hidden)
	}
}

func TestEnsurePlaygroundIsIdempotent(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	if err := EnsurePlayground(ctx, repo); err != nil {
		t.Fatalf("EnsurePlayground() error = %v", err)
	}
	first, err := repo.LoadElements(ctx, PlaygroundID)
	if err != nil {
		t.Fatalf("LoadElements() error = %v", err)
	}
	if len(first) != len(NewSampleReceipt()) {
		t.Errorf("playground has %d elements, want %d", len(first), len(NewSampleReceipt()))
	}

	if err := EnsurePlayground(ctx, repo); err != nil {
		t.Fatalf("second EnsurePlayground() error = %v", err)
	}
	second, _ := repo.LoadElements(ctx, PlaygroundID)
	if len(second) == 0 || second[0].ID != first[0].ID {
		t.Error("second EnsurePlayground() replaced existing elements")
	}
}

func newRouter(svc *Service) *mux.Router {
	h := NewHandler(svc)
	r := mux.NewRouter()
	r.HandleFunc("/api/templates", h.List).Methods("GET")
	r.HandleFunc("/api/templates", h.Create).Methods("POST")
	r.HandleFunc("/api/templates/{templateId}", h.Get).Methods("GET")
	r.HandleFunc("/api/templates/{templateId}/elements", h.Elements).Methods("GET")
	return r
}

func do(t *testing.T, r http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(auth.WithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerFlow(t *testing.T) {
	repo := openRepo(t)
	r := newRouter(NewService(repo))

	rec := do(t, r, http.MethodPost, "/api/templates", "user_a", `{"name":"Receipt","sample":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create status = %d: %s", rec.Code, rec.Body)
	}
	var created store.Template
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Width != ReceiptWidth || created.OwnerID != "user_a" {
		t.Errorf("Create() = %+v, want default receipt width owned by user_a", created)
	}

	rec = do(t, r, http.MethodGet, "/api/templates", "user_a", "")
	var list []store.Template
	json.NewDecoder(rec.Body).Decode(&list)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("List() = %+v, want the created template", list)
	}

	rec = do(t, r, http.MethodGet, "/api/templates/"+created.ID+"/elements", "user_a", "")
	var elements []element.Ref
	json.NewDecoder(rec.Body).Decode(&elements)
	if rec.Code != http.StatusOK || len(elements) != len(NewSampleReceipt()) {
		t.Errorf("Elements() = %d with %d elements", rec.Code, len(elements))
	}

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   string
		want   int
	}{
		{"other user", http.MethodGet, "/api/templates/" + created.ID, "user_b", "", http.StatusForbidden},
		{"missing", http.MethodGet, "/api/templates/tmpl_missing", "user_a", "", http.StatusNotFound},
		{"missing name", http.MethodPost, "/api/templates", "user_a", `{}`, http.StatusBadRequest},
		{"negative size", http.MethodPost, "/api/templates", "user_a", `{"name":"x","width":-1}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/templates", "user_a", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, tt.method, tt.path, tt.user, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestPlaygroundOpenToEveryone(t *testing.T) {
	repo := openRepo(t)
	if err := EnsurePlayground(context.Background(), repo); err != nil {
		t.Fatalf("EnsurePlayground() error = %v", err)
	}
	svc := NewService(repo)

	if _, err := svc.Get(context.Background(), PlaygroundID, "anyone"); err != nil {
		t.Errorf("Get(playground) error = %v", err)
	}
}
