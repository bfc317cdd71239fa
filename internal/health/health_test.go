package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"nami/promptsvc/internal/config"
)

func TestCheckAll(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()

	var cfg config.Config
	cfg.Director.URL = up.URL
	cfg.Nami.InterjectURL = up.URL + "/funnel/interject"

	st := CheckAll(context.Background(), cfg)
	if !st.OK {
		t.Fatalf("expected healthy, got %+v", st)
	}
	if len(st.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(st.Checks))
	}
}

func TestCheckAllDirectorDown(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()

	var cfg config.Config
	cfg.Director.URL = "http://127.0.0.1:1" // nothing listens here
	cfg.Nami.InterjectURL = up.URL + "/funnel/interject"

	st := CheckAll(context.Background(), cfg)
	if st.OK {
		t.Fatal("expected unhealthy when director is unreachable")
	}
	for _, c := range st.Checks {
		if c.Name == "director" && c.OK {
			t.Fatal("director check should fail")
		}
		if c.Name == "nami" && !c.OK {
			t.Fatal("nami check should pass")
		}
	}
}
