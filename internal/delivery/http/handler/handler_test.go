package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/user/serp-rank-service/internal/entity"
	"github.com/user/serp-rank-service/internal/usecase"
)

type fakeController struct {
	startErr  error
	started   []entity.RunConfig
	paused    bool
	stopped   bool
	captcha   bool
	snapshot  entity.ProgressSnapshot
	report    string
	reportErr error
}

func (f *fakeController) Start(cfg entity.RunConfig) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, cfg)
	return "run-123", nil
}
func (f *fakeController) Pause()  { f.paused = true }
func (f *fakeController) Resume() { f.paused = false }
func (f *fakeController) Stop()   { f.stopped = true }
func (f *fakeController) CaptchaSolved() bool {
	was := f.captcha
	f.captcha = false
	return was
}
func (f *fakeController) Status() entity.ProgressSnapshot { return f.snapshot }
func (f *fakeController) Report() (string, error)        { return f.report, f.reportErr }
func (f *fakeController) Wait()                          {}

func TestHandleRun(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		startErr   error
		wantStatus int
	}{
		{"accepted", `{"chromedriver_path":"/bin/chrome","website_to_check":"example.com","keywords":"a,b","cities":"NY"}`, nil, http.StatusAccepted},
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"already running", `{"website_to_check":"example.com","keywords":"a","cities":"NY"}`, usecase.ErrAlreadyRunning, http.StatusConflict},
		{"invalid", `{"keywords":"a","cities":"NY"}`, fmt.Errorf("%w: website to check is required", usecase.ErrInvalidRunConfig), http.StatusBadRequest},
		{"internal", `{"website_to_check":"example.com","keywords":"a","cities":"NY"}`, fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{startErr: tt.startErr}
			h := NewHandler(ctrl)

			req := httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.HandleRun(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantStatus == http.StatusAccepted {
				if len(ctrl.started) != 1 {
					t.Fatalf("expected one start, got %d", len(ctrl.started))
				}
				cfg := ctrl.started[0]
				if cfg.DriverPath != "/bin/chrome" || cfg.TargetDomain != "example.com" {
					t.Errorf("unexpected config: %+v", cfg)
				}
				if len(cfg.Keywords) != 2 || len(cfg.Cities) != 1 {
					t.Errorf("unexpected lists: %v / %v", cfg.Keywords, cfg.Cities)
				}
				var body map[string]string
				_ = json.NewDecoder(rr.Body).Decode(&body)
				if body["run_id"] != "run-123" || body["status"] != "success" {
					t.Errorf("unexpected body: %v", body)
				}
			}
		})
	}
}

func TestHandleStatus(t *testing.T) {
	ctrl := &fakeController{snapshot: entity.ProgressSnapshot{
		RunID:          "run-1",
		Phase:          entity.PhaseRunning,
		Running:        true,
		Paused:         true,
		CaptchaPending: true,
		Elapsed:        2500 * time.Millisecond,
		Completed:      1,
		Total:          4,
		Log:            "Searching for: a NY\n",
		Report:         "hidden while running",
	}}
	h := NewHandler(ctrl)

	rr := httptest.NewRecorder()
	h.HandleStatus(rr, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := map[string]any{
		"script_running":     true,
		"paused":             true,
		"captcha":            true,
		"elapsed_time":       2.5,
		"completed_searches": 1.0,
		"total_searches":     4.0,
		"output":             "Searching for: a NY\n",
		"results_content":    "",
		"run_id":             "run-1",
		"phase":              "running",
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, body[k])
		}
	}
}

func TestHandleDownload(t *testing.T) {
	t.Run("no report", func(t *testing.T) {
		h := NewHandler(&fakeController{reportErr: usecase.ErrNoReport})
		rr := httptest.NewRecorder()
		h.HandleDownload(rr, httptest.NewRequest(http.MethodGet, "/api/download", nil))
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})

	t.Run("attachment", func(t *testing.T) {
		report := "--- Page 1 ---\na NY\n\n--- Page 2 ---\n\n\n--- Not Found ---\n"
		h := NewHandler(&fakeController{report: report})
		rr := httptest.NewRecorder()
		h.HandleDownload(rr, httptest.NewRequest(http.MethodGet, "/api/download", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if got := rr.Header().Get("Content-Disposition"); !strings.Contains(got, "search_results.txt") {
			t.Errorf("unexpected Content-Disposition: %q", got)
		}
		if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain") {
			t.Errorf("unexpected Content-Type: %q", rr.Header().Get("Content-Type"))
		}
		if rr.Body.String() != report {
			t.Errorf("unexpected body: %q", rr.Body.String())
		}
	})
}

func TestControlSignals(t *testing.T) {
	ctrl := &fakeController{captcha: true}
	h := NewHandler(ctrl)

	rr := httptest.NewRecorder()
	h.HandlePause(rr, httptest.NewRequest(http.MethodPost, "/api/pause", nil))
	if !ctrl.paused || rr.Code != http.StatusOK {
		t.Errorf("pause not applied")
	}

	rr = httptest.NewRecorder()
	h.HandleResume(rr, httptest.NewRequest(http.MethodPost, "/api/resume", nil))
	if ctrl.paused {
		t.Errorf("resume not applied")
	}

	for _, want := range []bool{true, false} {
		rr = httptest.NewRecorder()
		h.HandleCaptchaSolved(rr, httptest.NewRequest(http.MethodPost, "/api/captcha/solved", nil))
		var body map[string]any
		_ = json.NewDecoder(rr.Body).Decode(&body)
		if body["resolved"] != want {
			t.Errorf("expected resolved=%v, got %v", want, body["resolved"])
		}
	}

	rr = httptest.NewRecorder()
	h.HandleStop(rr, httptest.NewRequest(http.MethodPost, "/api/stop", nil))
	if !ctrl.stopped {
		t.Errorf("stop not applied")
	}
}
