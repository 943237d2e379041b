package app

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// newFakeBackend はサインインから今週のワークアウト取得までを返すバックエンドを起動する。
func newFakeBackend(t *testing.T, signInStatus int) *httptest.Server {
	t.Helper()
	now := time.Now()
	weekStart := now.AddDate(0, 0, -int(now.Weekday())).Format("2006-01-02")

	mux := http.NewServeMux()
	respond := func(pattern, body string) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		})
	}
	mux.HandleFunc("POST /api/auth/sign_in", func(w http.ResponseWriter, r *http.Request) {
		if signInStatus != http.StatusOK {
			w.WriteHeader(signInStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"personId": 42,
			"currentContextToken": "team-7",
			"organizations": [{
				"teamsPlayingOn": [{
					"contextToken": "team-7",
					"programId": 7,
					"programMembershipId": 70,
					"selected?": true
				}]
			}]
		}`))
	})
	respond("GET /api/custom_program_memberships/70", `{"id": 70, "trainAtYourOwnPace": false}`)
	respond("GET /api/smart_sets/reference_tables", `{}`)
	respond("GET /api/custom_programs/7", `{"id": 7, "name": "Off-Season"}`)
	respond("GET /api/blocks", `{"STRENGTH": {"SHORT": "Strength", "LONG": "Build max force"}}`)
	respond("GET /api/custom_programs/7/workout_weeks",
		`[{"id": 101, "weekStartDate": "`+weekStart+`", "blockType": "STRENGTH"}, {"id": null, "weekStartDate": "2020-01-05"}]`)
	respond("GET /api/workout_weeks/101/1", `{"id": 101, "workoutDayNum": 1, "blockType": "STRENGTH"}`)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func setTestEnv(t *testing.T, baseURL string) {
	t.Helper()
	keepDefaultLogger(t)
	t.Setenv("API_BASE_URL", baseURL)
	t.Setenv("API_MAX_RETRIES", "0")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("SIGN_IN_EMAIL", "athlete@example.com")
	t.Setenv("SIGN_IN_PASSWORD", "secret")
}

// findLogEntry はJSONログからmsgが一致する最初のエントリを返す。
func findLogEntry(t *testing.T, buf *bytes.Buffer, msg string) map[string]interface{} {
	t.Helper()
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		var entry map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if entry["msg"] == msg {
			return entry
		}
	}
	t.Fatalf("log entry %q not found in:\n%s", msg, buf.String())
	return nil
}

func TestRun_BootstrapCommand_Ready(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK)
	setTestEnv(t, backend.URL)

	var buf bytes.Buffer
	if err := Run(&buf, []string{"bootstrap"}); err != nil {
		t.Fatalf("Run(bootstrap) returned error: %v\nlogs: %s", err, buf.String())
	}

	entry := findLogEntry(t, &buf, "bootstrap summary")
	if entry["status"] != "ready" {
		t.Errorf("status = %v, want ready", entry["status"])
	}
	if entry["context_token"] != "team-7" {
		t.Errorf("context_token = %v, want team-7", entry["context_token"])
	}
	if entry["program"] != "Off-Season" {
		t.Errorf("program = %v, want Off-Season", entry["program"])
	}
	if entry["workouts"] != float64(1) {
		t.Errorf("workouts = %v, want 1", entry["workouts"])
	}
}

func TestRun_BootstrapCommand_SignInRejected(t *testing.T) {
	backend := newFakeBackend(t, http.StatusUnauthorized)
	setTestEnv(t, backend.URL)

	var buf bytes.Buffer
	err := Run(&buf, []string{"bootstrap"})
	if err == nil {
		t.Fatal("Run(bootstrap) should fail when sign-in is rejected")
	}
	if !strings.Contains(err.Error(), "bootstrap failed") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "bootstrap failed")
	}
}

func TestRun_BootstrapCommand_MissingCredentials(t *testing.T) {
	setTestEnv(t, "https://api.example.com")
	t.Setenv("SIGN_IN_EMAIL", "")

	var buf bytes.Buffer
	err := Run(&buf, []string{"bootstrap"})
	if err == nil {
		t.Fatal("Run(bootstrap) without credentials should return error")
	}
	if !strings.Contains(err.Error(), "SIGN_IN_EMAIL") {
		t.Errorf("error = %q, want to mention SIGN_IN_EMAIL", err.Error())
	}
}

func TestRun_ServeCommand_InvalidBaseURL(t *testing.T) {
	setTestEnv(t, "ftp://api.example.com")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"serve"}); err == nil {
		t.Fatal("Run(serve) with an invalid API base URL should return error")
	}
}

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	keepDefaultLogger(t)
	t.Setenv("API_BASE_URL", "")

	var buf bytes.Buffer
	err := Run(&buf, []string{"serve"})
	if err == nil {
		t.Fatal("Run with missing env should return error")
	}
}

func TestRunHealthcheck_OK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := runHealthcheck(serverPort(t, server)); err != nil {
		t.Errorf("runHealthcheck returned error: %v", err)
	}
}

func TestRunHealthcheck_Unhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := runHealthcheck(serverPort(t, server))
	if err == nil {
		t.Fatal("runHealthcheck should fail on 503")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error = %q, want to mention 503", err.Error())
	}
}

func serverPort(t *testing.T, server *httptest.Server) string {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}
	return u.Port()
}
