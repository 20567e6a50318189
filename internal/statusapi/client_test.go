package statusapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surfstat/internal/config"
)

const statusPayload = `{
	"userStatus": {
		"email": "dev@example.com",
		"planStatus": {
			"planInfo": {"monthlyPromptCredits": 50000},
			"availablePromptCredits": 500
		},
		"cascadeModelConfigData": {
			"clientModelConfigs": [
				{"label": "Gemini 3 Pro (High)", "quotaInfo": {"remainingFraction": 0.42, "resetTime": "2026-09-01T00:00:00Z"}}
			]
		}
	}
}`

func testConfig() *config.Config {
	return &config.Config{
		APIPath:       "/exa.language_server_pb.LanguageServerService/GetUserStatus",
		ProbeTimeout:  "2s",
		IDEName:       "windsurf",
		ExtensionName: "windsurf",
		IDEVersion:    "1.0.0",
	}
}

// startStatusServer runs a TLS server on loopback and returns its port.
func startStatusServer(t *testing.T, handler http.HandlerFunc) int {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)
	return srv.Listener.Addr().(*net.TCPAddr).Port
}

// deadPort reserves a loopback port and closes it, so connections are
// refused immediately.
func deadPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func TestGetUserStatus(t *testing.T) {
	var gotReq *http.Request
	var gotBody []byte
	port := startStatusServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(statusPayload))
	})

	client := NewClient(testConfig())
	status, err := client.GetUserStatus(context.Background(), port, "tok-1234")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotReq.Method)
	assert.Equal(t, "/exa.language_server_pb.LanguageServerService/GetUserStatus", gotReq.URL.Path)
	assert.Equal(t, "tok-1234", gotReq.Header.Get("X-Codeium-Csrf-Token"))
	assert.Equal(t, "1", gotReq.Header.Get("Connect-Protocol-Version"))
	assert.Equal(t, "application/json", gotReq.Header.Get("Content-Type"))

	var body statusRequest
	require.NoError(t, json.Unmarshal(gotBody, &body))
	assert.Equal(t, "windsurf", body.Metadata.IDEName)
	assert.Equal(t, "1.0.0", body.Metadata.IDEVersion)

	require.NotNil(t, status.UserStatus)
	assert.Equal(t, "dev@example.com", status.UserStatus.Email)
	require.NotNil(t, status.UserStatus.PlanStatus)
	assert.Equal(t, 500.0, *status.UserStatus.PlanStatus.AvailablePromptCredits)

	models := status.UserStatus.ModelConfigs()
	require.Len(t, models, 1)
	assert.Equal(t, "Gemini 3 Pro (High)", models[0].Label)
}

func TestGetUserStatusNon200(t *testing.T) {
	port := startStatusServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	client := NewClient(testConfig())
	_, err := client.GetUserStatus(context.Background(), port, "tok")
	assert.Error(t, err)
}

func TestGetUserStatusMalformedBody(t *testing.T) {
	port := startStatusServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})

	client := NewClient(testConfig())
	_, err := client.GetUserStatus(context.Background(), port, "tok")
	assert.Error(t, err)
}

func TestGetUserStatusTimeout(t *testing.T) {
	port := startStatusServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(statusPayload))
	})

	cfg := testConfig()
	cfg.ProbeTimeout = "50ms"
	client := NewClient(cfg)

	start := time.Now()
	_, err := client.GetUserStatus(context.Background(), port, "tok")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestProbeFirstSuccessWins(t *testing.T) {
	live := startStatusServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(statusPayload))
	})
	ports := []int{deadPort(t), deadPort(t), live}

	client := NewClient(testConfig())
	status, err := client.Probe(context.Background(), ports, "tok")
	require.NoError(t, err)
	require.NotNil(t, status.UserStatus)

	// Same response as if only the live port existed
	direct, err := client.Probe(context.Background(), []int{live}, "tok")
	require.NoError(t, err)
	assert.Equal(t, direct.UserStatus.Email, status.UserStatus.Email)
}

func TestProbeAdvancesPastNon200(t *testing.T) {
	rejecting := startStatusServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	live := startStatusServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(statusPayload))
	})

	client := NewClient(testConfig())
	status, err := client.Probe(context.Background(), []int{rejecting, live}, "tok")
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", status.UserStatus.Email)
}

func TestProbeExhaustion(t *testing.T) {
	ports := []int{deadPort(t), deadPort(t)}

	client := NewClient(testConfig())
	_, err := client.Probe(context.Background(), ports, "tok")
	assert.ErrorIs(t, err, ErrNoReachablePort)
}

func TestModelConfigsNonListShape(t *testing.T) {
	var status UserStatusResponse
	payload := `{"userStatus":{"email":"a@b.c","cascadeModelConfigData":{"clientModelConfigs":{"oops":"object"}}}}`
	require.NoError(t, json.Unmarshal([]byte(payload), &status))

	assert.Equal(t, "a@b.c", status.UserStatus.Email)
	assert.Nil(t, status.UserStatus.ModelConfigs())
}

func TestModelConfigsAbsent(t *testing.T) {
	var status UserStatusResponse
	require.NoError(t, json.NewDecoder(bytes.NewReader([]byte(`{"userStatus":{}}`))).Decode(&status))
	assert.Nil(t, status.UserStatus.ModelConfigs())
}
