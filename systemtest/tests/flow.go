package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/EternisAI/cnc-server/internal/api/http/dto"
	"github.com/EternisAI/cnc-server/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClientLifecycle walks the whole flow against a real store: enroll,
// re-enroll, pending rejection, approval, authentication, tasking, delivery.
func TestClientLifecycle(t *testing.T, router *gin.Engine) {
	operatorToken := login(t, router)

	// Enroll.
	regBody := dto.RegisterClientRequest{Name: "bot1", Hostname: "h1", ClientID: "abc-123"}
	rr := doJSON(router, "POST", "/client", regBody, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var reg dto.RegisterClientResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reg))
	require.NotEmpty(t, reg.Token)

	// Re-enrolling the same client_id returns the same token.
	rr = doJSON(router, "POST", "/client", regBody, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var again dto.RegisterClientResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &again))
	assert.Equal(t, reg.Token, again.Token)

	// The token does not authenticate while the client is pending.
	rr = doJSON(router, "GET", "/client/commands", nil, clientHeaders(reg.Token))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Find the client's id and approve it.
	clientID := findClientID(t, router, operatorToken, "abc-123")
	rr = doJSON(router, "POST", fmt.Sprintf("/admin/clients/%d/approve", clientID), nil, bearerHeaders(operatorToken))
	require.Equal(t, http.StatusOK, rr.Code)

	// Now the token authenticates; the queue is empty.
	rr = doJSON(router, "GET", "/client/commands", nil, clientHeaders(reg.Token))
	require.Equal(t, http.StatusOK, rr.Code)
	var cmds dto.CommandsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cmds))
	assert.Equal(t, 0, cmds.Count)

	// Queue two commands.
	for _, typ := range []string{"status", "config"} {
		rr = doJSON(router, "POST", fmt.Sprintf("/admin/clients/%d/commands", clientID),
			dto.CreateCommandRequest{Type: typ, Payload: "payload-" + typ}, bearerHeaders(operatorToken))
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	// One poll delivers both, in creation order, without read_at on the wire.
	rr = doJSON(router, "GET", "/client/commands", nil, clientHeaders(reg.Token))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cmds))
	require.Equal(t, 2, cmds.Count)
	assert.Equal(t, "status", cmds.Commands[0].Type)
	assert.Equal(t, "config", cmds.Commands[1].Type)

	// Nothing is delivered twice.
	rr = doJSON(router, "GET", "/client/commands", nil, clientHeaders(reg.Token))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cmds))
	assert.Equal(t, 0, cmds.Count)
}

// TestConcurrentEnrollment fires simultaneous registrations of one client_id
// at the real store; the unique index must collapse them to a single client
// and a single token.
func TestConcurrentEnrollment(t *testing.T, router *gin.Engine) {
	const goroutines = 8
	tokens := make([]string, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := dto.RegisterClientRequest{Name: "race", Hostname: "race-host", ClientID: "race-client"}
			rr := doJSON(router, "POST", "/client", body, nil)
			if rr.Code != http.StatusOK {
				return
			}
			var resp dto.RegisterClientResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err == nil {
				tokens[i] = resp.Token
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		require.NotEmpty(t, tokens[i], "registration %d failed", i)
		assert.Equal(t, tokens[0], tokens[i], "all racers must observe one token")
	}
}

// TestConcurrentPolling checks at-most-once delivery under racing pollers:
// the claimed sets must partition the queued commands exactly.
func TestConcurrentPolling(t *testing.T, router *gin.Engine) {
	operatorToken := login(t, router)

	regBody := dto.RegisterClientRequest{Name: "poller", Hostname: "poll-host", ClientID: "poll-client"}
	rr := doJSON(router, "POST", "/client", regBody, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var reg dto.RegisterClientResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reg))

	clientID := findClientID(t, router, operatorToken, "poll-client")
	rr = doJSON(router, "POST", fmt.Sprintf("/admin/clients/%d/approve", clientID), nil, bearerHeaders(operatorToken))
	require.Equal(t, http.StatusOK, rr.Code)

	const total = 20
	for i := 0; i < total; i++ {
		rr = doJSON(router, "POST", fmt.Sprintf("/admin/clients/%d/commands", clientID),
			dto.CreateCommandRequest{Type: "command", Payload: fmt.Sprintf("task-%d", i)}, bearerHeaders(operatorToken))
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	const pollers = 6
	results := make([]dto.CommandsResponse, pollers)
	var wg sync.WaitGroup
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rr := doJSON(router, "GET", "/client/commands", nil, clientHeaders(reg.Token))
			if rr.Code == http.StatusOK {
				_ = json.Unmarshal(rr.Body.Bytes(), &results[i])
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]int)
	for _, resp := range results {
		for _, cmd := range resp.Commands {
			seen[cmd.ID]++
		}
	}
	assert.Len(t, seen, total, "every queued command must be delivered")
	for id, count := range seen {
		assert.Equal(t, 1, count, "command %d delivered %d times", id, count)
	}
}

func login(t *testing.T, router *gin.Engine) string {
	t.Helper()
	rr := doJSON(router, "POST", "/auth/login", dto.LoginRequest{Username: "root", Password: "changeme"}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Token
}

func findClientID(t *testing.T, router *gin.Engine, operatorToken, clientID string) int64 {
	t.Helper()
	rr := doJSON(router, "GET", "/admin/clients", nil, bearerHeaders(operatorToken))
	require.Equal(t, http.StatusOK, rr.Code)
	var resp dto.ListClientsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	for _, c := range resp.Clients {
		if c.ClientID == clientID {
			return c.ID
		}
	}
	t.Fatalf("client %s not found", clientID)
	return 0
}

func clientHeaders(token string) map[string]string {
	return map[string]string{auth.HeaderName: token}
}

func bearerHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func doJSON(router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
