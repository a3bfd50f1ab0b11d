package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openchat-labs/autoreply/pkg/autoreply/engine"
	"github.com/openchat-labs/autoreply/pkg/autoreply/llm"
)

type fakeHandler struct {
	lastAccount string
	lastUser    string
	lastText    string
	lastHandle  string
	lastTime    time.Time
	result      engine.Result
}

func (f *fakeHandler) HandleUserMessage(_ context.Context, accountID, channelUserID, text, replyHandle string, eventTime time.Time) engine.Result {
	f.lastAccount = accountID
	f.lastUser = channelUserID
	f.lastText = text
	f.lastHandle = replyHandle
	f.lastTime = eventTime
	return f.result
}

type fakeChecker struct{ err error }

func (f *fakeChecker) VerifyCredential(context.Context) error { return f.err }

func post(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestWebhookDispatchesInboundMessage(t *testing.T) {
	handler := &fakeHandler{result: engine.Result{
		Triggered: true,
		RuleID:    "r-1",
		Response:  "[Bot] On its way.",
	}}
	srv := NewServer(":0", handler, nil, nil)

	rec := post(t, srv, "/webhook/acct-7", `{
		"channel_user_id": "user-1",
		"text": "where is my order?",
		"reply_handle": "line-123",
		"timestamp": "2026-08-30T10:00:00Z"
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acct-7", handler.lastAccount)
	assert.Equal(t, "user-1", handler.lastUser)
	assert.Equal(t, "line-123", handler.lastHandle)
	assert.Equal(t, 2026, handler.lastTime.Year())
	assert.Contains(t, rec.Body.String(), `"rule_id":"r-1"`)
	assert.Contains(t, rec.Body.String(), `"triggered":true`)
}

func TestWebhookDefaultsReplyHandle(t *testing.T) {
	handler := &fakeHandler{}
	srv := NewServer(":0", handler, nil, nil)

	rec := post(t, srv, "/webhook/acct-1", `{"channel_user_id": "user-9", "text": "hi"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-9", handler.lastHandle)
}

func TestWebhookRejectsBadPayloads(t *testing.T) {
	srv := NewServer(":0", &fakeHandler{}, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing text", `{"channel_user_id": "user-1"}`},
		{"missing user", `{"text": "hello"}`},
		{"broken json", `{"text": `},
		{"bad timestamp", `{"channel_user_id": "u", "text": "t", "timestamp": "yesterday"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, srv, "/webhook/acct-1", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestWebhookInternalFailureWithoutResponse(t *testing.T) {
	handler := &fakeHandler{result: engine.Result{Err: errors.New("boom")}}
	srv := NewServer(":0", handler, nil, nil)

	rec := post(t, srv, "/webhook/acct-1", `{"channel_user_id": "user-1", "text": "hi"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom", "internal detail must not leak")
}

func TestWebhookFailureWithApologyIsHandled(t *testing.T) {
	handler := &fakeHandler{result: engine.Result{
		Triggered: true,
		RuleID:    "r-1",
		Response:  "[Bot] Sorry, something went wrong.",
		Err:       errors.New("provider down"),
	}}
	srv := NewServer(":0", handler, nil, nil)

	rec := post(t, srv, "/webhook/acct-1", `{"channel_user_id": "user-1", "text": "hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code, "an apology delivered to the user is a handled message")
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		checker    CredentialChecker
		wantStatus int
		wantBody   string
	}{
		{"no checker", nil, http.StatusOK, `"ok"`},
		{"healthy", &fakeChecker{}, http.StatusOK, `"ok"`},
		{"credential rejected", &fakeChecker{err: llm.ErrNoCredential}, http.StatusServiceUnavailable, "credential"},
		{"provider down", &fakeChecker{err: errors.New("unreachable")}, http.StatusServiceUnavailable, "provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(":0", &fakeHandler{}, tt.checker, nil)

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
