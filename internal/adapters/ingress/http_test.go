package ingress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taployalty/mail-agent/internal/core"
	"go.uber.org/zap"
)

type fakeProcessor struct {
	lastMsg *core.InboundMessage
	result  *core.PipelineResult
	err     error
}

func (f *fakeProcessor) Process(ctx context.Context, msg *core.InboundMessage) (*core.PipelineResult, error) {
	f.lastMsg = msg
	return f.result, f.err
}

func TestHandleProcessSuccess(t *testing.T) {
	proc := &fakeProcessor{result: &core.PipelineResult{
		ResponseText: "We open at 9am.",
		SearchUsed:   true,
		SearchReason: "store opening hours",
	}}
	ingress := NewHTTPIngress(proc, zap.NewNop(), ":0")

	body := bytes.NewBufferString(`{"merchant_id":"m1","email_id":"e1","body":"What time do you open?"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/process", body)
	rec := httptest.NewRecorder()
	ingress.handleProcess(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "We open at 9am.", resp["response"])
	assert.Equal(t, true, resp["web_search_used"])
	assert.Equal(t, "store opening hours", resp["web_search_reason"])

	require.NotNil(t, proc.lastMsg)
	assert.Equal(t, "m1", proc.lastMsg.MerchantID)
	assert.Equal(t, "e1", proc.lastMsg.EmailID)
}

func TestHandleProcessPipelineFailure(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("index query failed: index offline")}
	ingress := NewHTTPIngress(proc, zap.NewNop(), ":0")

	body := bytes.NewBufferString(`{"merchant_id":"m1","email_id":"e1","body":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/process", body)
	rec := httptest.NewRecorder()
	ingress.handleProcess(rec, req)

	// Failures stay inside the envelope so the caller owns retry policy
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "index offline")
	assert.NotContains(t, rec.Body.String(), `"response"`)
}

func TestHandleProcessBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing merchant", `{"email_id":"e1","body":"hi"}`},
		{"missing email id", `{"merchant_id":"m1","body":"hi"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcessor{result: &core.PipelineResult{}}
			ingress := NewHTTPIngress(proc, zap.NewNop(), ":0")

			req := httptest.NewRequest(http.MethodPost, "/v1/process", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			ingress.handleProcess(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, proc.lastMsg)
		})
	}
}

func TestHandleProcessEmptyBodyAllowed(t *testing.T) {
	proc := &fakeProcessor{result: &core.PipelineResult{ResponseText: "ok"}}
	ingress := NewHTTPIngress(proc, zap.NewNop(), ":0")

	req := httptest.NewRequest(http.MethodPost, "/v1/process",
		strings.NewReader(`{"merchant_id":"m1","email_id":"e1"}`))
	rec := httptest.NewRecorder()
	ingress.handleProcess(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, proc.lastMsg)
	assert.Equal(t, "", proc.lastMsg.Body)
}

func TestHandleHealth(t *testing.T) {
	ingress := NewHTTPIngress(&fakeProcessor{}, zap.NewNop(), ":0")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	ingress.handleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}
