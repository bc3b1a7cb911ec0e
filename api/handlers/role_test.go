package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BaSui01/agentcore/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 RoleHandler 测试
// =============================================================================

func newTestRoleHandler() (*RoleHandler, *agent.Registry) {
	logger := zap.NewNop()
	registry := agent.NewBuiltinRegistry(logger)
	return NewRoleHandler(registry, logger), registry
}

func TestRoleHandler_ListRoles(t *testing.T) {
	handler, _ := newTestRoleHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/roles", nil)

	handler.HandleListRoles(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.True(t, resp.Success)

	roles, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, roles, 8)

	first := roles[0].(map[string]any)
	assert.Equal(t, "orchestrator", first["name"])
}

func TestRoleHandler_GetRole(t *testing.T) {
	handler, _ := newTestRoleHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/roles/coder", nil)
	r.SetPathValue("id", "coder")

	handler.HandleGetRole(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "coder", data["name"])
	assert.Contains(t, data["keywords"], "implement")
}

func TestRoleHandler_GetRole_NotFound(t *testing.T) {
	handler, _ := newTestRoleHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/roles/wizard", nil)
	r.SetPathValue("id", "wizard")

	handler.HandleGetRole(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ROLE_NOT_FOUND", resp.Error.Code)
}

func TestRoleHandler_RegisterRole(t *testing.T) {
	handler, registry := newTestRoleHandler()

	body := `{
		"name": "eu_compliance",
		"description": "EU regulatory specialist",
		"prompt_template": "You are an EU compliance specialist.",
		"keywords": ["gdpr", "psd2"],
		"vertical": "fintech"
	}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/roles", strings.NewReader(body))

	handler.HandleRegisterRole(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	role, ok := registry.Get("eu_compliance")
	require.True(t, ok)
	assert.Equal(t, "fintech", role.Vertical)
	assert.Equal(t, []string{"gdpr", "psd2"}, role.Keywords)
}

func TestRoleHandler_RegisterRole_MissingPrompt(t *testing.T) {
	handler, _ := newTestRoleHandler()

	body := `{"name": "broken"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/roles", strings.NewReader(body))

	handler.HandleRegisterRole(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
