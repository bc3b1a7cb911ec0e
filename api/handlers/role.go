package handlers

import (
	"net/http"
	"strings"

	"github.com/BaSui01/agentcore/agent"
	"github.com/BaSui01/agentcore/types"
	"go.uber.org/zap"
)

// =============================================================================
// Role Management Handler
// =============================================================================

// RoleHandler role registry handler
type RoleHandler struct {
	registry *agent.Registry
	logger   *zap.Logger
}

// RoleInfo role information returned by the API
type RoleInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Tools       []string `json:"tools,omitempty"`
	Vertical    string   `json:"vertical,omitempty"`
}

// RoleRegisterRequest request to register a custom role
type RoleRegisterRequest struct {
	Name           string   `json:"name" binding:"required"`
	Description    string   `json:"description,omitempty"`
	PromptTemplate string   `json:"prompt_template" binding:"required"`
	Keywords       []string `json:"keywords,omitempty"`
	Tools          []string `json:"tools,omitempty"`
	Vertical       string   `json:"vertical,omitempty"`
}

// NewRoleHandler creates a role handler
func NewRoleHandler(registry *agent.Registry, logger *zap.Logger) *RoleHandler {
	return &RoleHandler{registry: registry, logger: logger}
}

// HandleListRoles lists all registered roles
// @Summary List roles
// @Tags role
// @Produce json
// @Success 200 {object} Response{data=[]RoleInfo} "Role list"
// @Router /v1/roles [get]
func (h *RoleHandler) HandleListRoles(w http.ResponseWriter, r *http.Request) {
	names := h.registry.List()
	result := make([]RoleInfo, 0, len(names))
	for _, name := range names {
		role, ok := h.registry.Get(name)
		if !ok {
			continue
		}
		result = append(result, toRoleInfo(role))
	}

	WriteSuccess(w, result)
}

// HandleGetRole gets a single role's definition
// @Summary Get role
// @Tags role
// @Produce json
// @Param id path string true "Role name"
// @Success 200 {object} Response{data=RoleInfo} "Role info"
// @Failure 404 {object} Response "Role not found"
// @Router /v1/roles/{id} [get]
func (h *RoleHandler) HandleGetRole(w http.ResponseWriter, r *http.Request) {
	name := extractPathID(r, "/v1/roles/")
	if name == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "role name is required", h.logger)
		return
	}

	role, ok := h.registry.Get(name)
	if !ok {
		WriteError(w, types.NewRoleNotFoundError(name), h.logger)
		return
	}

	WriteSuccess(w, toRoleInfo(role))
}

// HandleRegisterRole registers a custom role at runtime
// @Summary Register role
// @Tags role
// @Accept json
// @Produce json
// @Success 200 {object} Response{data=RoleInfo} "Registered role"
// @Failure 400 {object} Response "Invalid request"
// @Router /v1/roles [post]
func (h *RoleHandler) HandleRegisterRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRegisterRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.PromptTemplate) == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"name and prompt_template are required", h.logger)
		return
	}

	role := agent.Role{
		Name:           req.Name,
		Description:    req.Description,
		PromptTemplate: req.PromptTemplate,
		Keywords:       req.Keywords,
		Tools:          req.Tools,
		Vertical:       req.Vertical,
	}
	h.registry.Register(role)

	h.logger.Info("role registered via API", zap.String("role", req.Name))
	WriteSuccess(w, toRoleInfo(role))
}

func toRoleInfo(role agent.Role) RoleInfo {
	return RoleInfo{
		Name:        role.Name,
		Description: role.Description,
		Keywords:    role.Keywords,
		Tools:       role.Tools,
		Vertical:    role.Vertical,
	}
}
