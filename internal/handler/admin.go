package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-gateway/internal/model"
	"github.com/iliyamo/auth-gateway/internal/repository"
)

// AdminHandler exposes the management surface: role CRUD, menu
// resource CRUD, user activation and role assignment. All routes are
// guarded by RequireRole("ADMIN") in the router. These are thin
// screens over the same repositories the auth core uses.
type AdminHandler struct {
	Users     *repository.UserRepo
	Roles     *repository.RoleRepo
	Resources *repository.ResourceRepo
}

func NewAdminHandler(u *repository.UserRepo, r *repository.RoleRepo, res *repository.ResourceRepo) *AdminHandler {
	return &AdminHandler{Users: u, Roles: r, Resources: res}
}

// ----- DTOs -----

type roleReq struct {
	RoleName    string `json:"role_name"`
	Description string `json:"description"`
}
type roleResp struct {
	RoleID      int64  `json:"role_id"`
	RoleName    string `json:"role_name"`
	Description string `json:"description"`
}

type menuResourceReq struct {
	Pattern      string  `json:"resource_pattern"`
	HTTPMethod   *string `json:"http_method"`
	Description  *string `json:"description"`
	MenuName     *string `json:"menu_name"`
	MenuURL      *string `json:"menu_url"`
	IconName     *string `json:"icon_name"`
	ParentID     *int64  `json:"parent_resource_id"`
	DisplayOrder int     `json:"display_order"`
	IsGroup      bool    `json:"is_group"`
	UseYn        string  `json:"use_yn"`
}

type userAdminResp struct {
	Username          string   `json:"username"`
	Email             string   `json:"email"`
	UseYn             string   `json:"use_yn"`
	LoginFailureCount int      `json:"login_failure_count"`
	Roles             []string `json:"roles"`
}

func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// ----- Roles -----

func (h *AdminHandler) ListRoles(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	roles, err := h.Roles.FindAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list roles failed"})
	}
	out := make([]roleResp, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleResp{RoleID: r.ID, RoleName: r.Name, Description: r.Description})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) CreateRole(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RoleName) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role_name required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	role := &model.Role{Name: strings.TrimSpace(req.RoleName), Description: req.Description}
	if err := h.Roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "role already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create role failed"})
	}
	return c.JSON(http.StatusCreated, roleResp{RoleID: role.ID, RoleName: role.Name, Description: role.Description})
}

func (h *AdminHandler) UpdateRole(c echo.Context) error {
	id, ok := pathID(c, "roleId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Roles.UpdateDescription(ctx, id, req.Description); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no such role"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update role failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) DeleteRole(c echo.Context) error {
	id, ok := pathID(c, "roleId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Roles.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "role is still assigned"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete role failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- Menu resources -----

func (h *AdminHandler) ListMenuResources(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	resources, err := h.Resources.FindAllMenus(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list resources failed"})
	}
	return c.JSON(http.StatusOK, resources)
}

func (h *AdminHandler) CreateMenuResource(c echo.Context) error {
	var req menuResourceReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Pattern) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource_pattern required"})
	}
	useYn := req.UseYn
	if useYn == "" {
		useYn = "Y"
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res := &model.Resource{
		Type:         model.ResourceTypeMenu,
		Pattern:      req.Pattern,
		HTTPMethod:   req.HTTPMethod,
		Description:  req.Description,
		MenuName:     req.MenuName,
		MenuURL:      req.MenuURL,
		IconName:     req.IconName,
		ParentID:     req.ParentID,
		DisplayOrder: req.DisplayOrder,
		IsGroup:      req.IsGroup,
		UseYn:        useYn,
	}
	if err := h.Resources.Create(ctx, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create resource failed"})
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *AdminHandler) UpdateMenuResource(c echo.Context) error {
	id, ok := pathID(c, "resourceId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
	}
	var req menuResourceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	existing, err := h.Resources.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no such resource"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load resource failed"})
	}
	if existing.Type != model.ResourceTypeMenu {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no such resource"})
	}

	existing.Pattern = req.Pattern
	existing.HTTPMethod = req.HTTPMethod
	existing.Description = req.Description
	existing.MenuName = req.MenuName
	existing.MenuURL = req.MenuURL
	existing.IconName = req.IconName
	existing.ParentID = req.ParentID
	existing.DisplayOrder = req.DisplayOrder
	existing.IsGroup = req.IsGroup
	if req.UseYn != "" {
		existing.UseYn = req.UseYn
	}

	if err := h.Resources.Update(ctx, existing); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update resource failed"})
	}
	return c.JSON(http.StatusOK, existing)
}

func (h *AdminHandler) DeleteMenuResource(c echo.Context) error {
	id, ok := pathID(c, "resourceId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Resources.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete resource failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) MapResourceToRole(c echo.Context) error {
	roleID, ok1 := pathID(c, "roleId")
	resourceID, ok2 := pathID(c, "resourceId")
	if !ok1 || !ok2 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Resources.MapToRole(ctx, roleID, resourceID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "map resource failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) UnmapResourceFromRole(c echo.Context) error {
	roleID, ok1 := pathID(c, "roleId")
	resourceID, ok2 := pathID(c, "resourceId")
	if !ok1 || !ok2 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Resources.UnmapFromRole(ctx, roleID, resourceID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unmap resource failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- Users -----

func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.ListWithRoles(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list users failed"})
	}
	out := make([]userAdminResp, 0, len(users))
	for _, u := range users {
		roles := u.Roles
		if roles == nil {
			roles = []string{}
		}
		out = append(out, userAdminResp{
			Username:          u.Username,
			Email:             u.Email,
			UseYn:             u.UseYn,
			LoginFailureCount: u.LoginFailureCount,
			Roles:             roles,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) setUseYn(c echo.Context, useYn string) error {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.UpdateUseYn(ctx, username, useYn); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no such user"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update user failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) ActivateUser(c echo.Context) error   { return h.setUseYn(c, "Y") }
func (h *AdminHandler) DeactivateUser(c echo.Context) error { return h.setUseYn(c, "N") }

// UnlockUser clears the login-failure counter, the administrative
// escape hatch for the one-strike-from-lockout state.
func (h *AdminHandler) UnlockUser(c echo.Context) error {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.ResetLoginFailureCount(ctx, username); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unlock user failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) AssignRole(c echo.Context) error {
	username := strings.TrimSpace(c.Param("username"))
	roleID, ok := pathID(c, "roleId")
	if username == "" || !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid username or role id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Roles.AssignToUser(ctx, username, roleID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assign role failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) RemoveRole(c echo.Context) error {
	username := strings.TrimSpace(c.Param("username"))
	roleID, ok := pathID(c, "roleId")
	if username == "" || !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid username or role id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Roles.RemoveFromUser(ctx, username, roleID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove role failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
