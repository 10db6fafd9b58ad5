package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-gateway/internal/menu"
	"github.com/iliyamo/auth-gateway/internal/middleware"
)

// MenuHandler serves the resolved menu forest for the caller.
type MenuHandler struct {
	Resolver *menu.Resolver
}

func NewMenuHandler(r *menu.Resolver) *MenuHandler { return &MenuHandler{Resolver: r} }

// Menus returns the ordered menu forest visible to the authenticated
// user. A user without roles gets an empty list.
func (h *MenuHandler) Menus(c echo.Context) error {
	username, _ := c.Get(middleware.ContextUsername).(string)
	if username == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	forest, err := h.Resolver.MenusForUser(ctx, username)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resolve menus failed"})
	}
	return c.JSON(http.StatusOK, forest)
}
