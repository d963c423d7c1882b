package identity

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vatsl808/appointix/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the unauthenticated account endpoints.
func (h *Handler) RegisterRoutes(public *echo.Group) {
	public.POST("/register", h.Register)
	public.POST("/login", h.Login)
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"message": strings.ToUpper(u.UserType[:1]) + u.UserType[1:] + " registered successfully!",
	})
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.Login(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, struct {
		Message string `json:"message"`
		*LoginResult
	}{Message: "Login successful!", LoginResult: res})
}
