package doctor

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vatsl808/appointix/internal/platform/apperr"
	"github.com/vatsl808/appointix/internal/platform/auth"
	"github.com/vatsl808/appointix/internal/platform/validate"
	"github.com/vatsl808/appointix/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the directory. public carries no authentication;
// api must already run auth.JWTMiddleware.
func (h *Handler) RegisterRoutes(public *echo.Group, api *echo.Group) {
	public.GET("/doctors", h.ListDoctors)

	api.GET("/doctors/:id", h.GetDoctor, auth.RequireRole(auth.RolePatient, auth.RoleDoctor))

	self := api.Group("/doctors/me", auth.RequireRole(auth.RoleDoctor))
	self.PUT("/availability", h.UpdateAvailability)
	self.PUT("/profile", h.UpdateProfile)
	self.POST("/profile-picture", h.UploadProfilePicture)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithLinks(c.Request().URL))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id := ID(c.Param("id"))
	if !validate.IsID(id.String()) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid doctor ID format")
	}
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	if p.IsDoctor() && ID(p.DoctorID) != id {
		return apperr.HTTPError(apperr.Forbidden("Doctors can only access their own profile."))
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func selfID(c echo.Context) ID {
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	return ID(p.DoctorID)
}

func (h *Handler) UpdateAvailability(c echo.Context) error {
	var a AvailabilitySchedule
	if err := c.Bind(&a); err != nil || a == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid availability data format. Expected a JSON object.")
	}
	changed, err := h.svc.UpdateAvailability(c.Request().Context(), selfID(c), a)
	if err != nil {
		return apperr.HTTPError(err)
	}
	if !changed {
		return c.JSON(http.StatusOK, map[string]string{"message": "Availability is already up to date."})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Availability updated successfully."})
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var u ProfileUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing profile data in request body.")
	}
	if u.Empty() {
		return c.JSON(http.StatusOK, map[string]string{"message": "No profile fields provided for update."})
	}
	contact, changed, err := h.svc.UpdateProfile(c.Request().Context(), selfID(c), u)
	if err != nil {
		return apperr.HTTPError(err)
	}
	if !changed {
		return c.JSON(http.StatusOK, map[string]string{"message": "Profile data is already up to date."})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Profile updated successfully.",
		"profile": contact,
	})
}

func (h *Handler) UploadProfilePicture(c echo.Context) error {
	fh, err := c.FormFile("profilePic")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No profile picture file part ('profilePic') in request.")
	}
	if fh.Filename == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "No selected file.")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read uploaded file")
	}
	defer f.Close()

	url, err := h.svc.SetProfilePicture(c.Request().Context(), selfID(c), fh.Filename, f)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message":           "Profile picture updated",
		"profilePictureUrl": url,
	})
}
