package appointment

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vatsl808/appointix/internal/domain/doctor"
	"github.com/vatsl808/appointix/internal/domain/identity"
	"github.com/vatsl808/appointix/internal/platform/apperr"
	"github.com/vatsl808/appointix/internal/platform/auth"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc           *Service
	writeWorkbook func(w io.Writer, list []*Appointment) error
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, writeWorkbook: WriteWorkbook}
}

// RegisterRoutes mounts the ledger on api, which must already run
// auth.JWTMiddleware.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	patient := auth.RequireRole(auth.RolePatient)
	doc := auth.RequireRole(auth.RoleDoctor)

	api.POST("/appointments", h.Book, patient)
	api.GET("/appointments/patient", h.ListForPatient, patient)
	api.GET("/appointments/doctor", h.ListForDoctor, doc)
	api.GET("/appointments/doctor/export", h.ExportForDoctor, doc)
	api.DELETE("/appointments/:id", h.Cancel, patient)
	api.PUT("/appointments/:id", h.Reschedule, patient)
	api.PUT("/appointments/:id/complete", h.Complete, doc)

	api.GET("/doctors/:id/availability", h.CheckAvailability, auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
}

func principal(c echo.Context) auth.Principal {
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	return p
}

func (h *Handler) Book(c echo.Context) error {
	var in BookInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Book(c.Request().Context(), identity.UserID(principal(c).UserID), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":     "Appointment booked successfully!",
		"appointment": a.View(),
	})
}

func (h *Handler) ListForPatient(c echo.Context) error {
	list, err := h.svc.ListByPatient(c.Request().Context(), identity.UserID(principal(c).UserID))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, PatientViews(list))
}

func (h *Handler) ListForDoctor(c echo.Context) error {
	list, err := h.svc.ListByDoctor(c.Request().Context(), doctor.ID(principal(c).DoctorID))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, DoctorViews(list))
}

func (h *Handler) ExportForDoctor(c echo.Context) error {
	list, err := h.svc.ListByDoctor(c.Request().Context(), doctor.ID(principal(c).DoctorID))
	if err != nil {
		return apperr.HTTPError(err)
	}
	// Nothing is written to the response until the workbook is complete.
	var buf bytes.Buffer
	if err := h.writeWorkbook(&buf, list); err != nil {
		return apperr.HTTPError(err)
	}
	name := "appointments-" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) Cancel(c echo.Context) error {
	err := h.svc.Cancel(c.Request().Context(), ID(c.Param("id")), identity.UserID(principal(c).UserID))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Appointment cancelled successfully."})
}

func (h *Handler) Reschedule(c echo.Context) error {
	var in RescheduleInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, changed, err := h.svc.Reschedule(c.Request().Context(), ID(c.Param("id")), identity.UserID(principal(c).UserID), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	if !changed {
		return c.JSON(http.StatusOK, map[string]string{"message": "Appointment time was not changed."})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":     "Appointment rescheduled successfully!",
		"appointment": a.View(),
	})
}

func (h *Handler) Complete(c echo.Context) error {
	err := h.svc.Complete(c.Request().Context(), ID(c.Param("id")), doctor.ID(principal(c).DoctorID))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Appointment marked as complete."})
}

func (h *Handler) CheckAvailability(c echo.Context) error {
	ok := h.svc.CheckSlot(c.Request().Context(), doctor.ID(c.Param("id")), c.QueryParam("date"), c.QueryParam("time"))
	return c.JSON(http.StatusOK, map[string]bool{"available": ok})
}
