package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tutorke/darasa/core"
	"github.com/tutorke/darasa/core/country"
	"github.com/tutorke/darasa/core/phone"
	"github.com/tutorke/darasa/core/registration"
	"github.com/tutorke/darasa/core/student"
)

// portalApi is the un-authed student-facing surface. Every endpoint except
// the directory and visit open operates on a visit id handed out by open.
type portalApi struct {
	visits *registration.Registry
}

func registerPortalAPI(g *echo.Group, visits *registration.Registry) {
	api := portalApi{visits: visits}

	pg := g.Group("/portal")
	pg.GET("/countries", api.countries)
	pg.POST("/:session/visits", api.open)

	vg := pg.Group("/visits/:id")
	vg.GET("", api.snapshot)
	vg.DELETE("", api.close)
	vg.POST("/check-in", api.checkIn)
	vg.POST("/register", api.register)
	vg.POST("/receipt", api.submitReceipt)
	vg.POST("/join", api.joinNow)
	vg.POST("/reset", api.reset)
}

// Handlers

func (api *portalApi) countries(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, country.Countries)
}

func (api *portalApi) open(ctx echo.Context) error {
	id, flow, err := api.visits.Open(ctx.Param("session"))
	if err != nil {
		return errors.Wrap(err, "opening visit")
	}
	return ctx.JSON(http.StatusCreated, VisitResponse{ID: id, Snapshot: flow.Snapshot()})
}

func (api *portalApi) flow(ctx echo.Context) (*registration.Flow, error) {
	flow, err := api.visits.Get(ctx.Param("id"))
	if err != nil {
		return nil, errors.Wrap(err, "getting visit")
	}
	return flow, nil
}

func (api *portalApi) snapshot(ctx echo.Context) error {
	flow, err := api.flow(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, flow.Snapshot())
}

func (api *portalApi) checkIn(ctx echo.Context) error {
	var data CheckInRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckInRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	// the canonical number is derived server-side from the directory entry
	c, ok := country.ByCode(data.Country)
	if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: "country", Error: "unknown country"})
	}
	in := phone.NewInput()
	in.SelectCountry(c)
	in.EnterDigits(data.PhoneNumber)
	if !in.Valid {
		return core.NewValidationError(nil,
			core.FieldError{Field: "phoneNumber", Error: "not a valid phone number for " + c.Name})
	}

	flow, err := api.flow(ctx)
	if err != nil {
		return err
	}
	if err := flow.CheckIn(ctx.Request().Context(), in.FullNumber()); err != nil {
		return errors.Wrap(err, "checking in")
	}
	return ctx.JSON(http.StatusOK, flow.Snapshot())
}

func (api *portalApi) register(ctx echo.Context) error {
	var data student.Registration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}

	flow, err := api.flow(ctx)
	if err != nil {
		return err
	}
	// the flow validates the form itself so a failure never reaches the store
	if err := flow.Register(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "registering")
	}
	return ctx.JSON(http.StatusOK, flow.Snapshot())
}

func (api *portalApi) submitReceipt(ctx echo.Context) error {
	var data ReceiptRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReceiptRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	flow, err := api.flow(ctx)
	if err != nil {
		return err
	}
	if err := flow.SubmitReceipt(ctx.Request().Context(), data.ReceiptMessage); err != nil {
		return errors.Wrap(err, "submitting receipt")
	}
	return ctx.JSON(http.StatusOK, flow.Snapshot())
}

func (api *portalApi) joinNow(ctx echo.Context) error {
	flow, err := api.flow(ctx)
	if err != nil {
		return err
	}
	if err := flow.JoinNow(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "joining now")
	}
	return ctx.JSON(http.StatusOK, flow.Snapshot())
}

func (api *portalApi) reset(ctx echo.Context) error {
	flow, err := api.flow(ctx)
	if err != nil {
		return err
	}
	flow.UseDifferentNumber()
	return ctx.JSON(http.StatusOK, flow.Snapshot())
}

func (api *portalApi) close(ctx echo.Context) error {
	api.visits.Close(ctx.Param("id"))
	return ctx.NoContent(http.StatusNoContent)
}
