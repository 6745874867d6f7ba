package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tutorke/darasa/core"
	"github.com/tutorke/darasa/core/meeting"
	"github.com/tutorke/darasa/core/student"
)

// dashboardApi is the teacher-facing surface. Everything except login sits
// behind the JWT middleware.
type dashboardApi struct {
	students *student.Service
	meetings *meeting.Service
	conf     *core.Config
}

func registerDashboardAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	students *student.Service,
	meetings *meeting.Service,
	conf *core.Config,
) {
	api := dashboardApi{students: students, meetings: meetings, conf: conf}

	dg := g.Group("/dashboard")
	dg.POST("/login", api.login)

	ag := dg.Group("", jwt)
	ag.GET("/links", api.links)
	ag.PUT("/links/:session", api.setLink)

	sg := ag.Group("/:session/students")
	sg.GET("", api.query)
	sg.GET("/stream", api.stream)

	pg := sg.Group("/:phone")
	pg.PUT("", api.update)
	pg.DELETE("", api.destroy)
	pg.POST("/block", api.block)
	pg.POST("/unblock", api.unblock)
	pg.POST("/receipt/approve", api.approveReceipt)
	pg.POST("/receipt/decline", api.declineReceipt)
}

// Handlers

func (api *dashboardApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := authenticateTeacher(data.Email, data.Password, api.conf)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *dashboardApi) query(ctx echo.Context) error {
	roster, err := api.students.Query(ctx.Request().Context(), ctx.Param("session"))
	if err != nil {
		return errors.Wrap(err, "querying roster")
	}
	if roster == nil {
		roster = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, roster)
}

// stream pushes the full ordered roster as a server-sent event on every
// store-side change, starting with the current one. The connection stays open
// until the client goes away.
func (api *dashboardApi) stream(ctx echo.Context) error {
	res := ctx.Response()

	// the SSE headers are only committed on the first delivery, which cannot
	// happen before the subscription is accepted; an invalid session still
	// renders through the error handler
	var (
		mu    sync.Mutex
		start sync.Once
	)
	push := func(roster []student.Student) {
		data, err := json.Marshal(roster)
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		start.Do(func() {
			res.Header().Set(echo.HeaderContentType, "text/event-stream")
			res.Header().Set("Cache-Control", "no-cache")
			res.Header().Set("Connection", "keep-alive")
			res.WriteHeader(http.StatusOK)
		})
		fmt.Fprintf(res, "data: %s\n\n", data)
		res.Flush()
	}

	cancel, err := api.students.Subscribe(ctx.Request().Context(), ctx.Param("session"), push)
	if err != nil {
		return errors.Wrap(err, "subscribing to roster")
	}
	defer cancel()

	<-ctx.Request().Context().Done()
	return nil
}

func (api *dashboardApi) update(ctx echo.Context) error {
	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	std, err := api.students.Update(ctx.Request().Context(), ctx.Param("session"), ctx.Param("phone"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *dashboardApi) destroy(ctx echo.Context) error {
	if err := api.students.Delete(ctx.Request().Context(), ctx.Param("session"), ctx.Param("phone")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *dashboardApi) block(ctx echo.Context) error {
	var data BlockRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BlockRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	session, phoneNum := ctx.Param("session"), ctx.Param("phone")
	if err := api.students.Block(ctx.Request().Context(), session, phoneNum, data.Reason); err != nil {
		return errors.Wrap(err, "blocking student")
	}
	return api.refreshed(ctx, session, phoneNum)
}

func (api *dashboardApi) unblock(ctx echo.Context) error {
	session, phoneNum := ctx.Param("session"), ctx.Param("phone")
	if err := api.students.Unblock(ctx.Request().Context(), session, phoneNum); err != nil {
		return errors.Wrap(err, "unblocking student")
	}
	return api.refreshed(ctx, session, phoneNum)
}

func (api *dashboardApi) approveReceipt(ctx echo.Context) error {
	session, phoneNum := ctx.Param("session"), ctx.Param("phone")
	if err := api.students.ApproveReceipt(ctx.Request().Context(), session, phoneNum); err != nil {
		return errors.Wrap(err, "approving receipt")
	}
	return api.refreshed(ctx, session, phoneNum)
}

func (api *dashboardApi) declineReceipt(ctx echo.Context) error {
	session, phoneNum := ctx.Param("session"), ctx.Param("phone")
	if err := api.students.DeclineReceipt(ctx.Request().Context(), session, phoneNum); err != nil {
		return errors.Wrap(err, "declining receipt")
	}
	return api.refreshed(ctx, session, phoneNum)
}

func (api *dashboardApi) refreshed(ctx echo.Context, session, phoneNum string) error {
	std, err := api.students.Get(ctx.Request().Context(), session, phoneNum)
	if err != nil {
		return errors.Wrap(err, "refreshing student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *dashboardApi) links(ctx echo.Context) error {
	links, err := api.meetings.Links(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting meeting links")
	}
	return ctx.JSON(http.StatusOK, links)
}

func (api *dashboardApi) setLink(ctx echo.Context) error {
	var data SetLinkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetLinkRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.meetings.SetLink(ctx.Request().Context(), ctx.Param("session"), data.URL); err != nil {
		if errors.Cause(err) == meeting.ErrInvalidLink {
			return core.NewValidationError(nil,
				core.FieldError{Field: "url", Error: "must be a valid class meeting link"})
		}
		return errors.Wrap(err, "setting meeting link")
	}

	links, err := api.meetings.Links(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting meeting links")
	}
	return ctx.JSON(http.StatusOK, links)
}
