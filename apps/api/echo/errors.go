package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/tutorke/darasa/core"
	"github.com/tutorke/darasa/core/meeting"
	"github.com/tutorke/darasa/core/registration"
	"github.com/tutorke/darasa/core/student"
)

var (
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errVisitNotFound        = echo.NewHTTPError(http.StatusNotFound, "visit not found or expired")
	errAlreadyRegistered    = echo.NewHTTPError(http.StatusConflict, "this phone number is already registered for this session")
	errLinkUnavailable      = echo.NewHTTPError(http.StatusConflict, "the class link is not available; please contact your teacher")
	errStoreUnavailable     = echo.NewHTTPError(http.StatusServiceUnavailable, "registration is temporarily unavailable; please try again")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if herr, ok := sentinelHTTPError(origErr); ok {
				code = herr.Code
				message = herr.Message
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// sentinelHTTPError maps domain sentinel errors to their HTTP renditions.
func sentinelHTTPError(err error) (*echo.HTTPError, bool) {
	switch err {
	case core.ErrPermissionDenied:
		return errAlreadyRegistered, true
	case core.ErrUnavailable:
		return errStoreUnavailable, true
	case student.ErrNotFound, student.ErrInvalidSession:
		return errHttpNotFound, true
	case registration.ErrVisitNotFound:
		return errVisitNotFound, true
	case registration.ErrInvalidTransition:
		return echo.NewHTTPError(http.StatusConflict, err.Error()), true
	case meeting.ErrNotConfigured, meeting.ErrInvalidLink:
		return errLinkUnavailable, true
	}
	return nil, false
}
