package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/errcode"
	"github.com/trezcool/schulportal/services/backend"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "admin not authenticated")
	errNoOperation   = echo.NewHTTPError(http.StatusNotFound, "no bulk operation")
	errNotComplete   = echo.NewHTTPError(http.StatusConflict, "bulk operation not complete")
	errNoSessionInCx = errors.New("session not found in echo.Context")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(deps ServerDeps) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.TranslateValidationErrors(origErr, deps.Translator)
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
		case *core.ArgumentError:
			code = http.StatusBadRequest
			message = origErr.Error()
		case *errcode.Error:
			code = http.StatusConflict
			message = codedMessage(deps, ctx, origErr.Code)
		case *backendsvc.ResponseError:
			code = origErr.Status
			if code < http.StatusBadRequest || code >= http.StatusInternalServerError {
				code = http.StatusBadGateway
			}
			message = codedMessage(deps, ctx, errcode.Extract(origErr))
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var admin core.Admin
			if s, sErr := getContextSession(ctx); sErr == nil {
				admin = s.Admin
			}
			deps.Logger.Error(msg, errors.Wrap(err, msg), admin)
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
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

func codedMessage(deps ServerDeps, ctx echo.Context, code string) echo.Map {
	return echo.Map{"code": code, "error": deps.ErrorCodes.Translate(code, requestLocale(ctx, deps.Conf))}
}
