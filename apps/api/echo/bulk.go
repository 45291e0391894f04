package echoapi

import (
	"context"
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/bulk"
	"github.com/trezcool/schulportal/core/session"
)

type (
	bulkApi struct {
		deps     ServerDeps
		validate *validator.Validate
	}

	bulkRequest struct {
		Type           string   `json:"type" validate:"notblank"`
		TargetIDs      []string `json:"targetIds" validate:"required,min=1"`
		SuccessMessage string   `json:"successMessage"`
		bulk.Params
	}

	reportRequest struct {
		Email string `json:"email" validate:"required,email"`
	}
)

func registerBulkAPI(g *echo.Group, deps ServerDeps) {
	api := bulkApi{deps: deps, validate: deps.Validate}

	bg := g.Group("/bulk")
	bg.GET("", api.retrieve)
	bg.POST("", api.start)
	bg.DELETE("", api.reset)
	bg.GET("/errors", api.errorList)
	bg.GET("/errors.csv", api.errorsCSV)
	bg.GET("/passwords.csv", api.passwordsCSV)
	bg.POST("/report", api.report)
}

func (api *bulkApi) reporter(ctx echo.Context, s *session.Session) *bulk.Reporter {
	return bulk.NewReporter(s.Backend, api.deps.ErrorCodes, requestLocale(ctx, api.deps.Conf))
}

// completed returns the session's last operation, once it has finished.
func (api *bulkApi) completed(ctx echo.Context) (*session.Session, bulk.Operation, error) {
	s, err := getContextSession(ctx)
	if err != nil {
		return nil, bulk.Operation{}, err
	}
	op := s.Bulk.Store().Snapshot()
	if op.ID == "" {
		return nil, op, errNoOperation
	}
	if !op.Complete {
		return nil, op, errNotComplete
	}
	return s, op, nil
}

func attachment(ctx echo.Context, filename, content string) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(content))
}

// Handlers

func (api *bulkApi) retrieve(ctx echo.Context) error {
	s, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s.Bulk.Store().Snapshot())
}

func (api *bulkApi) start(ctx echo.Context) error {
	s, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	var data bulkRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to bulkRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	typ, err := bulk.ParseType(data.Type)
	if err != nil {
		return core.NewArgumentError(err.Error())
	}

	action, err := bulk.NewAction(ctx.Request().Context(), s.Backend, typ, data.Params)
	if err != nil {
		return err
	}
	job, err := s.Bulk.Prepare(typ, data.TargetIDs, action, data.SuccessMessage)
	if err != nil {
		return err
	}

	// the operation outlives the request
	go job.Run(context.Background())

	return ctx.JSON(http.StatusAccepted, s.Bulk.Store().Snapshot())
}

func (api *bulkApi) reset(ctx echo.Context) error {
	s, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	s.Bulk.Store().Reset()
	return ctx.NoContent(http.StatusNoContent)
}

func (api *bulkApi) errorList(ctx echo.Context) error {
	s, op, err := api.completed(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.reporter(ctx, s).Errors(ctx.Request().Context(), op))
}

func (api *bulkApi) errorsCSV(ctx echo.Context) error {
	s, op, err := api.completed(ctx)
	if err != nil {
		return err
	}
	return attachment(ctx, "fehler.csv", api.reporter(ctx, s).ErrorsCSV(ctx.Request().Context(), op))
}

func (api *bulkApi) passwordsCSV(ctx echo.Context) error {
	s, op, err := api.completed(ctx)
	if err != nil {
		return err
	}
	if op.Type != bulk.TypeResetPassword {
		return core.NewArgumentError("no passwords for " + string(op.Type))
	}
	return attachment(ctx, "passwoerter.csv", api.reporter(ctx, s).PasswordsCSV(ctx.Request().Context(), op))
}

func (api *bulkApi) report(ctx echo.Context) error {
	s, op, err := api.completed(ctx)
	if err != nil {
		return err
	}

	var data reportRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to reportRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	to := mail.Address{Name: s.Admin.Username, Address: data.Email}
	msg, err := api.reporter(ctx, s).ReportMessage(ctx.Request().Context(), op, to)
	if err != nil {
		return err
	}
	api.deps.EmailSvc.SendMessages(msg)
	return ctx.NoContent(http.StatusAccepted)
}
