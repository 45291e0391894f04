package echoapi

import (
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/workflow"
)

type (
	workflowApi struct {
		validate   *validator.Validate
		translator ut.Translator
	}

	workflowState struct {
		workflow.State
		OrganisationTitle string `json:"organisationTitle"`
		RolleTitle        string `json:"rolleTitle"`
		KlasseTitle       string `json:"klasseTitle"`
	}

	selection struct {
		ID string `json:"id"`
	}

	searchRequest struct {
		Field  string `json:"field" validate:"required,oneof=organisation rolle klasse"`
		Search string `json:"search"`
	}
)

func registerWorkflowAPI(g *echo.Group, deps ServerDeps) {
	api := workflowApi{validate: deps.Validate, translator: deps.Translator}

	wg := g.Group("/workflow")
	wg.GET("", api.retrieve)
	wg.DELETE("", api.reset)
	wg.POST("/load", api.load)
	wg.POST("/organisation", api.selectOrganisation)
	wg.POST("/rolle", api.selectRolle)
	wg.POST("/klasse", api.selectKlasse)
	wg.POST("/search", api.search)
}

func newWorkflowState(s workflow.State) workflowState {
	return workflowState{
		State:             s,
		OrganisationTitle: s.OrganisationTitle(),
		RolleTitle:        s.RolleTitle(),
		KlasseTitle:       s.KlasseTitle(),
	}
}

func (api *workflowApi) workflow(ctx echo.Context) (*workflow.Workflow, error) {
	s, err := getContextSession(ctx)
	if err != nil {
		return nil, err
	}
	return s.Workflow, nil
}

func (api *workflowApi) bindSelection(ctx echo.Context) (string, error) {
	var data selection
	if err := ctx.Bind(&data); err != nil {
		return "", errors.Wrap(err, "binding to selection")
	}
	return core.CleanString(data.ID), nil
}

// Handlers

func (api *workflowApi) retrieve(ctx echo.Context) error {
	wf, err := api.workflow(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newWorkflowState(wf.Snapshot()))
}

func (api *workflowApi) reset(ctx echo.Context) error {
	wf, err := api.workflow(ctx)
	if err != nil {
		return err
	}
	wf.Reset()
	return ctx.NoContent(http.StatusNoContent)
}

func (api *workflowApi) load(ctx echo.Context) error {
	wf, err := api.workflow(ctx)
	if err != nil {
		return err
	}
	wf.Load(ctx.Request().Context())
	return ctx.JSON(http.StatusOK, newWorkflowState(wf.Snapshot()))
}

func (api *workflowApi) selectOrganisation(ctx echo.Context) error {
	wf, err := api.workflow(ctx)
	if err != nil {
		return err
	}
	id, err := api.bindSelection(ctx)
	if err != nil {
		return err
	}
	wf.SelectOrganisation(ctx.Request().Context(), id)
	return ctx.JSON(http.StatusOK, newWorkflowState(wf.Snapshot()))
}

func (api *workflowApi) selectRolle(ctx echo.Context) error {
	wf, err := api.workflow(ctx)
	if err != nil {
		return err
	}
	id, err := api.bindSelection(ctx)
	if err != nil {
		return err
	}
	wf.SelectRolle(ctx.Request().Context(), id)
	return ctx.JSON(http.StatusOK, newWorkflowState(wf.Snapshot()))
}

func (api *workflowApi) selectKlasse(ctx echo.Context) error {
	wf, err := api.workflow(ctx)
	if err != nil {
		return err
	}
	id, err := api.bindSelection(ctx)
	if err != nil {
		return err
	}
	wf.SelectKlasse(id)
	return ctx.JSON(http.StatusOK, newWorkflowState(wf.Snapshot()))
}

func (api *workflowApi) search(ctx echo.Context) error {
	wf, err := api.workflow(ctx)
	if err != nil {
		return err
	}
	var data searchRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to searchRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	var scheduled bool
	switch data.Field {
	case "organisation":
		scheduled = wf.SearchOrganisationen(data.Search)
	case "rolle":
		scheduled = wf.SearchRollen(data.Search)
	case "klasse":
		scheduled = wf.SearchKlassen(data.Search)
	}
	return ctx.JSON(http.StatusAccepted, echo.Map{"scheduled": scheduled})
}

// requestLocale returns the primary language of the request, or the configured locale.
func requestLocale(ctx echo.Context, conf *core.Config) string {
	accept := ctx.Request().Header.Get("Accept-Language")
	if accept != "" {
		tag := strings.SplitN(strings.SplitN(accept, ",", 2)[0], ";", 2)[0]
		tag = strings.SplitN(strings.TrimSpace(tag), "-", 2)[0]
		if tag != "" && tag != "*" {
			return strings.ToLower(tag)
		}
	}
	return conf.Locale
}
