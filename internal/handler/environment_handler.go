package handler

import (
	"net/http"

	"github.com/haatos/mybucketapp/internal/service"
	"github.com/labstack/echo/v4"
)

func SetupEnvironmentRoutes(g *echo.Group, synthService service.SynthServicer) {
	h := NewEnvironmentHandler(synthService)
	g.GET("", h.GetEnvironments)
	g.GET("/:env/stacks", h.GetStacks)
	g.GET("/:env/stacks/:stack/template", h.GetTemplate)
	g.GET("/:env/synths", h.GetSynths)
	g.POST("/:env/synths", h.PostSynths)
	g.GET("/:env/synths/:id", h.GetSynth)
	g.DELETE("/:env/synths/:id", h.DeleteSynth)
}

type EnvironmentHandler struct {
	synthService service.SynthServicer
}

func NewEnvironmentHandler(synthService service.SynthServicer) *EnvironmentHandler {
	return &EnvironmentHandler{synthService}
}

func GetHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *EnvironmentHandler) GetEnvironments(c echo.Context) error {
	return c.JSON(http.StatusOK, h.synthService.ListEnvironments())
}

type StacksResponse struct {
	Environment string   `json:"environment"`
	Account     string   `json:"account"`
	Region      string   `json:"region"`
	Stacks      []string `json:"stacks"`
}

func (h *EnvironmentHandler) GetStacks(c echo.Context) error {
	ep := new(EnvironmentParams)
	if err := c.Bind(ep); err != nil {
		return newError(err, http.StatusBadRequest, "invalid environment")
	}
	ds, err := h.synthService.DescriptorSet(ep.Environment)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, StacksResponse{
		Environment: ds.Environment.Name,
		Account:     ds.Environment.Account,
		Region:      ds.Environment.Region,
		Stacks:      ds.StackNames(),
	})
}

func (h *EnvironmentHandler) GetTemplate(c echo.Context) error {
	tp := new(TemplateParams)
	if err := c.Bind(tp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid template parameters")
	}
	t, err := h.synthService.Template(tp.Environment, tp.Stack)
	if err != nil {
		return err
	}

	switch tp.Format {
	case "", "json":
		b, err := t.Bytes()
		if err != nil {
			return err
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, b)
	case "yaml":
		b, err := t.YAML()
		if err != nil {
			return err
		}
		return c.Blob(http.StatusOK, "application/yaml", b)
	default:
		return newError(nil, http.StatusBadRequest, "format must be json or yaml")
	}
}

func (h *EnvironmentHandler) GetSynths(c echo.Context) error {
	ep := new(EnvironmentParams)
	if err := c.Bind(ep); err != nil {
		return newError(err, http.StatusBadRequest, "invalid environment")
	}
	synths, err := h.synthService.ListSynths(c.Request().Context(), ep.Environment)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, synths)
}

func (h *EnvironmentHandler) PostSynths(c echo.Context) error {
	sp := new(StacksParams)
	if err := c.Bind(sp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid synth parameters")
	}
	synths, err := h.synthService.Synthesize(c.Request().Context(), sp.Environment, sp.Stacks...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, synths)
}

func (h *EnvironmentHandler) GetSynth(c echo.Context) error {
	sp := new(SynthParams)
	if err := c.Bind(sp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid synth id")
	}
	synth, err := h.synthService.GetSynth(c.Request().Context(), sp.Environment, sp.SynthID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, synth)
}

func (h *EnvironmentHandler) DeleteSynth(c echo.Context) error {
	sp := new(SynthParams)
	if err := c.Bind(sp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid synth id")
	}
	if err := h.synthService.DeleteSynth(c.Request().Context(), sp.Environment, sp.SynthID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
