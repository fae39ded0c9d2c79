package handler

import (
	"net/http"

	"github.com/haatos/mybucketapp/internal/service"
	"github.com/labstack/echo/v4"
)

func SetupDeployRoutes(g *echo.Group, deployService service.DeployServicer) {
	h := NewDeployHandler(deployService)
	g.GET("/:env/diff", h.GetDiff)
	g.GET("/:env/deployments", h.GetDeployments)
}

type DeployHandler struct {
	deployService service.DeployServicer
}

func NewDeployHandler(deployService service.DeployServicer) *DeployHandler {
	return &DeployHandler{deployService}
}

func (h *DeployHandler) GetDiff(c echo.Context) error {
	dp := new(DiffParams)
	if err := c.Bind(dp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid diff parameters")
	}

	diff := h.deployService.Diff
	if dp.Local {
		diff = h.deployService.DiffLocal
	}
	diffs, err := diff(c.Request().Context(), dp.Environment, dp.Stacks...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, diffs)
}

func (h *DeployHandler) GetDeployments(c echo.Context) error {
	lp := new(ListDeploymentsParams)
	if err := c.Bind(lp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid deployment parameters")
	}
	deployments, err := h.deployService.ListDeployments(
		c.Request().Context(), lp.Environment, lp.Limit,
	)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deployments)
}
