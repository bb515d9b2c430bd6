package api

import (
	"shared-menu/internal/apperrors"
	"shared-menu/internal/clipper"
	"shared-menu/internal/dish"

	"github.com/labstack/echo/v4"
)

type dishHandler struct {
	dishes    *dish.Repository
	suggester *dish.Suggester
	clipper   *clipper.Clipper
}

type wishRequest struct {
	Wished *bool `json:"wished" validate:"required"`
}

type suggestRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type importRequest struct {
	URL  string `json:"url" validate:"required,url"`
	Side string `json:"side" validate:"required,oneof=male female"`
}

func (h *dishHandler) ListBySide(c echo.Context) error {
	side, err := dish.ParseSide(c.Param("side"))
	if err != nil {
		return Error(c, err)
	}

	dishes, err := h.dishes.ListBySide(c.Request().Context(), side)
	if err != nil {
		return Error(c, apperrors.Internal("failed to list dishes", err))
	}
	return Success(c, dishes)
}

func (h *dishHandler) Create(c echo.Context) error {
	side, err := dish.ParseSide(c.Param("side"))
	if err != nil {
		return Error(c, err)
	}

	var in dish.Input
	if err := c.Bind(&in); err != nil {
		return Error(c, apperrors.BadRequest("invalid request body", err))
	}

	d, err := h.dishes.Create(c.Request().Context(), side, in)
	if err != nil {
		return Error(c, err)
	}
	return Created(c, d)
}

func (h *dishHandler) Get(c echo.Context) error {
	d, err := h.dishes.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return Error(c, err)
	}
	return Success(c, d)
}

func (h *dishHandler) Update(c echo.Context) error {
	side, err := dish.ParseSide(c.QueryParam("side"))
	if err != nil {
		return Error(c, err)
	}

	var in dish.Input
	if err := c.Bind(&in); err != nil {
		return Error(c, apperrors.BadRequest("invalid request body", err))
	}

	d, err := h.dishes.Update(c.Request().Context(), side, c.Param("id"), in)
	if err != nil {
		return Error(c, err)
	}
	return Success(c, d)
}

func (h *dishHandler) SetWished(c echo.Context) error {
	side, err := dish.ParseSide(c.QueryParam("side"))
	if err != nil {
		return Error(c, err)
	}

	var req wishRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, apperrors.BadRequest("invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return Error(c, err)
	}

	d, err := h.dishes.SetWished(c.Request().Context(), side, c.Param("id"), *req.Wished)
	if err != nil {
		return Error(c, err)
	}
	return Success(c, d)
}

func (h *dishHandler) ToggleWish(c echo.Context) error {
	side, err := dish.ParseSide(c.QueryParam("side"))
	if err != nil {
		return Error(c, err)
	}

	d, err := h.dishes.ToggleWish(c.Request().Context(), side, c.Param("id"))
	if err != nil {
		return Error(c, err)
	}
	return Success(c, d)
}

func (h *dishHandler) SuggestIngredients(c echo.Context) error {
	var req suggestRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, apperrors.BadRequest("invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return Error(c, err)
	}

	ingredients, err := h.suggester.SuggestIngredients(c.Request().Context(), req.Name, req.Description)
	if err != nil {
		return Error(c, apperrors.GenerationFailed(err))
	}
	return Success(c, map[string]interface{}{"ingredients": ingredients})
}

// Import clips a dish from a web page and stores it for the given side.
func (h *dishHandler) Import(c echo.Context) error {
	var req importRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, apperrors.BadRequest("invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return Error(c, err)
	}
	side, err := dish.ParseSide(req.Side)
	if err != nil {
		return Error(c, err)
	}

	ctx := c.Request().Context()
	in, err := h.clipper.ClipURL(ctx, req.URL)
	if err != nil {
		return Error(c, apperrors.BadRequest("failed to import a dish from that page", err))
	}

	d, err := h.dishes.Create(ctx, side, in)
	if err != nil {
		return Error(c, err)
	}
	return Created(c, d)
}
