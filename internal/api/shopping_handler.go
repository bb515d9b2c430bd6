package api

import (
	"bytes"
	"net/http"

	"shared-menu/internal/apperrors"
	"shared-menu/internal/dish"
	"shared-menu/internal/shopping"
	"shared-menu/internal/wish"

	"github.com/labstack/echo/v4"
)

type shoppingHandler struct {
	dishes  *dish.Repository
	service *shopping.Service
	sharer  ListSharer
	font    *shopping.Font
}

type wishesResponse struct {
	Dishes         []dish.Dish `json:"dishes"`
	TotalMinutes   int         `json:"total_minutes"`
	ShoppingListID string      `json:"shopping_list_id"`
}

type generateResponse struct {
	List      *shopping.ShoppingList `json:"shopping_list"`
	Generated bool                   `json:"generated"`
}

// lookupResponse carries the id even when nothing is stored under it.
type lookupResponse struct {
	ID   string                 `json:"shopping_list_id"`
	List *shopping.ShoppingList `json:"shopping_list"`
}

func (h *shoppingHandler) wished(c echo.Context) ([]dish.Dish, error) {
	dishes, err := h.dishes.ListWished(c.Request().Context())
	if err != nil {
		return nil, apperrors.Internal("failed to list wished dishes", err)
	}
	return dishes, nil
}

func (h *shoppingHandler) Wishes(c echo.Context) error {
	dishes, err := h.wished(c)
	if err != nil {
		return Error(c, err)
	}
	return Success(c, wishesResponse{
		Dishes:         dishes,
		TotalMinutes:   wish.TotalCookingMinutes(dishes),
		ShoppingListID: shopping.ListID(wish.IDs(dishes)),
	})
}

func (h *shoppingHandler) Get(c echo.Context) error {
	dishes, err := h.wished(c)
	if err != nil {
		return Error(c, err)
	}

	list, err := h.service.Lookup(c.Request().Context(), dishes)
	if err != nil {
		return Error(c, err)
	}
	return Success(c, lookupResponse{ID: shopping.ListID(wish.IDs(dishes)), List: list})
}

func (h *shoppingHandler) Generate(c echo.Context) error {
	dishes, err := h.wished(c)
	if err != nil {
		return Error(c, err)
	}

	list, generated, err := h.service.Ensure(c.Request().Context(), dishes)
	if err != nil {
		return Error(c, err)
	}
	return Success(c, generateResponse{List: list, Generated: generated})
}

func (h *shoppingHandler) Regenerate(c echo.Context) error {
	dishes, err := h.wished(c)
	if err != nil {
		return Error(c, err)
	}

	list, err := h.service.Regenerate(c.Request().Context(), dishes)
	if err != nil {
		return Error(c, err)
	}
	return Success(c, generateResponse{List: list, Generated: true})
}

// Save stores an edited list under the id of the current wish-set.
func (h *shoppingHandler) Save(c echo.Context) error {
	var content shopping.Content
	if err := c.Bind(&content); err != nil {
		return Error(c, apperrors.BadRequest("invalid request body", err))
	}

	dishes, err := h.wished(c)
	if err != nil {
		return Error(c, err)
	}

	list, err := h.service.Save(c.Request().Context(), dishes, content)
	if err != nil {
		return Error(c, err)
	}
	return Success(c, list)
}

func (h *shoppingHandler) stored(c echo.Context) (*shopping.ShoppingList, []dish.Dish, error) {
	dishes, err := h.wished(c)
	if err != nil {
		return nil, nil, err
	}
	list, err := h.service.Lookup(c.Request().Context(), dishes)
	if err != nil {
		return nil, nil, err
	}
	if list == nil {
		return nil, nil, apperrors.NotFound("shopping list", nil)
	}
	return list, dishes, nil
}

func (h *shoppingHandler) Image(c echo.Context) error {
	list, _, err := h.stored(c)
	if err != nil {
		return Error(c, err)
	}

	var buf bytes.Buffer
	if err := shopping.Render(&buf, list.Content, shopping.RenderOptions{Title: "Shopping list", Font: h.font}); err != nil {
		return Error(c, apperrors.Internal("failed to render the shopping list", err))
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func (h *shoppingHandler) Share(c echo.Context) error {
	if h.sharer == nil {
		return Error(c, apperrors.Unavailable("telegram notifications are not configured"))
	}

	list, dishes, err := h.stored(c)
	if err != nil {
		return Error(c, err)
	}
	if err := h.sharer.SendShoppingList(list, dishes); err != nil {
		return Error(c, apperrors.Internal("failed to share the shopping list", err))
	}
	return Success(c, map[string]string{"shopping_list_id": list.ID})
}
