package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shared-menu/internal/dish"
	"shared-menu/internal/shopping"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panelEvent struct {
	panelMessage
	Message string `json:"message"`
}

func dialPanel(t *testing.T, ts *httptest.Server, side dish.Side) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/panel?side=" + string(side)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads pushed messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(panelEvent) bool) panelEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var ev panelEvent
		require.NoError(t, json.Unmarshal(raw, &ev))
		if match(ev) {
			return ev
		}
	}
}

func sendAction(t *testing.T, conn *websocket.Conn, a panelAction) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(a))
}

func TestPanel(t *testing.T) {
	env := newTestEnv(t, groupsResponse, nil)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()
	ctx := context.Background()

	d, err := env.dishes.Create(ctx, dish.Male, dish.Input{
		Name:               "Tomato soup",
		CookingTimeMinutes: 25,
		Ingredients:        []dish.Ingredient{{Name: "tomato", Quantity: "3"}},
	})
	require.NoError(t, err)

	female := dialPanel(t, ts, dish.Female)
	first := readUntil(t, female, func(ev panelEvent) bool { return ev.Type == messagePanel })
	assert.Empty(t, first.Wishes)
	assert.Equal(t, "sl_0", first.ShoppingListID)
	assert.Nil(t, first.ShoppingList)

	listID := shopping.ListID([]string{d.ID})

	t.Run("WishOwnDishIsRefused", func(t *testing.T) {
		male := dialPanel(t, ts, dish.Male)
		readUntil(t, male, func(ev panelEvent) bool { return ev.Type == messagePanel })

		sendAction(t, male, panelAction{Action: actionWish, DishID: d.ID, Wished: true})
		notice := readUntil(t, male, func(ev panelEvent) bool { return ev.Type == messageNotice })
		assert.Equal(t, "a side cannot wish for its own dish", notice.Message)
	})

	t.Run("Wish", func(t *testing.T) {
		sendAction(t, female, panelAction{Action: actionWish, DishID: d.ID, Wished: true})
		ev := readUntil(t, female, func(ev panelEvent) bool {
			return ev.Type == messagePanel && len(ev.Wishes) == 1
		})
		assert.Equal(t, 25, ev.TotalMinutes)
		assert.Equal(t, listID, ev.ShoppingListID)
		assert.Nil(t, ev.ShoppingList)
	})

	t.Run("EditBeforeGenerate", func(t *testing.T) {
		sendAction(t, female, panelAction{Action: actionEdit, Content: &shopping.Content{}})
		notice := readUntil(t, female, func(ev panelEvent) bool { return ev.Type == messageNotice })
		assert.Equal(t, "generate a shopping list before editing it", notice.Message)
	})

	t.Run("Generate", func(t *testing.T) {
		sendAction(t, female, panelAction{Action: actionGenerate})
		ev := readUntil(t, female, func(ev panelEvent) bool {
			return ev.Type == messagePanel && ev.ShoppingList != nil
		})
		assert.Equal(t, listID, ev.ShoppingList.ID)
		require.NotNil(t, ev.Editable)
		assert.Equal(t, ev.ShoppingList.Content, *ev.Editable)
	})

	t.Run("SaveReachesOtherViews", func(t *testing.T) {
		other := dialPanel(t, ts, dish.Male)
		readUntil(t, other, func(ev panelEvent) bool {
			return ev.Type == messagePanel && ev.ShoppingList != nil
		})

		edited := shopping.Content{Groups: []shopping.Group{{
			Category:    shopping.Meat,
			Ingredients: []dish.Ingredient{{Name: "beef", Quantity: "500 g"}},
		}}}
		sendAction(t, female, panelAction{Action: actionEdit, Content: &edited})
		readUntil(t, female, func(ev panelEvent) bool {
			return ev.Type == messagePanel && ev.Editable != nil && assert.ObjectsAreEqual(edited, *ev.Editable)
		})
		sendAction(t, female, panelAction{Action: actionSave})

		ev := readUntil(t, other, func(ev panelEvent) bool {
			return ev.Type == messagePanel && ev.ShoppingList != nil &&
				len(ev.ShoppingList.Content.Groups) == 1 && ev.ShoppingList.Content.Groups[0].Category == shopping.Meat
		})
		assert.Equal(t, edited, ev.ShoppingList.Content)
	})

	t.Run("UnsavedEditsReplacedBySaveElsewhere", func(t *testing.T) {
		other := dialPanel(t, ts, dish.Male)
		readUntil(t, other, func(ev panelEvent) bool {
			return ev.Type == messagePanel && ev.ShoppingList != nil
		})

		pending := shopping.Content{Groups: []shopping.Group{{
			Category:    shopping.Vegetable,
			Ingredients: []dish.Ingredient{{Name: "shrimp", Quantity: "200 g"}},
		}}}
		sendAction(t, other, panelAction{Action: actionEdit, Content: &pending})
		readUntil(t, other, func(ev panelEvent) bool {
			return ev.Type == messagePanel && ev.Editable != nil && assert.ObjectsAreEqual(pending, *ev.Editable)
		})

		saved := shopping.Content{Groups: []shopping.Group{{
			Category:    shopping.Meat,
			Ingredients: []dish.Ingredient{{Name: "lamb", Quantity: "1 kg"}},
		}}}
		sendAction(t, female, panelAction{Action: actionEdit, Content: &saved})
		readUntil(t, female, func(ev panelEvent) bool {
			return ev.Type == messagePanel && ev.Editable != nil && assert.ObjectsAreEqual(saved, *ev.Editable)
		})
		sendAction(t, female, panelAction{Action: actionSave})

		notice := readUntil(t, other, func(ev panelEvent) bool { return ev.Type == messageNotice })
		assert.Equal(t, noticeEditsReplaced, notice.Message)
		ev := readUntil(t, other, func(ev panelEvent) bool { return ev.Type == messagePanel })
		require.NotNil(t, ev.Editable)
		assert.Equal(t, saved, *ev.Editable)
	})

	t.Run("UnknownAction", func(t *testing.T) {
		sendAction(t, female, panelAction{Action: "dance"})
		notice := readUntil(t, female, func(ev panelEvent) bool { return ev.Type == messageNotice })
		assert.Equal(t, "unknown panel action dance", notice.Message)
	})

	t.Run("Unwish", func(t *testing.T) {
		sendAction(t, female, panelAction{Action: actionWish, DishID: d.ID, Wished: false})
		ev := readUntil(t, female, func(ev panelEvent) bool {
			return ev.Type == messagePanel && len(ev.Wishes) == 0
		})
		assert.Equal(t, "sl_0", ev.ShoppingListID)
		assert.Nil(t, ev.ShoppingList)
		assert.Nil(t, ev.Editable)
	})
}

func TestPanelRejectsUnknownSide(t *testing.T) {
	env := newTestEnv(t, groupsResponse, nil)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/panel?side=robot"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}
