package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"shared-menu/internal/apperrors"
	"shared-menu/internal/database"
	"shared-menu/internal/dish"
	"shared-menu/internal/events"
	"shared-menu/internal/logger"
	"shared-menu/internal/shopping"
	"shared-menu/internal/wish"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	panelWriteWait   = 10 * time.Second
	panelMaxMessage  = 64 * 1024
	panelSendBacklog = 16
)

// Panel message types pushed to the client.
const (
	messagePanel  = "panel"
	messageNotice = "notice"
)

// Client actions.
const (
	actionGenerate   = "generate"
	actionRegenerate = "regenerate"
	actionEdit       = "edit"
	actionSave       = "save"
	actionWish       = "wish"
)

type panelMessage struct {
	Type           string                 `json:"type"`
	Wishes         []dish.Dish            `json:"wishes"`
	TotalMinutes   int                    `json:"total_minutes"`
	ShoppingListID string                 `json:"shopping_list_id"`
	ShoppingList   *shopping.ShoppingList `json:"shopping_list"`
	Editable       *shopping.Content      `json:"editable"`
}

// noticeEditsReplaced tells a view its unsaved edits gave way to a list saved elsewhere.
const noticeEditsReplaced = "the shopping list was saved from another view, your unsaved edits were replaced"

type noticeMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type panelAction struct {
	Action  string            `json:"action"`
	DishID  string            `json:"dish_id,omitempty"`
	Wished  bool              `json:"wished,omitempty"`
	Content *shopping.Content `json:"content,omitempty"`
}

type panelHandler struct {
	dishes     *dish.Repository
	service    *shopping.Service
	subscriber events.Subscriber
	upgrader   websocket.Upgrader
}

func newUpgrader(origins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get(echo.HeaderOrigin)
			return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
		},
	}
}

// Serve upgrades the request and runs a live wish panel for one side
// until the client goes away.
func (h *panelHandler) Serve(c echo.Context) error {
	side, err := dish.ParseSide(c.QueryParam("side"))
	if err != nil {
		return Error(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already answered the request.
		logger.Warn("panel upgrade failed: %v", err)
		return nil
	}

	p := &panel{
		conn:    conn,
		side:    side,
		dishes:  h.dishes,
		session: shopping.NewSession(h.service),
		send:    make(chan []byte, panelSendBacklog),
		channel: "panel:" + uuid.NewString(),
	}
	p.run(c.Request().Context(), h.subscriber)
	return nil
}

// panel is one connected view. Its wished set and shopping list session
// live exactly as long as the connection.
type panel struct {
	conn    *websocket.Conn
	side    dish.Side
	dishes  *dish.Repository
	session *shopping.Session
	agg     *wish.Aggregator
	send    chan []byte
	channel string
	ctx     context.Context
}

func (p *panel) run(ctx context.Context, subscriber events.Subscriber) {
	ctx, cancel := context.WithCancel(ctx)
	p.ctx = ctx

	written := make(chan struct{})
	go func() {
		defer close(written)
		p.writePump()
	}()
	defer func() {
		cancel()
		<-written
		_ = p.conn.Close()
	}()

	p.agg = wish.NewAggregator(p.dishes, subscriber, p.channel, p.wishesChanged)
	if err := p.agg.Open(ctx); err != nil {
		logger.Error("%s: %v", p.channel, err)
		p.notice(apperrors.Internal("failed to open the wish panel", err))
		return
	}
	defer p.agg.Close()

	lists, err := subscriber.Subscribe(ctx, p.channel, database.TableShoppingLists, p.listChanged)
	if err != nil {
		logger.Error("%s: failed to subscribe to shopping list changes: %v", p.channel, err)
		p.notice(apperrors.Internal("failed to open the wish panel", err))
		return
	}
	defer func() { _ = lists.Close() }()

	p.wishesChanged(p.agg.Dishes())
	logger.Debug("%s: opened for %s", p.channel, p.side)
	p.readPump()
	logger.Debug("%s: closed", p.channel)
}

func (p *panel) wishesChanged(dishes []dish.Dish) {
	if err := p.session.Reconcile(p.ctx, dishes); err != nil {
		p.notice(err)
	}
	p.push()
}

// listChanged picks up lists saved by other views for the same wish-set.
func (p *panel) listChanged(c events.Change) {
	reloaded, discarded, err := p.session.Reload(p.ctx, c.RecordID)
	if err != nil {
		p.notice(err)
		return
	}
	if discarded {
		p.enqueue(noticeMessage{Type: messageNotice, Message: noticeEditsReplaced})
	}
	if reloaded {
		p.push()
	}
}

func (p *panel) readPump() {
	p.conn.SetReadLimit(panelMaxMessage)
	for {
		_, message, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("%s: read failed: %v", p.channel, err)
			}
			return
		}

		var action panelAction
		if err := json.Unmarshal(message, &action); err != nil {
			p.notice(apperrors.BadRequest("malformed panel action", err))
			continue
		}
		if err := p.handle(action); err != nil {
			p.notice(err)
		}
		p.push()
	}
}

func (p *panel) handle(a panelAction) error {
	switch a.Action {
	case actionGenerate:
		return p.session.Generate(p.ctx)
	case actionRegenerate:
		return p.session.Regenerate(p.ctx)
	case actionEdit:
		if a.Content == nil {
			return apperrors.Validation("edit needs content", nil)
		}
		return p.session.Edit(*a.Content)
	case actionSave:
		return p.session.Save(p.ctx)
	case actionWish:
		if _, err := p.dishes.SetWished(p.ctx, p.side, a.DishID, a.Wished); err != nil {
			return err
		}
		return p.agg.Apply(p.ctx, a.DishID, a.Wished)
	default:
		return apperrors.BadRequest("unknown panel action "+a.Action, nil)
	}
}

func (p *panel) push() {
	wishes := p.agg.Dishes()
	st := p.session.State()
	p.enqueue(panelMessage{
		Type:           messagePanel,
		Wishes:         wishes,
		TotalMinutes:   wish.TotalCookingMinutes(wishes),
		ShoppingListID: st.ID,
		ShoppingList:   st.List,
		Editable:       st.Editable,
	})
}

func (p *panel) notice(err error) {
	message := "something went wrong, please try again"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	p.enqueue(noticeMessage{Type: messageNotice, Message: message})
}

// enqueue never blocks: a client that stops reading loses messages, and the
// next push carries the full state anyway.
func (p *panel) enqueue(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		logger.Error("%s: failed to encode message: %v", p.channel, err)
		return
	}
	select {
	case p.send <- payload:
	case <-p.ctx.Done():
	default:
		logger.Warn("%s: send backlog full, dropping message", p.channel)
	}
}

func (p *panel) writePump() {
	for {
		select {
		case message := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(panelWriteWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("%s: write failed: %v", p.channel, err)
				return
			}
		case <-p.ctx.Done():
			_ = p.conn.SetWriteDeadline(time.Now().Add(panelWriteWait))
			_ = p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
