package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/reconcile"
	"github.com/MrSnakeDoc/smartmarks/internal/view"
)

const frameWriteTimeout = 5 * time.Second

// Frames sent to the browser.
type (
	snapshotFrame struct {
		Type      string            `json:"type"` // "snapshot"
		State     string            `json:"state"`
		Bookmarks []domain.Bookmark `json:"bookmarks"` // null while loading
	}
	draftFrame struct {
		Type  string `json:"type"` // "draft"
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	errorFrame struct {
		Type    string `json:"type"` // "error"
		Message string `json:"message"`
	}
	redirectFrame struct {
		Type     string `json:"type"` // "redirect"
		Location string `json:"location"`
	}
)

// inbound is a browser intent: submit, delete, refresh or logout.
type inbound struct {
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
	ID    string `json:"id,omitempty"`
}

// Live serves one dashboard view over a websocket. The view lives exactly as
// long as the connection.
func Live(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The upgraded connection must outlive the server's read/write timeouts.
		rc := http.NewResponseController(w)
		_ = rc.SetReadDeadline(time.Time{})
		_ = rc.SetWriteDeadline(time.Time{})

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: d.AllowedHosts,
		})
		if err != nil {
			d.Logger.Debug("websocket upgrade failed", logger.Error(err))
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		lc := &liveConn{conn: conn, log: d.Logger}
		v := view.New(d.Gate, d.Backend, d.Backend, d.Views, d.Logger)
		defer v.Deactivate()

		ident, err := v.Activate(ctx, sessionToken(r, d.CookieName))
		switch {
		case errors.Is(err, view.ErrUnauthenticated):
			lc.write(ctx, redirectFrame{Type: "redirect", Location: "/"})
			_ = conn.Close(websocket.StatusPolicyViolation, "unauthenticated")
			return
		case ident.IsZero() || v.State() == reconcile.StateTornDown:
			d.Logger.Error("live view activation failed", logger.Error(err))
			lc.write(ctx, errorFrame{Type: "error", Message: "Live updates are unavailable."})
			_ = conn.Close(websocket.StatusTryAgainLater, "activation failed")
			return
		case err != nil:
			lc.snapshot(ctx, v)
			lc.write(ctx, errorFrame{Type: "error", Message: "Could not load your bookmarks."})
		}

		log := d.Logger.With(logger.String("user_id", ident.ID))
		log.Debug("live view connected")

		go func() {
			defer cancel()
			changes := v.Changes()
			for {
				select {
				case <-ctx.Done():
					return
				case <-changes:
					if err := lc.snapshot(ctx, v); err != nil {
						return
					}
				}
			}
		}()

		for {
			var in inbound
			if err := wsjson.Read(ctx, conn, &in); err != nil {
				if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
					log.Debug("live view read failed", logger.Error(err))
				}
				break
			}
			if done := handleIntent(ctx, v, lc, in, log); done {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
		log.Debug("live view disconnected")
	}
}

// handleIntent applies one browser intent. It reports whether the
// connection should close.
func handleIntent(ctx context.Context, v *view.View, lc *liveConn, in inbound, log logger.Logger) bool {
	switch in.Type {
	case "submit":
		_, err := v.Submit(ctx, in.Title, in.URL)
		draft := v.Draft()
		lc.write(ctx, draftFrame{Type: "draft", Title: draft.Title, URL: draft.URL})
		switch {
		case err == nil, errors.Is(err, reconcile.ErrIncompleteDraft):
		case errors.Is(err, domain.ErrUnsupportedURL):
			lc.write(ctx, errorFrame{Type: "error", Message: "Only http and https links can be saved."})
		default:
			lc.write(ctx, errorFrame{Type: "error", Message: "Could not save the bookmark, please retry."})
		}

	case "delete":
		if err := v.Delete(ctx, in.ID); err != nil {
			log.Warn("delete resync failed", logger.Error(err))
			lc.write(ctx, errorFrame{Type: "error", Message: "Could not refresh your bookmarks."})
		}

	case "refresh":
		if err := v.Refresh(ctx); err != nil {
			lc.write(ctx, errorFrame{Type: "error", Message: "Could not load your bookmarks."})
		}

	case "logout":
		if err := v.Logout(ctx); err != nil {
			log.Warn("logout failed", logger.Error(err))
		}
		lc.write(ctx, redirectFrame{Type: "redirect", Location: "/"})
		return true

	default:
		log.Debug("ignoring unknown intent", logger.String("type", in.Type))
	}
	return false
}

type liveConn struct {
	conn *websocket.Conn
	log  logger.Logger
}

func (c *liveConn) write(ctx context.Context, frame any) error {
	ctx, cancel := context.WithTimeout(ctx, frameWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c.conn, frame); err != nil {
		c.log.Debug("failed to write frame", logger.Error(err))
		return err
	}
	return nil
}

func (c *liveConn) snapshot(ctx context.Context, v *view.View) error {
	return c.write(ctx, snapshotFrame{
		Type:      "snapshot",
		State:     v.State().String(),
		Bookmarks: v.Snapshot(),
	})
}
