package cliapp

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/termfx/fql/internal/engine"
)

// wsRequest/wsResponse are the serve mode's wire shapes: one query string
// in, one rendered result (or error) out, repeated for the life of the
// socket. This is the same RunQuery loop as Interactive, just carried over
// a websocket frame instead of a stdin line.
type wsRequest struct {
	Query string `json:"query"`
}

type wsResponse struct {
	Text string `json:"text,omitempty"`
	Err  string `json:"error,omitempty"`
}

// Serve exposes the REPL loop over a websocket at addr, for remote
// interactive sessions. It blocks until ctx is canceled or the listener
// fails.
func Serve(ctx context.Context, eng *engine.Engine, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/fql", func(w http.ResponseWriter, r *http.Request) {
		handleConn(r.Context(), eng, w, r)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func handleConn(ctx context.Context, eng *engine.Engine, w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer c.CloseNow()

	for {
		var req wsRequest
		if err := wsjson.Read(ctx, c, &req); err != nil {
			return
		}

		res := RunQuery(eng, req.Query)
		resp := wsResponse{Text: res.Text}
		if res.Err != nil {
			resp.Err = res.Err.Error()
		}

		if err := wsjson.Write(ctx, c, resp); err != nil {
			return
		}
	}
}
