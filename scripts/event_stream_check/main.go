package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"trade-clicker/internal/events"
	"trade-clicker/pkg/logger"
)

// event_stream_check subscribes to /ws of a running clicker and logs every
// position change and failure until interrupted.
//
// Usage:
//   go run ./scripts/event_stream_check -url http://localhost:5000

func main() {
	base := flag.String("url", "http://localhost:5000", "clicker base URL")
	flag.Parse()
	log := logger.New("info", true, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	wsURL := "ws" + strings.TrimPrefix(*base, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", wsURL).Msg("dial")
	}
	defer conn.Close()
	log.Info().Str("url", wsURL).Msg("listening for signal events")

	go func() {
		<-ctx.Done()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		var ev events.SignalEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("stream closed")
			}
			return
		}
		l := log.Info()
		if ev.Type == events.EventSignalFailed {
			l = log.Warn()
		}
		l.Str("type", string(ev.Type)).
			Str("source", ev.Source).
			Str("signal", ev.Signal).
			Str("previous", ev.Previous).
			Str("current", ev.Current).
			Str("error", ev.Error).
			Msg("event")
	}
}
