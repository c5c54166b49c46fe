package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"os"
	"time"

	"trade-clicker/internal/api"
	"trade-clicker/pkg/config"
	"trade-clicker/pkg/logger"
)

// signal_check posts one signal to a running clicker, the same way the
// charting UI does, and prints the reply.
//
// Usage:
//   go run ./scripts/signal_check -signal buy
//   go run ./scripts/signal_check -url http://192.168.0.10:5000 -signal clear
//
// WEBHOOK_SECRET from the environment (or .env) is used to sign the body.

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New("info", true, nil)

	url := flag.String("url", "http://localhost:"+cfg.Port, "clicker base URL")
	sig := flag.String("signal", "buy", "buy, sell or clear")
	price := flag.Float64("price", 0, "optional price to journal")
	flag.Parse()

	payload := map[string]any{"signalType": *sig}
	if *price > 0 {
		payload["price"] = *price
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequest(http.MethodPost, *url+"/api/signal", bytes.NewReader(body))
	if err != nil {
		log.Fatal().Err(err).Msg("build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.WebhookSecret != "" {
		req.Header.Set("X-Signature", api.Sign(cfg.WebhookSecret, body))
	}

	client := &http.Client{Timeout: 60 * time.Second}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		log.Fatal().Err(err).Msg("post signal")
	}
	defer resp.Body.Close()
	reply, _ := io.ReadAll(resp.Body)

	ev := log.Info()
	if resp.StatusCode != http.StatusOK {
		ev = log.Error()
	}
	ev.Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).RawJSON("reply", reply).Msg("signal sent")
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
