package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"
)

// Seeds the ledger with sample submissions for local development. Each
// player gets one accepted submission per run; the admission gate rejects
// repeats inside the submission interval, so rerun after 30 seconds to
// build up history.

var (
	apiURL     = flag.String("url", "http://localhost:8080/api/v1/scores", "submit endpoint")
	adminToken = flag.String("token", "", "admin token (required)")
	players    = flag.Int("players", 10, "number of sample players")
)

var modes = []string{"oneway", "twoway", "timeattack", "bomb"}

type submitRequest struct {
	Identifier string `json:"identifier"`
	Submitter  string `json:"submitter"`
	Mode       string `json:"mode"`
	Score      uint64 `json:"score"`
	Distance   uint64 `json:"distance"`
	Currency   uint64 `json:"currency"`
	PlayTime   uint64 `json:"play_time"`
}

func main() {
	flag.Parse()
	if *adminToken == "" {
		log.Fatal("missing -token (the server logs a generated one in development)")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	accepted, rejected := 0, 0

	for i := 0; i < *players; i++ {
		req := submitRequest{
			Identifier: fmt.Sprintf("seed-player-%03d", i),
			Submitter:  "seeder",
			Mode:       modes[rand.Intn(len(modes))],
			Score:      uint64(rand.Intn(10000)),
			Distance:   uint64(rand.Intn(5000)),
			Currency:   uint64(rand.Intn(100)),
			PlayTime:   uint64(30 + rand.Intn(300)),
		}

		payload, err := json.Marshal(req)
		if err != nil {
			log.Fatalf("marshal: %v", err)
		}

		httpReq, err := http.NewRequest(http.MethodPost, *apiURL, bytes.NewReader(payload))
		if err != nil {
			log.Fatalf("build request: %v", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-Admin-Token", *adminToken)

		resp, err := client.Do(httpReq)
		if err != nil {
			log.Fatalf("send: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusCreated {
			accepted++
		} else {
			rejected++
			log.Printf("%s %s: %s %s", req.Identifier, req.Mode, resp.Status, string(body))
		}
	}

	fmt.Printf("Seeded %d submissions (%d rejected)\n", accepted, rejected)
}
