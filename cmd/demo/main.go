package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"wallet-ledger-service/internal/domain/model"
)

// Replays a bank-transfer notification against a running instance, the way
// the gateway would deliver it. Useful for exercising the intake path end to
// end without waiting for a real transfer.
//
//	go run ./cmd/demo -url http://localhost:8080 -key <webhook key> -memo "CK WL... tu NGUYEN VAN A" -amount 79000
func main() {
	var (
		baseURL = flag.String("url", "http://localhost:8080", "server base url")
		apiKey  = flag.String("key", "", "webhook api key (webhook.api_key)")
		memo    = flag.String("memo", "", "transfer memo; must contain an order code")
		amount  = flag.Int64("amount", 0, "transfer amount, VND")
		gwID    = flag.Int64("id", 0, "gateway transaction id; random when 0")
		repeat  = flag.Int("repeat", 1, "deliveries to send; >1 simulates redelivery")
	)
	flag.Parse()

	if *apiKey == "" || *memo == "" || *amount <= 0 {
		log.Fatal("usage: -key, -memo and -amount are required")
	}
	if *gwID == 0 {
		*gwID = rand.Int63n(1_000_000_000)
	}

	now := time.Now()
	payload := model.GatewayNotification{
		ID:              *gwID,
		Gateway:         "MBBank",
		TransactionDate: now.Format("2006-01-02 15:04:05"),
		Content:         *memo,
		TransferType:    "in",
		TransferAmount:  *amount,
		ReferenceCode:   fmt.Sprintf("FT%d", now.Unix()),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	for i := 0; i < *repeat; i++ {
		req, err := http.NewRequest(http.MethodPost, *baseURL+"/webhook/sepay", bytes.NewReader(body))
		if err != nil {
			log.Fatalf("request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Apikey "+*apiKey)

		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("deliver: %v", err)
		}
		var res model.IntakeResult
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			log.Printf("delivery %d: status=%d (no body)", i+1, resp.StatusCode)
		} else {
			log.Printf("delivery %d: status=%d accepted=%v reason=%q", i+1, resp.StatusCode, res.Accepted, res.Reason)
		}
		resp.Body.Close()
	}
}
