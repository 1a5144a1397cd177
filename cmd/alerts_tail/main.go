package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"leadqualify-be/pkg/events"
	pktNats "leadqualify-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

// Tails the sales alert stream from NATS. Handy for checking that alerts
// reach the broker without standing up the dashboard.
func main() {
	durable := flag.String("durable", "alerts-tail", "durable consumer name")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system env")
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	sub, err := pktNats.NewSubscriber(natsURL)
	if err != nil {
		color.Red("Failed to connect to NATS: %v", err)
		os.Exit(1)
	}
	defer sub.Close()

	printEvent := func(ctx context.Context, event events.Event) error {
		b, err := json.MarshalIndent(event.Payload(), "", "  ")
		if err != nil {
			return err
		}
		switch event.EventType() {
		case "sales_handoff.completed":
			color.Green("\n[%s] %s", event.Timestamp().Format("15:04:05"), event.EventType())
		default:
			color.Yellow("\n[%s] %s", event.Timestamp().Format("15:04:05"), event.EventType())
		}
		fmt.Println(string(b))
		return nil
	}

	if err := sub.Subscribe("sales_alert.raised", *durable+"-alerts", printEvent); err != nil {
		color.Red("Failed to subscribe: %v", err)
		os.Exit(1)
	}
	if err := sub.Subscribe("sales_handoff.completed", *durable+"-handoffs", printEvent); err != nil {
		color.Red("Failed to subscribe: %v", err)
		os.Exit(1)
	}

	color.Cyan("🔔 Tailing sales alerts on %s (Ctrl+C to stop)", natsURL)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
