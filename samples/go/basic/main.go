package main

import (
	"context"
	"fmt"
	"os"
	"time"

	gosdk "github.com/example/dataflow-engine/pkg/sdk/go"
)

func main() {
	addr := os.Getenv("DATAFLOW_ENGINE_ADDR")
	if addr == "" {
		addr = "http://127.0.0.1:8085"
	}
	client := gosdk.NewClient(addr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	steps, err := client.ListSteps(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Registered steps: %d\n", len(steps))
	for _, s := range steps {
		fmt.Printf("  [%d] %s (%s)\n", s.Ordinal, s.Name, s.Capability)
	}

	fmt.Println("Submitting job to", addr)
	run, err := client.TriggerRun(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Run %s status: %s\n", run.ID, run.Status)

	events, err := client.StreamRunEvents(ctx, run.ID)
	if err != nil {
		panic(err)
	}
	for evt := range events {
		fmt.Printf("[%s] %v\n", evt.Event, evt.Data)
	}
}
