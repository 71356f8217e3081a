package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"invoice-app/internal/ai"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load() // Load .env if present

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY not set")
	}

	agent := ai.NewAgent(apiKey)
	ctx := context.Background()

	text := "Invoice Acme Corp for 8 hours of consulting at 120 per hour plus one onsite visit for 300, 15% tax on the consulting."

	fmt.Printf("DRAFTING FROM: %s\n\n", text)
	draft, err := agent.DraftInvoice(ctx, text)
	if err != nil {
		log.Fatalf("draft failed: %v", err)
	}

	fmt.Printf("CUSTOMER: %s\n", draft.CustomerName)
	for _, line := range draft.Lines {
		fmt.Printf("  %s  qty=%s  price=%s  tax=%s%%\n", line.Description, line.Qty, line.UnitPrice, line.TaxRate)
	}
	if draft.Notes != "" {
		fmt.Printf("NOTES: %s\n", draft.Notes)
	}
}
