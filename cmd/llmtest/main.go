// Command llmtest sends a symptom description through the live triage
// classifier. Useful for checking API keys and prompt behavior outside the
// server:
//
//	go run ./cmd/llmtest "sharp pain in my knee when climbing stairs"
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/clinicflow/clinicflow/internal/directory"
	"github.com/clinicflow/clinicflow/internal/triage"
	"github.com/clinicflow/clinicflow/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	symptoms := "I have chest pain and feel short of breath after walking"
	if len(os.Args) > 1 {
		symptoms = strings.Join(os.Args[1:], " ")
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY is not set")
	}
	modelID := os.Getenv("GEMINI_MODEL_ID")
	if modelID == "" {
		modelID = "gemini-2.5-flash"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := triage.NewGeminiClient(ctx, apiKey, modelID)
	if err != nil {
		log.Fatalf("failed to create Gemini client: %v", err)
	}
	defer client.Close()

	dir := directory.Default()
	classifier := triage.NewClassifier(client, dir, logging.New("debug"))

	fmt.Printf("Symptoms: %s\n\n", symptoms)
	start := time.Now()
	assessment, err := classifier.Classify(ctx, symptoms, dir.Categories())
	elapsed := time.Since(start)
	if err != nil {
		log.Fatalf("classification failed after %v: %v", elapsed.Round(time.Millisecond), err)
	}

	fmt.Printf("Model:       %s (%v)\n", modelID, elapsed.Round(time.Millisecond))
	fmt.Printf("Category:    %s\n", assessment.Category)
	fmt.Printf("Unclear:     %v\n", assessment.Unclear)
	fmt.Printf("Emergency:   %v\n", assessment.Emergency)
	fmt.Printf("Urgency:     %s\n", assessment.Urgency)
	fmt.Printf("Advice:      %s\n", assessment.Advice)
	fmt.Printf("Explanation: %s\n", assessment.Explanation)
}
