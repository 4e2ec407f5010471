package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/vietddude/recap/internal/content"
	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/backend/gemini"
	"github.com/vietddude/recap/internal/infra/fetch"
	"github.com/vietddude/recap/internal/infra/fetch/document"
	"github.com/vietddude/recap/internal/infra/fetch/plain"
	"github.com/vietddude/recap/internal/infra/fetch/render"
	"github.com/vietddude/recap/internal/infra/fetch/scrape"
	"github.com/vietddude/recap/internal/infra/fetch/video"
	"github.com/vietddude/recap/internal/retrieval"
	"github.com/vietddude/recap/internal/retrieval/routing"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	GEMINI_API_KEY := os.Getenv("GEMINI_API_KEY")
	if GEMINI_API_KEY == "" {
		log.Fatalf("GEMINI_API_KEY is not set")
	}
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <url>", os.Args[0])
	}
	url := os.Args[1]

	ctx := context.Background()

	// 1. Build the fetch strategies
	converter := content.NewConverter(0)
	renderer := render.New(render.Config{}, converter)
	registry := fetch.NewRegistry(
		plain.New(plain.Config{}, converter),
		scrape.New(scrape.Config{APIKey: os.Getenv("FIRECRAWL_API_KEY")}, converter),
		renderer,
		document.New(document.Config{}, converter),
		video.New(video.Config{}, converter),
	)

	// 2. Setup circuit breakers and retries
	breakers := routing.NewBreakerRegistry(
		routing.DefaultFetchBreakerConfig,
		routing.DefaultAIBreakerConfig,
	)
	retryCfg := routing.DefaultRetryConfig

	// 3. Create the retrieval service with default chains
	classifier := retrieval.NewClassifier(retrieval.DefaultRules())
	retriever, err := retrieval.NewService(classifier, retrieval.DefaultChains(), registry, breakers, retryCfg)
	if err != nil {
		log.Fatalf("Failed to build retrieval service: %v", err)
	}
	defer func() {
		_ = renderer.Close()
	}()

	// 4. Create the Gemini backend
	ai, err := gemini.New(ctx, gemini.Config{APIKey: GEMINI_API_KEY}, breakers, retryCfg)
	if err != nil {
		log.Fatalf("Failed to init Gemini: %v", err)
	}
	defer func() {
		_ = ai.Close()
	}()

	category := classifier.Classify(retrieval.RewriteURL(url))
	fmt.Println("=== Testing Retrieval Pipeline ===")
	fmt.Printf("URL:      %s\n", url)
	fmt.Printf("Category: %s\n", category)
	fmt.Printf("Chain:    %v\n\n", []string(retriever.ChainFor(category)))

	// 5. Walk the fallback chain
	start := time.Now()
	page, err := retriever.Retrieve(ctx, url)
	if err != nil {
		log.Fatalf("Retrieval failed: %v", err)
	}
	fmt.Printf("✅ Retrieved via %s in %v\n", page.Strategy, time.Since(start).Round(time.Millisecond))
	fmt.Printf("Title: %s\n", page.Title)
	fmt.Printf("Size:  %d chars of Markdown\n\n", len(page.Markdown))

	// 6. Summarize
	summary, err := ai.Summarize(ctx, page, domain.SummaryConcise)
	if err != nil {
		log.Fatalf("Summarization failed: %v", err)
	}
	fmt.Println("=== Summary ===")
	fmt.Println(summary)
	fmt.Println()

	// 7. Show breaker states
	fmt.Println("=== Breaker Status ===")
	for _, b := range breakers.Snapshot() {
		fmt.Printf("%s: %s (fails=%d)\n", b.Dependency, b.State, b.ConsecutiveFails)
	}
}
