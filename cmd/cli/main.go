package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"

	"semantic-search-backend/internal/ai"
	"semantic-search-backend/internal/config"
	"semantic-search-backend/internal/logger"
	"semantic-search-backend/internal/vectorstore"
	"semantic-search-backend/services"
)

func main() {
	var (
		dir        = flag.String("dir", "", "directory of documents to ingest before searching (defaults to DATA_DIR)")
		collection = flag.String("collection", "", "collection to ingest into and search (defaults to DEFAULT_COLLECTION)")
		mode       = flag.String("mode", "", "chunking mode: fixed, paragraph, markdown or pdf")
		chunkSize  = flag.Int("chunk-size", 0, "maximum chunk size in characters")
		limit      = flag.Int("limit", 5, "number of results per query")
		qdrantURL  = flag.String("qdrant", "", "Qdrant base URL (defaults to QDRANT_URL)")
		skipIngest = flag.Bool("skip-ingest", false, "skip the ingestion pass and go straight to search")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if *dir == "" {
		*dir = cfg.DataDir
	}
	if *collection == "" {
		*collection = cfg.DefaultCollection
	}
	if *mode == "" {
		*mode = cfg.DefaultChunkMode
	}
	if *chunkSize <= 0 {
		*chunkSize = cfg.DefaultChunkSize
	}
	if *qdrantURL != "" {
		cfg.QdrantURL = *qdrantURL
	}

	ctx := context.Background()

	store := vectorstore.NewQdrantClient(cfg.QdrantURL, cfg.QdrantAPIKey)
	embedder, err := ai.NewGeminiEmbedder(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedding provider:", err)
	}
	defer embedder.Close()

	ingestor := services.NewIngestor(store, embedder, cfg.EmbedBatchSize, cfg.EmbedWorkers)
	queryService := services.NewQueryService(store, embedder,
		services.NewMemoryQueryCache(cfg.CacheCapacity, cfg.CacheTTL))

	if !*skipIngest {
		if err := ingestDirectory(ctx, ingestor, *dir, *collection, *mode, *chunkSize); err != nil {
			log.Fatal("Ingestion failed:", err)
		}
	}

	searchLoop(ctx, queryService, *collection, *limit)
}

func ingestDirectory(ctx context.Context, ingestor *services.Ingestor, dir, collection, mode string, chunkSize int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	total := 0
	for _, entry := range entries {
		if !entry.IsDir() && services.SupportedFile(entry.Name()) {
			total++
		}
	}
	if total == 0 {
		fmt.Printf("No supported files in %s\n", dir)
		return nil
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("ingesting"),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	reports, err := ingestor.IngestDirectory(ctx, dir, collection, mode, chunkSize, func(string) {
		bar.Add(1)
	})
	if err != nil {
		return err
	}

	for _, r := range reports {
		if r.Error != "" {
			fmt.Printf("%-40s FAILED: %s\n", r.Source, r.Error)
			continue
		}
		fmt.Printf("%-40s added=%d skipped=%d removed=%d\n",
			r.Source, r.ChunksAdded, r.ChunksSkipped, r.ChunksRemoved)
	}
	return nil
}

// searchLoop reads one query per line until the user enters q, quit or exit.
func searchLoop(ctx context.Context, qs *services.QueryService, collection string, limit int) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("Searching collection %q. Enter a query (q to quit):\n", collection)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "":
			continue
		case "q", "quit", "exit":
			return
		}

		results, err := qs.Search(ctx, query, collection, limit, nil)
		if err != nil {
			fmt.Printf("search failed: %v\n", err)
			continue
		}
		if len(results) == 0 {
			fmt.Println("no results")
			continue
		}

		for _, r := range results {
			header := fmt.Sprintf("%s | chunk %d | score %.4f", r.Chunk.Source, r.Chunk.Index, r.Score)
			if len(r.Chunk.HeadingPath) > 0 {
				header += " | " + strings.Join(r.Chunk.HeadingPath, " > ")
			}
			fmt.Println(header)
			for _, line := range strings.Split(r.Chunk.Text, "\n") {
				fmt.Println("    " + line)
			}
			fmt.Println()
		}
	}
}
