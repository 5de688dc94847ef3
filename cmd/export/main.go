package main

import (
	"context"
	"flag"
	"log"
	"os"

	"tvcatalog/internal/config"
	"tvcatalog/internal/db"
	"tvcatalog/internal/export"
	"tvcatalog/internal/repository"
)

// go run ./cmd/export -out=sample_products.csv -limit=100
// go run ./cmd/export -limit=500 -sort=price -dir=desc
func main() {
	out := flag.String("out", "sample_products.csv", "CSV output path")
	limit := flag.Int("limit", 100, "maximum number of products to export")
	sortBy := flag.String("sort", "", "sort key: price, rank, rating or name")
	sortDir := flag.String("dir", "asc", "sort direction: asc or desc")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	conn, dialect, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer conn.Close()

	repo := &repository.ProductRepository{
		DB:              conn,
		Dialect:         dialect,
		Table:           cfg.ProductsTable,
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	}

	products, err := export.Collect(ctx, repo, *limit, cfg.MaxPageSize, *sortBy, *sortDir)
	if err != nil {
		log.Fatalf("read catalog: %v", err)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	if err := export.WriteCSV(f, products); err != nil {
		f.Close()
		log.Fatalf("write %s: %v", *out, err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("close %s: %v", *out, err)
	}

	log.Printf("Wrote %d products to %s", len(products), *out)
}
