package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/koopa0/chinchilla/internal/app"
	"github.com/koopa0/chinchilla/internal/knowledge"
	"github.com/koopa0/chinchilla/internal/region"
)

// ingestLine is one JSONL record in an ingest file.
type ingestLine struct {
	ID       string            `json:"id,omitempty"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	MinAge   *int              `json:"min_age,omitempty"`
}

// runIngest loads documents from a JSONL file into a collection:
//
//	chinchilla ingest welfare documents/welfare.jsonl
func runIngest() error {
	args := []string{}
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: chinchilla ingest <collection> <file.jsonl>")
	}
	collection, path := args[0], args[1]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	docs, err := parseDocuments(collection, f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("%s contains no documents", path)
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	for i, doc := range docs {
		if err := a.Store.Add(ctx, doc); err != nil {
			return fmt.Errorf("adding document %d: %w", i+1, err)
		}
	}

	total, err := a.Store.Count(ctx, collection)
	if err != nil {
		return fmt.Errorf("counting collection: %w", err)
	}

	fmt.Printf("ingested %d documents into %q (collection now holds %d)\n",
		len(docs), collection, total)
	return nil
}

// parseDocuments reads JSONL records and converts them to store documents.
// Blank lines are skipped; a malformed line fails the whole file with its
// line number.
func parseDocuments(collection string, r io.Reader) ([]knowledge.Document, error) {
	var docs []knowledge.Document

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec ingestLine
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if strings.TrimSpace(rec.Content) == "" {
			return nil, fmt.Errorf("line %d: content is required", lineNo)
		}

		// Retrieval filters match on normalized short province names, so
		// a record carrying "서울특별시" must be stored as "서울".
		if province, ok := rec.Metadata["province"]; ok {
			rec.Metadata["province"] = region.NormalizeProvince(province)
		}

		docs = append(docs, knowledge.Document{
			ID:         rec.ID,
			Collection: collection,
			Content:    rec.Content,
			Metadata:   rec.Metadata,
			MinAge:     rec.MinAge,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	return docs, nil
}
