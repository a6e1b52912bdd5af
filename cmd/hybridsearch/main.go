// Command hybridsearch is a thin terminal wrapper around the
// hybridsearch/vindex/lexical/bm25/persistence packages. It contains no
// core logic of its own: every subcommand calls only exported library
// APIs, matching the teacher's examples/*/main.go style (no cobra/viper —
// the teacher doesn't use one either).
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/hybridsearch"
	"github.com/hupe1980/hybridsearch/canon"
	"github.com/hupe1980/hybridsearch/config"
	"github.com/hupe1980/hybridsearch/embed"
	"github.com/hupe1980/hybridsearch/lexical/bm25"
	"github.com/hupe1980/hybridsearch/persistence"
	"github.com/hupe1980/hybridsearch/vindex"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "index":
		err = runIndex(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "hybridsearch:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hybridsearch <index|search|info> <name> [args]")
}

// runIndex reads documents from standard input, one per line, builds the
// vector and lexical backends, and saves both under name.
func runIndex(args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	dim := fs.Int("dim", 256, "hash embedder dimension")
	dir := fs.String("dir", ".", "directory to save the index under")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("index: missing <name>")
	}
	name := fs.Arg(0)

	fast := embed.NewHash(*dim)
	idx, err := vindex.New(*dim, vindex.Cosine, fast.ModelID())
	if err != nil {
		return err
	}

	var docs []bm25.Doc
	scanner := bufio.NewScanner(os.Stdin)
	row := 0
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		docID := fmt.Sprintf("doc-%d", row)
		row++

		text := canon.Canonicalize(line)
		vec, err := fast.Embed(context.Background(), text)
		if err != nil {
			return fmt.Errorf("embed %s: %w", docID, err)
		}
		if err := idx.Add(docID, vec); err != nil {
			return fmt.Errorf("add %s: %w", docID, err)
		}
		docs = append(docs, bm25.Doc{DocID: docID, Text: text})
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if err := persistence.SaveIndex(*dir, name, idx.Snapshot()); err != nil {
		return err
	}
	if err := saveDocs(*dir, name, docs); err != nil {
		return err
	}
	fmt.Printf("indexed %d documents under %s/%s\n", row, *dir, name)
	return nil
}

// saveDocs writes the canonical document texts the lexical backend needs
// to rebuild its inverted index on the next "search" invocation. This
// sits outside the npz/json persisted layout spec.md §6 defines for the
// vector index; the lexical backend is built once per process and is not
// part of that on-disk contract.
func saveDocs(dir, name string, docs []bm25.Doc) error {
	path := filepath.Join(dir, name+".docs.json")
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadDocs(dir, name string) ([]bm25.Doc, error) {
	path := filepath.Join(dir, name+".docs.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var docs []bm25.Doc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	dir := fs.String("dir", ".", "directory the index was saved under")
	k := fs.Int("k", 10, "number of results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("search: usage: search <name> <query>")
	}
	name, query := fs.Arg(0), fs.Arg(1)

	snap, err := persistence.LoadIndex(*dir, name)
	if err != nil {
		return err
	}
	idx, err := vindex.FromSnapshot(snap)
	if err != nil {
		return err
	}

	cfg, warnings, err := config.Load()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	docs, err := loadDocs(*dir, name)
	if err != nil {
		return err
	}

	opts := []hybridsearch.Option{hybridsearch.WithConfig(cfg)}
	if len(docs) > 0 {
		opts = append(opts, hybridsearch.WithLexicalBackend(bm25.Build(docs)))
	}

	fast := embed.NewHash(idx.Dimension())
	orc, err := hybridsearch.New(idx, fast, opts...)
	if err != nil {
		return err
	}

	ctx := context.Background()
	stream, err := orc.Search(ctx, query, *k)
	if err != nil {
		return err
	}
	for {
		result, ok, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		fmt.Println("phase:", result.Phase)
		for _, h := range result.Hits {
			fmt.Printf("  %s\tscore=%.4f\n", h.DocID, h.Score)
		}
	}
	return nil
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	dir := fs.String("dir", ".", "directory the index was saved under")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("info: missing <name>")
	}
	name := fs.Arg(0)

	snap, err := persistence.LoadIndex(*dir, name)
	if err != nil {
		return err
	}
	fmt.Printf("dimension: %d\n", snap.Dimension)
	fmt.Printf("count: %d\n", len(snap.DocIDs))
	fmt.Printf("embedder_id: %s\n", snap.EmbedderID)
	fmt.Printf("distance: %s\n", snap.Distance)
	return nil
}
