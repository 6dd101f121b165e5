// Package store reads the scraped dataset file into memory.
//
// A missing or unreadable file yields an empty collection, not an error:
// the API treats that as a "database disconnected" state and keeps serving.
package store

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-books-api/models"
	"github.com/aluiziolira/go-books-api/parser"
)

// Loader is the capability the catalog cache needs from the storage layer.
type Loader interface {
	Load() []models.Book
}

// FileStore loads books from a CSV or JSONL dataset file.
type FileStore struct {
	path string
}

// NewFileStore builds a loader for the given dataset path.
// The format is chosen by extension: .csv, or .json/.jsonl for line-delimited JSON.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the configured dataset location.
func (s *FileStore) Path() string {
	return s.path
}

// Exists reports whether the dataset file is present.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads every data row, skipping rows without a title and assigning
// sequential 1-based IDs in file order. IDs are positional: a re-scrape that
// reorders the file renumbers the books.
func (s *FileStore) Load() []models.Book {
	f, err := os.Open(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("dataset unreadable", slog.String("path", s.path), slog.Any("error", err))
		}
		return nil
	}
	defer f.Close()

	var books []models.Book
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".json", ".jsonl":
		books = loadJSONL(f)
	default:
		books = loadCSV(f)
	}

	for i := range books {
		books[i].ID = i + 1
	}
	return books
}

// csvColumns is the dataset file layout written by the pipeline.
var csvColumns = []string{"titulo", "preco", "rating", "disponibilidade", "categoria", "imagem"}

func loadCSV(r io.Reader) []models.Book {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil
	}
	col := columnIndex(header)

	var books []models.Book
	for {
		record, err := reader.Read()
		if err != nil {
			if err != io.EOF {
				slog.Warn("dataset row unreadable", slog.Any("error", err))
			}
			break
		}
		title := field(record, col, "titulo")
		if strings.TrimSpace(title) == "" {
			continue
		}
		books = append(books, models.Book{
			Title:        title,
			Price:        field(record, col, "preco"),
			Rating:       parser.ParseRating(field(record, col, "rating")),
			Availability: field(record, col, "disponibilidade"),
			Category:     field(record, col, "categoria"),
			ImageURL:     field(record, col, "imagem"),
		})
	}
	return books
}

func loadJSONL(r io.Reader) []models.Book {
	var books []models.Book
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var b models.Book
		if err := json.Unmarshal([]byte(line), &b); err != nil {
			slog.Warn("dataset row unreadable", slog.Any("error", err))
			continue
		}
		if strings.TrimSpace(b.Title) == "" {
			continue
		}
		b.ID = 0
		books = append(books, b)
	}
	return books
}

func columnIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	// Headerless files fall back to positional columns.
	known := 0
	for _, name := range csvColumns {
		if _, ok := col[name]; ok {
			known++
		}
	}
	if known == 0 {
		for i, name := range csvColumns {
			col[name] = i
		}
	}
	return col
}

func field(record []string, col map[string]int, name string) string {
	idx, ok := col[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}
