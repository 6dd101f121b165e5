package store

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDataset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	csv := "titulo,preco,rating,disponibilidade,categoria,imagem\n" +
		"A Light in the Attic,£51.77,3,In stock,Poetry,http://example.com/a.jpg\n" +
		"Sharp Objects,£47.82,4,In stock,Fiction,http://example.com/b.jpg\n"

	books := NewFileStore(writeDataset(t, "books.csv", csv)).Load()
	if len(books) != 2 {
		t.Fatalf("loaded %d books, want 2", len(books))
	}
	if books[0].ID != 1 || books[1].ID != 2 {
		t.Fatalf("ids = %d,%d, want contiguous from 1", books[0].ID, books[1].ID)
	}
	if books[0].Title != "A Light in the Attic" || books[0].Rating != 3 {
		t.Fatalf("unexpected first book: %+v", books[0])
	}
	if books[1].Category != "Fiction" {
		t.Fatalf("category = %q, want Fiction", books[1].Category)
	}
}

func TestLoadSkipsRowsWithoutTitle(t *testing.T) {
	csv := "titulo,preco,rating,disponibilidade,categoria,imagem\n" +
		",£10.00,3,In stock,Poetry,img\n" +
		"Kept,£20.00,1,In stock,Fiction,img\n" +
		"   ,£30.00,2,In stock,Poetry,img\n"

	books := NewFileStore(writeDataset(t, "books.csv", csv)).Load()
	if len(books) != 1 {
		t.Fatalf("loaded %d books, want 1", len(books))
	}
	if books[0].Title != "Kept" || books[0].ID != 1 {
		t.Fatalf("unexpected book: %+v", books[0])
	}
}

func TestLoadNonNumericRating(t *testing.T) {
	csv := "titulo,preco,rating,disponibilidade,categoria,imagem\n" +
		"No Rating,£10.00,,In stock,Poetry,img\n" +
		"Bad Rating,£20.00,abc,In stock,Fiction,img\n"

	books := NewFileStore(writeDataset(t, "books.csv", csv)).Load()
	if len(books) != 2 {
		t.Fatalf("loaded %d books, want 2", len(books))
	}
	for _, b := range books {
		if b.Rating != 0 {
			t.Errorf("rating for %q = %d, want 0", b.Title, b.Rating)
		}
	}
}

func TestLoadMissingFileYieldsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent.csv"))
	if books := s.Load(); len(books) != 0 {
		t.Fatalf("loaded %d books from missing file, want 0", len(books))
	}
	if s.Exists() {
		t.Fatalf("Exists() should be false for missing file")
	}
}

func TestLoadEmptyFileYieldsEmpty(t *testing.T) {
	books := NewFileStore(writeDataset(t, "books.csv", "")).Load()
	if len(books) != 0 {
		t.Fatalf("loaded %d books from empty file, want 0", len(books))
	}
}

func TestLoadJSONL(t *testing.T) {
	jsonl := `{"titulo":"Sapiens","preco":"£54.23","rating":5,"disponibilidade":"In stock","categoria":"History","imagem":"img"}` + "\n" +
		`{"titulo":"","preco":"£1.00","rating":1}` + "\n" +
		`not json at all` + "\n" +
		`{"titulo":"Soumission","preco":"£50.10","rating":1,"disponibilidade":"In stock","categoria":"Fiction","imagem":"img"}` + "\n"

	books := NewFileStore(writeDataset(t, "books.jsonl", jsonl)).Load()
	if len(books) != 2 {
		t.Fatalf("loaded %d books, want 2", len(books))
	}
	if books[0].Title != "Sapiens" || books[0].ID != 1 {
		t.Fatalf("unexpected first book: %+v", books[0])
	}
	if books[1].Title != "Soumission" || books[1].ID != 2 {
		t.Fatalf("unexpected second book: %+v", books[1])
	}
}
