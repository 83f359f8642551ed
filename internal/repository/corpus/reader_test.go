package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/rankeval/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadItems_Parquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.parquet")
	rows := []itemRow{
		{ID: "d1", Modality: "text", Text: "first document"},
		{ID: "d2", Text: "second document"},
		{ID: "d3", Modality: "image", Image: "images/d3.png"},
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		t.Fatalf("write parquet: %v", err)
	}

	items, err := ReadItems(path)
	if err != nil {
		t.Fatalf("ReadItems: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].ID != "d1" || items[0].Text != "first document" {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].Modality != domain.ModalityText {
		t.Errorf("missing modality should default to text, got %q", items[1].Modality)
	}
	if items[2].Modality != domain.ModalityImage || items[2].ImagePath != "images/d3.png" {
		t.Errorf("items[2] = %+v", items[2])
	}
}

func TestReadItems_JSONL(t *testing.T) {
	path := writeFile(t, "queries.jsonl", `{"id":"q1","text":"what is dense retrieval"}

{"id":"q2","modality":"text+image","text":"similar scene","image":"q2.png"}
`)

	items, err := ReadItems(path)
	if err != nil {
		t.Fatalf("ReadItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (blank lines skipped)", len(items))
	}
	if items[1].Modality != domain.ModalityTextImage {
		t.Errorf("items[1].Modality = %q, want text+image", items[1].Modality)
	}
}

func TestReadItems_UnknownModality(t *testing.T) {
	path := writeFile(t, "bad.jsonl", `{"id":"q1","modality":"audio"}`)

	_, err := ReadItems(path)
	if !errors.Is(err, domain.ErrUnsupportedModality) {
		t.Fatalf("err = %v, want ErrUnsupportedModality", err)
	}
}

func TestReadItems_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "corpus.csv", "id,text\n")

	if _, err := ReadItems(path); err == nil {
		t.Fatal("expected error for .csv")
	}
}

func TestReadItems_MalformedJSONL(t *testing.T) {
	path := writeFile(t, "bad.jsonl", `{"id":"q1"`)

	if _, err := ReadItems(path); err == nil {
		t.Fatal("expected error for truncated JSON line")
	}
}

func TestReadQrels(t *testing.T) {
	path := writeFile(t, "qrels.tsv",
		"query-id\tcorpus-id\tscore\nq1\td1\t2\nq1\td2\t0\nq2\td3\t1\n")

	qrels, err := ReadQrels(path)
	if err != nil {
		t.Fatalf("ReadQrels: %v", err)
	}
	want := domain.Qrels{
		"q1": {"d1": 2, "d2": 0},
		"q2": {"d3": 1},
	}
	if len(qrels) != len(want) {
		t.Fatalf("got %d queries, want %d", len(qrels), len(want))
	}
	for qid, docs := range want {
		for did, rel := range docs {
			if qrels[qid][did] != rel {
				t.Errorf("qrels[%s][%s] = %d, want %d", qid, did, qrels[qid][did], rel)
			}
		}
	}
}

func TestReadQrels_NoHeader(t *testing.T) {
	path := writeFile(t, "qrels.tsv", "q1\td1\t1\n")

	qrels, err := ReadQrels(path)
	if err != nil {
		t.Fatalf("ReadQrels: %v", err)
	}
	if qrels["q1"]["d1"] != 1 {
		t.Errorf("qrels = %v", qrels)
	}
}

func TestReadQrels_BadRow(t *testing.T) {
	path := writeFile(t, "qrels.tsv", "q1\td1\t1\nq2\td2\n")

	if _, err := ReadQrels(path); err == nil {
		t.Fatal("expected error for 2-field row")
	}
}

func TestReadQrels_NonNumericScoreBeyondHeader(t *testing.T) {
	path := writeFile(t, "qrels.tsv", "q1\td1\t1\nq2\td2\thigh\n")

	if _, err := ReadQrels(path); err == nil {
		t.Fatal("expected error for non-numeric score on line 2")
	}
}
