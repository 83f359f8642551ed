// Package corpus loads benchmark datasets: corpus and query items from
// parquet or JSONL files, and relevance judgments from BEIR-style TSV.
package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/rankeval/internal/domain"
)

// itemRow is the flat parquet/JSONL schema for corpus and query files.
type itemRow struct {
	ID       string `parquet:"id" json:"id"`
	Modality string `parquet:"modality,optional" json:"modality,omitempty"`
	Text     string `parquet:"text,optional" json:"text,omitempty"`
	Image    string `parquet:"image,optional" json:"image,omitempty"`
}

func (r itemRow) toItem() (domain.Item, error) {
	m := domain.Modality(r.Modality)
	if r.Modality == "" {
		m = domain.ModalityText
	}
	if !m.Valid() {
		return domain.Item{}, fmt.Errorf("item %q: %w: %q", r.ID, domain.ErrUnsupportedModality, r.Modality)
	}
	return domain.Item{
		ID:        r.ID,
		Modality:  m,
		Text:      r.Text,
		ImagePath: r.Image,
	}, nil
}

// ReadItems loads items from path, dispatching on the file extension:
// .parquet or .jsonl.
func ReadItems(path string) (domain.Items, error) {
	switch ext := filepath.Ext(path); ext {
	case ".parquet":
		return readParquet(path)
	case ".jsonl":
		return readJSONL(path)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q (want .parquet or .jsonl)", ext)
	}
}

func readParquet(path string) (domain.Items, error) {
	rows, err := parquet.ReadFile[itemRow](filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", filepath.Base(path), err)
	}

	items := make(domain.Items, 0, len(rows))
	for _, r := range rows {
		item, err := r.toItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func readJSONL(path string) (domain.Items, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	var items domain.Items
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var r itemRow
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
		}
		item, err := r.toItem()
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
		}
		items = append(items, item)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", filepath.Base(path), err)
	}
	return items, nil
}

// ReadQrels loads relevance judgments from a BEIR-style TSV file with
// columns query-id, corpus-id, score. A header row is skipped when the
// score column is not numeric.
func ReadQrels(path string) (domain.Qrels, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	qrels := domain.Qrels{}
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}

		fields := strings.Split(raw, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s line %d: want 3 tab-separated fields, got %d",
				filepath.Base(path), line, len(fields))
		}

		score, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("%s line %d: parse score: %w", filepath.Base(path), line, err)
		}

		qid := strings.TrimSpace(fields[0])
		did := strings.TrimSpace(fields[1])
		if qrels[qid] == nil {
			qrels[qid] = map[string]int{}
		}
		qrels[qid][did] = score
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", filepath.Base(path), err)
	}
	return qrels, nil
}
