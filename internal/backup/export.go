package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/runelite/api.runelite.net/internal/model"
)

// Source is the part of store.Store an export reads from.
type Source interface {
	Export(ctx context.Context, fn func(*model.Document) error) error
}

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version       string    `json:"version"`
	Type          string    `json:"type"`
	BackupID      string    `json:"backup_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	DocumentCount int       `json:"document_count"`
	UserCount     int       `json:"user_count"`
	LegacyCount   int       `json:"legacy_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string          `json:"type"`
	Data *model.Document `json:"data"`
}

// profileOrder sorts legacy documents before any profile of the same user.
func profileOrder(d *model.Document) int64 {
	if d.Profile == nil {
		return -1 << 62
	}
	return int64(d.Profile.ID)
}

// ExportJSONL writes every stored document as JSONL to w, ordered by user
// and then profile id, after a header record carrying the counts.
func ExportJSONL(ctx context.Context, src Source, backupID string, w io.Writer) error {
	var docs []*model.Document
	if err := src.Export(ctx, func(d *model.Document) error {
		docs = append(docs, d)
		return nil
	}); err != nil {
		return fmt.Errorf("export documents: %w", err)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].UserID != docs[j].UserID {
			return docs[i].UserID < docs[j].UserID
		}
		return profileOrder(docs[i]) < profileOrder(docs[j])
	})

	h := header{
		Version:       "1",
		Type:          "header",
		BackupID:      backupID,
		Timestamp:     time.Now().UTC(),
		DocumentCount: len(docs),
	}
	for i, d := range docs {
		if i == 0 || d.UserID != docs[i-1].UserID {
			h.UserCount++
		}
		if d.IsLegacy() {
			h.LegacyCount++
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for _, d := range docs {
		if err := enc.Encode(record{Type: "document", Data: d}); err != nil {
			return fmt.Errorf("encode document of user %d: %w", d.UserID, err)
		}
	}
	return nil
}
