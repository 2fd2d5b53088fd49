package index

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/cuemby/holt/pkg/types"
)

// BulkWriter assembles a newline-delimited bulk payload for one engine
// index. Upserts are an action line followed by a document line; deletes
// are a single action line. A writer never batches across indices.
type BulkWriter struct {
	index   string
	buf     bytes.Buffer
	actions int
}

// NewBulkWriter creates a writer targeting the named engine index.
func NewBulkWriter(index string) *BulkWriter {
	return &BulkWriter{index: index}
}

type bulkTarget struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

// Upsert appends an update action that inserts the document when the id
// is absent. Replaying the same document is a no-op on the engine side.
func (w *BulkWriter) Upsert(id string, doc *types.IndexDocument) error {
	action := struct {
		Update bulkTarget `json:"update"`
	}{bulkTarget{Index: w.index, ID: id}}
	body := struct {
		Doc         *types.IndexDocument `json:"doc"`
		DocAsUpsert bool                 `json:"doc_as_upsert"`
	}{doc, true}
	if err := w.writeLine(action); err != nil {
		return err
	}
	if err := w.writeLine(body); err != nil {
		return err
	}
	w.actions++
	return nil
}

// Delete appends a delete action. Deleting an absent id is not an error.
func (w *BulkWriter) Delete(id string) error {
	action := struct {
		Delete bulkTarget `json:"delete"`
	}{bulkTarget{Index: w.index, ID: id}}
	if err := w.writeLine(action); err != nil {
		return err
	}
	w.actions++
	return nil
}

func (w *BulkWriter) writeLine(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.buf.Write(data)
	w.buf.WriteByte('\n')
	return nil
}

// Actions reports how many operations the payload carries.
func (w *BulkWriter) Actions() int {
	return w.actions
}

// Reader exposes the assembled payload for submission.
func (w *BulkWriter) Reader() io.Reader {
	return bytes.NewReader(w.buf.Bytes())
}
