package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Edit is one key/value pair of a patch, kept in request order.
type Edit struct {
	Key   string
	Value string
}

// Edits is the ordered "edit" object of a patch.
type Edits []Edit

// MarshalJSON encodes the edits as a JSON object in order.
func (e Edits) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ed := range e {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(ed.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(ed.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving member order. A null
// member value decodes as the empty string.
func (e *Edits) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*e = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("edit: expected object, got %v", tok)
	}
	out := Edits{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("edit: expected string key, got %v", tok)
		}
		var value *string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("edit %q: %w", key, err)
		}
		ed := Edit{Key: key}
		if value != nil {
			ed.Value = *value
		}
		out = append(out, ed)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*e = out
	return nil
}

// Patch is a batch of edits and unsets against one profile (v3) or the
// aggregate legacy view (v2).
type Patch struct {
	Edit        Edits    `json:"edit"`
	Unset       []string `json:"unset"`
	ProfileName *string  `json:"profileName,omitempty"`
}

// PatchResult is returned by a v3 patch.
type PatchResult struct {
	Rev      *uint64  `json:"rev,omitempty"`
	Failures []string `json:"failures"`
}

// WriteOp is a single field-level write queued by validation.
type WriteOp struct {
	Key   StorageKey
	Value Value
	Unset bool
}

// WriteSet is the validated, collapsed set of writes of a patch. A later
// write to the same storage key replaces the earlier one.
type WriteSet struct {
	ops   []WriteOp
	index map[StorageKey]int
}

func (w *WriteSet) put(op WriteOp) {
	if w.index == nil {
		w.index = make(map[StorageKey]int)
	}
	if i, ok := w.index[op.Key]; ok {
		w.ops[i] = op
		return
	}
	w.index[op.Key] = len(w.ops)
	w.ops = append(w.ops, op)
}

// Set queues a value write.
func (w *WriteSet) Set(k StorageKey, v Value) {
	w.put(WriteOp{Key: k, Value: v})
}

// Unset queues a removal.
func (w *WriteSet) Unset(k StorageKey) {
	w.put(WriteOp{Key: k, Unset: true})
}

// Ops returns the queued writes in first-queued order.
func (w WriteSet) Ops() []WriteOp {
	return w.ops
}

// Len returns the number of distinct keys written.
func (w WriteSet) Len() int {
	return len(w.ops)
}

// Partition splits the set by pred, preserving order.
func (w WriteSet) Partition(pred func(StorageKey) bool) (match, rest WriteSet) {
	for _, op := range w.ops {
		if pred(op.Key) {
			match.put(op)
		} else {
			rest.put(op)
		}
	}
	return match, rest
}

// ValidateKey encodes a public key and rejects reserved group or subkey
// names.
func ValidateKey(key string) (StorageKey, bool) {
	k, ok := EncodeKey(key)
	if !ok || IsReservedGroup(k.Group) || IsReservedGroup(k.Key) {
		return StorageKey{}, false
	}
	return k, true
}

// ValidateValue reports whether v may be stored.
func ValidateValue(v string) bool {
	return len(v) < MaxValueLength
}

// Validate runs the pure validation pass of a patch. It returns the writes
// to apply and the keys that were rejected, edits first then unsets, each
// in input order. An empty edit value queues a removal.
func (p *Patch) Validate() (WriteSet, []string) {
	var (
		ws       WriteSet
		failures = []string{}
	)
	for _, ed := range p.Edit {
		k, ok := ValidateKey(ed.Key)
		if !ok {
			failures = append(failures, ed.Key)
			continue
		}
		if ed.Value == "" {
			ws.Unset(k)
			continue
		}
		if !ValidateValue(ed.Value) {
			failures = append(failures, ed.Key)
			continue
		}
		ws.Set(k, StringValue(ed.Value))
	}
	for _, key := range p.Unset {
		k, ok := ValidateKey(key)
		if !ok {
			failures = append(failures, key)
			continue
		}
		ws.Unset(k)
	}
	return ws, failures
}
