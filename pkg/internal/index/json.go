package index

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// documentJSON 除 published/draft 外的字段.
type documentJSON struct {
	Published  json.RawMessage `json:"published"`
	Draft      json.RawMessage `json:"draft"`
	Meta       Meta            `json:"meta"`
	ErrorFiles []string        `json:"error_files"`
}

// MarshalJSON published 与 draft 输出为以文件名为键的对象，保持组内顺序.
func (d Document) MarshalJSON() ([]byte, error) {
	published, err := marshalBucket(d.Published)
	if err != nil {
		return nil, err
	}

	draft, err := marshalBucket(d.Draft)
	if err != nil {
		return nil, err
	}

	files := d.ErrorFiles
	if files == nil {
		files = []string{}
	}

	return json.Marshal(documentJSON{Published: published, Draft: draft, Meta: d.Meta, ErrorFiles: files})
}

// UnmarshalJSON 读取 MarshalJSON 的输出，published 与 draft 也接受数组.
func (d *Document) UnmarshalJSON(b []byte) error {
	var raw documentJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	published, err := unmarshalBucket(raw.Published)
	if err != nil {
		return fmt.Errorf("published: %w", err)
	}

	draft, err := unmarshalBucket(raw.Draft)
	if err != nil {
		return fmt.Errorf("draft: %w", err)
	}

	files := raw.ErrorFiles
	if files == nil {
		files = []string{}
	}

	*d = Document{Published: published, Draft: draft, Meta: raw.Meta, ErrorFiles: files}

	return nil
}

func marshalBucket(entries []Entry) (json.RawMessage, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}

		kb, err := json.Marshal(e.FileName)
		if err != nil {
			return nil, err
		}

		vb, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}

		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func unmarshalBucket(b json.RawMessage) ([]Entry, error) {
	out := []Entry{}

	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return out, nil
	}

	if b[0] == '[' {
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, err
		}

		return out, nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))

	if tok, err := dec.Token(); err != nil {
		return nil, err
	} else if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("bucket must be a JSON object")
	}

	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}

		var e Entry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("entry %v: %w", kt, err)
		}

		if e.FileName == "" {
			e.FileName, _ = kt.(string)
		}

		out = append(out, e)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return out, nil
}
