package loader

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/claims-cli/internal/model"
)

// parseJSON reads a JSON document holding either an array of objects or a
// single object. Numbers keep their literal text so identifiers such as
// 00123 are never reinterpreted.
func parseJSON(r io.Reader, source string) ([]model.Record, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "json: decode document")
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, eris.New("json: trailing data after document")
	}

	switch v := doc.(type) {
	case []any:
		records := make([]model.Record, 0, len(v))
		for i, elem := range v {
			obj, ok := elem.(map[string]any)
			if !ok {
				return nil, eris.Errorf("json: element %d is not an object", i)
			}
			records = append(records, objectRecord(obj, source))
		}
		return records, nil
	case map[string]any:
		return []model.Record{objectRecord(v, source)}, nil
	default:
		return nil, eris.Errorf("json: expected array or object, got %T", doc)
	}
}

func objectRecord(obj map[string]any, source string) model.Record {
	rec := model.NewRecord(source)
	for k, v := range obj {
		rec.Set(k, jsonValue(v))
	}
	return rec
}

func jsonValue(v any) model.Value {
	switch x := v.(type) {
	case nil:
		return model.NullValue()
	case string:
		return model.Text(x)
	case json.Number:
		return model.Text(x.String())
	case bool:
		if x {
			return model.Text("true")
		}
		return model.Text("false")
	default:
		// Nested arrays and objects are kept as compact JSON text.
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(x); err != nil {
			return model.NullValue()
		}
		return model.Text(string(bytes.TrimSpace(buf.Bytes())))
	}
}
