package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
)

func renderJSON(w io.Writer, def *Definition, rs *domain.ResultSet) error {
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf)

	if err := enc.WriteToken(jsontext.BeginArray); err != nil {
		return err
	}
	for _, row := range rs.Rows {
		if err := enc.WriteToken(jsontext.BeginObject); err != nil {
			return err
		}
		for _, c := range def.Columns {
			if err := enc.WriteToken(jsontext.String(c.Field)); err != nil {
				return err
			}
			if err := writeJSONValue(enc, c, row[c.Field]); err != nil {
				return fmt.Errorf("field %s: %w", c.Field, err)
			}
		}
		if err := enc.WriteToken(jsontext.EndObject); err != nil {
			return err
		}
	}
	if err := enc.WriteToken(jsontext.EndArray); err != nil {
		return err
	}

	_, err := w.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	return err
}

func writeJSONValue(enc *jsontext.Encoder, c ColumnSpec, v any) error {
	switch c.Format {
	case FormatAccountID:
		if v == nil {
			return enc.WriteToken(jsontext.Null)
		}
		if id, ok := AccountIDFromValue(v); ok {
			return enc.WriteToken(jsontext.String(id.String()))
		}
	case FormatDate:
		if v == nil {
			return enc.WriteToken(jsontext.Null)
		}
		return enc.WriteToken(jsontext.String(dateValue(v)))
	case FormatBool:
		if v == nil {
			return enc.WriteToken(jsontext.Null)
		}
		return enc.WriteToken(jsontext.Bool(truthy(v)))
	case FormatMultiValue:
		if err := enc.WriteToken(jsontext.BeginArray); err != nil {
			return err
		}
		for _, s := range MultiValues(v) {
			if err := enc.WriteToken(jsontext.String(s)); err != nil {
				return err
			}
		}
		return enc.WriteToken(jsontext.EndArray)
	}
	return writeJSONScalar(enc, v)
}

func writeJSONScalar(enc *jsontext.Encoder, v any) error {
	switch x := v.(type) {
	case nil:
		return enc.WriteToken(jsontext.Null)
	case string:
		return enc.WriteToken(jsontext.String(x))
	case []byte:
		return enc.WriteToken(jsontext.String(string(x)))
	case bool:
		return enc.WriteToken(jsontext.Bool(x))
	case int:
		return enc.WriteToken(jsontext.Int(int64(x)))
	case int32:
		return enc.WriteToken(jsontext.Int(int64(x)))
	case int64:
		return enc.WriteToken(jsontext.Int(x))
	case uint64:
		return enc.WriteToken(jsontext.Uint(x))
	case float32:
		return writeJSONFloat(enc, float64(x))
	case float64:
		return writeJSONFloat(enc, x)
	case time.Time:
		return enc.WriteToken(jsontext.String(x.Format(time.RFC3339)))
	default:
		return enc.WriteToken(jsontext.String(textValue(x)))
	}
}

func writeJSONFloat(enc *jsontext.Encoder, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return enc.WriteToken(jsontext.Null)
	}
	return enc.WriteToken(jsontext.Float(f))
}
