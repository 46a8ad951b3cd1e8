package audit

import (
	"bytes"
	"io"
	"strings"

	"github.com/go-json-experiment/json/jsontext"
)

// encodePolicy writes {"PolicyName": ..., "PolicyDocument": ...}. A stored
// document that is valid JSON is embedded as-is, anything else as a string.
func encodePolicy(w io.Writer, p *PolicyDocument) error {
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf)

	tokens := []jsontext.Token{
		jsontext.BeginObject,
		jsontext.String("PolicyName"),
		jsontext.String(p.Name),
		jsontext.String("PolicyDocument"),
	}
	for _, tok := range tokens {
		if err := enc.WriteToken(tok); err != nil {
			return err
		}
	}

	doc := jsontext.Value(strings.TrimSpace(p.Document))
	if len(doc) > 0 && doc.IsValid() {
		if err := enc.WriteValue(doc); err != nil {
			return err
		}
	} else if err := enc.WriteToken(jsontext.String(p.Document)); err != nil {
		return err
	}

	if err := enc.WriteToken(jsontext.EndObject); err != nil {
		return err
	}
	_, err := w.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	return err
}

// policyFilename keeps the characters IAM allows in policy names.
func policyFilename(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case strings.ContainsRune("+=,.@_-", r):
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "policy.json"
	}
	return sb.String() + ".json"
}
