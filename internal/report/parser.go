package report

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Parser deserializes an exported report.
type Parser interface {
	Parse(data []byte) (*Report, error)
}

// JSONParser parses a JSON report.
type JSONParser struct{}

func (p *JSONParser) Parse(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse JSON report: %w", err)
	}
	if r.Version == 0 {
		return nil, fmt.Errorf("not a valid intervbot report: missing version")
	}
	return &r, nil
}

// MarkdownParser reads the payload embedded by MarkdownRenderer.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(data []byte) (*Report, error) {
	content := string(data)
	if !strings.Contains(content, sentinel) {
		return nil, fmt.Errorf("not a valid intervbot report: missing version sentinel")
	}

	start := strings.Index(content, dataPrefix)
	if start == -1 {
		return nil, fmt.Errorf("not a valid intervbot report: missing data payload")
	}
	start += len(dataPrefix)
	end := strings.Index(content[start:], dataSuffix)
	if end == -1 {
		return nil, fmt.Errorf("not a valid intervbot report: malformed data payload")
	}

	jsonBytes, err := base64.StdEncoding.DecodeString(content[start : start+end])
	if err != nil {
		return nil, fmt.Errorf("not a valid intervbot report: corrupted base64 payload: %w", err)
	}
	var r Report
	if err := json.Unmarshal(jsonBytes, &r); err != nil {
		return nil, fmt.Errorf("not a valid intervbot report: failed to parse embedded JSON: %w", err)
	}
	return &r, nil
}

// Parse picks the parser from the content: JSON when it starts with '{',
// Markdown otherwise.
func Parse(data []byte) (*Report, error) {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return (&JSONParser{}).Parse(data)
	}
	return (&MarkdownParser{}).Parse(data)
}
