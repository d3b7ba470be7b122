package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ai-finance-manager/internal/models"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var ErrMalformedLabels = errors.New("malformed classifier response")

const labelObjectSchema = `{
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["index", "category"],
        "properties": {
          "index": {"type": "integer", "minimum": 0},
          "category": {"type": "string"}
        }
      }
    }
  }
}`

const labelArraySchema = `{
  "type": "array",
  "items": {"type": "string"}
}`

var (
	labelObject = jsonschema.MustCompileString("labels-object.json", labelObjectSchema)
	labelArray  = jsonschema.MustCompileString("labels-array.json", labelArraySchema)
)

// ClassificationSystemPrompt is the fixed instruction for a chat model.
func ClassificationSystemPrompt() string {
	return fmt.Sprintf(
		"You categorize expense lines taken from shopping receipts. "+
			"Each line must get exactly one category from this list: %s. "+
			"Use OTHER when nothing fits. Answer with JSON only.",
		strings.Join(models.CategoryNames(), ", "),
	)
}

// ClassificationUserPrompt lists the descriptions to label.
func ClassificationUserPrompt(descriptions []string) string {
	list, _ := json.Marshal(descriptions)
	return fmt.Sprintf(
		"Receipt lines as a JSON array, positions start at 0:\n%s\n\n"+
			`Return {"items":[{"index":<position>,"category":"<CATEGORY>"}]} with one entry per position.`,
		list,
	)
}

type labelItem struct {
	Index    int    `json:"index"`
	Category string `json:"category"`
}

type labelEnvelope struct {
	Items []labelItem `json:"items"`
}

// DecodeLabels reads a model reply into n labels. Both the indexed object form
// and a bare array of labels are accepted; positions the model skipped stay empty.
func DecodeLabels(content string, n int) ([]string, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLabels, err)
	}

	labels := make([]string, n)
	switch doc.(type) {
	case map[string]any:
		if err := labelObject.Validate(doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedLabels, err)
		}
		var env labelEnvelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedLabels, err)
		}
		for _, item := range env.Items {
			if item.Index < n {
				labels[item.Index] = item.Category
			}
		}
	case []any:
		if err := labelArray.Validate(doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedLabels, err)
		}
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedLabels, err)
		}
		copy(labels, list)
	default:
		return nil, fmt.Errorf("%w: unexpected JSON value", ErrMalformedLabels)
	}
	return labels, nil
}

// extractJSON strips markdown fences and surrounding prose from a model reply.
func extractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.IndexAny(content, "{[")
	if start == -1 {
		return "", fmt.Errorf("%w: no JSON found", ErrMalformedLabels)
	}
	closer := "}"
	if content[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(content, closer)
	if end < start {
		return "", fmt.Errorf("%w: unterminated JSON", ErrMalformedLabels)
	}
	return content[start : end+1], nil
}
