package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RepairJSON fixes the JSON defects models commonly produce: single quotes,
// unquoted keys, trailing commas, unclosed brackets, markdown fences.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair failed: %w", err)
	}
	return repaired, nil
}

// ParseHJSON parses Hjson (comments, unquoted keys, optional commas) and
// returns standard JSON. The most lenient strategy in the parse chain.
func ParseHJSON(input string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(input), &result); err != nil {
		return "", fmt.Errorf("hjson parse failed: %w", err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("hjson remarshal failed: %w", err)
	}
	return string(out), nil
}

// ExtractJSONBlock pulls the first JSON object out of free-form model text.
// Handles fenced ```json blocks and prose surrounding a bare object.
func ExtractJSONBlock(input string) string {
	if idx := strings.Index(input, "```json"); idx >= 0 {
		rest := input[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	start := strings.Index(input, "{")
	end := strings.LastIndex(input, "}")
	if start >= 0 && end > start {
		return input[start : end+1]
	}
	return strings.TrimSpace(input)
}

// SmartParse unmarshals model output into schema, trying progressively more
// forgiving strategies: strict JSON, repaired JSON, then Hjson. Returns the
// normalized JSON string that finally parsed.
func SmartParse(input string, schema interface{}) (string, error) {
	candidate := ExtractJSONBlock(input)

	if err := json.Unmarshal([]byte(candidate), schema); err == nil {
		return candidate, nil
	}

	if repaired, err := RepairJSON(candidate); err == nil {
		if err := json.Unmarshal([]byte(repaired), schema); err == nil {
			return repaired, nil
		}
	}

	if normalized, err := ParseHJSON(candidate); err == nil {
		if err := json.Unmarshal([]byte(normalized), schema); err == nil {
			return normalized, nil
		}
	}

	return "", fmt.Errorf("all parsing strategies failed for model output")
}
