// parser.go - Parse standalone template JSON files (CLI render input) and
// provide a starter document for `certpress init`.
package template

import (
	"encoding/json"
	"fmt"
	"os"
)

// ParseTemplate decodes template JSON and applies field defaults.
func ParseTemplate(data []byte) (*Template, error) {
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	// A persisted template without fields still needs one editable entry.
	if len(t.Fields) == 0 {
		t.Fields = []Field{NewField()}
	}
	for i := range t.Fields {
		applyFieldDefaults(&t.Fields[i])
	}

	return &t, nil
}

// ParseTemplateFile reads and parses a template JSON file.
func ParseTemplateFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseTemplate(data)
}

// SampleTemplateJSON returns a starter template document.
func SampleTemplateJSON() string {
	return `{
  "name": "Course completion",
  "description": "Default completion certificate layout",
  "background": "",
  "fontFamily": "Arial",
  "isActive": true,
  "fields": [
    {
      "name": "studentName",
      "nameDisplay": "Student name",
      "x": 450,
      "y": 320,
      "fontSize": 48,
      "fontColor": "#1a1a2e",
      "textAlign": "center",
      "isChoose": true
    },
    {
      "name": "courseName",
      "nameDisplay": "Course name",
      "x": 450,
      "y": 400,
      "fontSize": 28,
      "fontColor": "#000000",
      "textAlign": "center",
      "isChoose": true
    },
    {
      "name": "timeComplete",
      "nameDisplay": "Completion date",
      "x": 450,
      "y": 460,
      "fontSize": 18,
      "fontColor": "#333333",
      "textAlign": "center",
      "isChoose": false
    }
  ]
}
`
}
