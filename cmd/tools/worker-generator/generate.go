package main

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"strings"
	"text/template"
	"time"

	"loan-eligibility-workers/pkg/registry"
)

// Field is one struct field derived from a schema property.
type Field struct {
	GoName   string
	GoType   string
	JSONName string
	Required bool
	Validate string
}

type workerData struct {
	PackageName string
	TaskType    string
	TimeoutExpr string
	Input       []Field
	Output      []Field
}

var initialisms = map[string]string{
	"id": "ID", "pan": "PAN", "ifsc": "IFSC", "url": "URL", "sms": "SMS",
}

// Render produces gofmt'd config.go, models.go and handler.go for activity.
func Render(activity *registry.Activity) (map[string][]byte, error) {
	data := workerData{
		PackageName: strings.ReplaceAll(activity.TaskType, "-", ""),
		TaskType:    activity.TaskType,
		TimeoutExpr: timeoutExpr(activity),
		Input:       schemaFields(activity.InputSchema, true),
		Output:      schemaFields(activity.OutputSchema, false),
	}

	out := make(map[string][]byte, 3)
	for name, tmpl := range map[string]string{
		"config.go":  configTemplate,
		"models.go":  modelsTemplate,
		"handler.go": handlerTemplate,
	} {
		t, err := template.New(name).Parse(tmpl)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		src, err := format.Source(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("format %s: %w", name, err)
		}
		out[name] = src
	}
	return out, nil
}

// schemaFields lists properties in name order. Input fields marked
// required get a validate tag.
func schemaFields(schema map[string]interface{}, input bool) []Field {
	props, _ := schema["properties"].(map[string]interface{})
	required := map[string]bool{}
	if list, ok := schema["required"].([]interface{}); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		details, _ := props[name].(map[string]interface{})
		f := Field{
			GoName:   goName(name),
			GoType:   goType(details["type"]),
			JSONName: name,
			Required: required[name],
		}
		if input && f.Required && f.GoType != "bool" {
			f.Validate = "required"
		}
		fields = append(fields, f)
	}
	return fields
}

func goType(jsonType interface{}) string {
	switch jsonType {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "array":
		return "[]interface{}"
	case "object":
		return "map[string]interface{}"
	default:
		return "interface{}"
	}
}

// goName turns camelCase JSON names into exported Go names, keeping
// common initialisms upper case.
func goName(jsonName string) string {
	var words []string
	start := 0
	for i := 1; i < len(jsonName); i++ {
		if jsonName[i] >= 'A' && jsonName[i] <= 'Z' {
			words = append(words, jsonName[start:i])
			start = i
		}
	}
	words = append(words, jsonName[start:])

	var b strings.Builder
	for _, w := range words {
		if w == "" {
			continue
		}
		if up, ok := initialisms[strings.ToLower(w)]; ok {
			b.WriteString(up)
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]) + w[1:])
	}
	return b.String()
}

func timeoutExpr(activity *registry.Activity) string {
	d, err := activity.TimeoutDuration()
	if err != nil {
		d = registry.DefaultTimeout
	}
	if d%time.Second == 0 {
		return fmt.Sprintf("%d * time.Second", int(d/time.Second))
	}
	return fmt.Sprintf("%d * time.Millisecond", int(d/time.Millisecond))
}
