package openapi

import (
	"github.com/goliatone/go-enrollment/pkg/form"
	"github.com/goliatone/go-enrollment/pkg/rules"
)

type object = map[string]any

func ref(name string) object {
	return object{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema object) object {
	return object{"application/json": object{"schema": schema}}
}

func response(description string, schema object) object {
	out := object{"description": description}
	if schema != nil {
		out["content"] = jsonContent(schema)
	}
	return out
}

func errorResponse(description string) object {
	return response(description, ref(SchemaError))
}

func document(f *form.Form, table *rules.Table, opts Options) object {
	server := opts.BasePath
	if server == "" {
		server = "/"
	}
	return object{
		"openapi": "3.0.3",
		"info": object{
			"title":   opts.Title,
			"version": opts.Version,
		},
		"servers": []object{{"url": server}},
		"paths":   paths(),
		"components": object{
			"schemas": object{
				SchemaEnrollment: enrollmentSchema(f, table),
				SchemaFieldEvent: fieldEventSchema(),
				SchemaReceipt: object{
					"type":       "object",
					"required":   []string{"id"},
					"properties": object{"id": object{"type": "string", "example": "ST1792152000000"}},
				},
				SchemaOutcome: outcomeSchema(),
				SchemaSnapshot: object{
					"type": "object",
					"properties": object{
						"name":   object{"type": "string"},
						"fields": object{"type": "array", "items": object{"type": "object"}},
						"view":   object{"type": "object"},
						"state":  object{"type": "string", "enum": []string{"idle", "validating", "submitting"}},
					},
				},
				SchemaError: object{
					"type":       "object",
					"required":   []string{"error"},
					"properties": object{"error": object{"type": "string"}},
				},
			},
		},
	}
}

func enrollmentSchema(f *form.Form, table *rules.Table) object {
	properties := object{}
	var required []string
	for _, field := range f.Fields() {
		prop := object{"type": "string", "description": field.DisplayLabel()}
		switch field.Kind {
		case form.KindEmail:
			prop["format"] = "email"
		case form.KindDate:
			prop["format"] = "date"
		case form.KindSelect:
			values := make([]string, 0, len(field.Options))
			for _, option := range field.Options {
				values = append(values, option.Value)
			}
			prop["enum"] = values
		case form.KindCheckbox:
			prop["enum"] = []string{field.Value}
		}

		if table != nil {
			if rule, ok := table.Rule(field.ID); ok {
				if rule.Required {
					required = append(required, field.ID)
				}
				if rule.MinLength > 0 {
					prop["minLength"] = rule.MinLength
				}
				if source := rule.PatternSource(); source != "" {
					prop["pattern"] = source
				}
				if rule.Message != "" {
					prop["x-message"] = rule.Message
				}
			}
		}
		properties[field.ID] = prop
	}

	schema := object{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func fieldEventSchema() object {
	return object{
		"type":     "object",
		"required": []string{"event"},
		"properties": object{
			"event":   object{"type": "string", "enum": []string{"input", "change", "blur", "focus"}},
			"value":   object{"type": "string"},
			"checked": object{"type": "boolean"},
		},
	}
}

func outcomeSchema() object {
	return object{
		"type":     "object",
		"required": []string{"kind"},
		"properties": object{
			"kind":         object{"type": "string", "enum": []string{"rejected", "invalid", "success", "failure"}},
			"attempt":      object{"type": "string"},
			"receipt":      ref(SchemaReceipt),
			"firstInvalid": object{"type": "string"},
			"results": object{
				"type": "array",
				"items": object{
					"type": "object",
					"properties": object{
						"field":   object{"type": "string"},
						"status":  object{"type": "string", "enum": []string{"valid", "invalid", "skipped"}},
						"message": object{"type": "string"},
					},
				},
			},
		},
	}
}

func paths() object {
	snapshot := response("Current form snapshot", ref(SchemaSnapshot))
	return object{
		"/api/form": object{
			"get": object{
				"operationId": "getForm",
				"summary":     "Fields, values, field states, banner and busy flag",
				"responses":   object{"200": snapshot},
			},
		},
		"/api/fields/{id}": object{
			"parameters": []object{{
				"name": "id", "in": "path", "required": true,
				"schema": object{"type": "string"},
			}},
			"post": object{
				"operationId": "fieldEvent",
				"summary":     "Apply an input, change, blur or focus event to one field",
				"requestBody": object{"required": true, "content": jsonContent(ref(SchemaFieldEvent))},
				"responses": object{
					"200": snapshot,
					"400": errorResponse("Malformed event"),
					"404": errorResponse("Unknown field"),
				},
			},
		},
		"/api/draft": object{
			"post": object{
				"operationId": "saveDraft",
				"summary":     "Save the draft and confirm with a banner",
				"responses": object{
					"200": snapshot,
					"303": object{"description": "Back to the page after an HTML form post"},
				},
			},
			"delete": object{
				"operationId": "resetForm",
				"summary":     "Reset values, field states and the draft",
				"parameters": []object{{
					"name": "confirm", "in": "query",
					"schema": object{"type": "boolean"},
				}},
				"responses": object{"200": snapshot},
			},
		},
		"/api/reset": object{
			"post": object{
				"operationId": "resetFromPage",
				"summary":     "Reset from the HTML form; the confirm field must be true",
				"requestBody": object{"content": object{
					"application/x-www-form-urlencoded": object{"schema": object{
						"type":       "object",
						"properties": object{"confirm": object{"type": "string"}},
					}},
				}},
				"responses": object{
					"200": snapshot,
					"303": object{"description": "Back to the page"},
				},
			},
		},
		"/api/unload": object{
			"post": object{
				"operationId": "unload",
				"summary":     "Save the draft silently",
				"responses":   object{"204": object{"description": "Saved"}},
			},
		},
		"/api/submit": object{
			"post": object{
				"operationId": "submit",
				"summary":     "Validate the whole form and submit it",
				"responses": object{
					"200": response("Accepted", ref(SchemaOutcome)),
					"409": response("A submission is already in flight", ref(SchemaOutcome)),
					"422": response("The form is invalid", ref(SchemaOutcome)),
					"502": response("The remote service failed", ref(SchemaOutcome)),
					"303": object{"description": "Back to the page after an HTML form post"},
				},
			},
		},
		"/api/openapi.json": object{
			"get": object{
				"operationId": "describe",
				"summary":     "This document",
				"responses":   object{"200": object{"description": "OpenAPI document"}},
			},
		},
	}
}
