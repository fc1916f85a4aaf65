package page

import (
	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-enrollment/pkg/form"
	"github.com/goliatone/go-enrollment/pkg/presenter"
	"github.com/goliatone/go-enrollment/pkg/rules"
)

type themeView struct {
	Name       string
	Variant    string
	Stylesheet string
	CSS        string
}

// layoutView carries what layout.tpl needs on every page.
type layoutView struct {
	Title    string
	BasePath string
	Theme    themeView
}

func (v layoutView) context() pongo2.Context {
	return pongo2.Context{
		"title":     v.Title,
		"base_path": v.BasePath,
		"theme": pongo2.Context{
			"name":       v.Theme.Name,
			"variant":    v.Theme.Variant,
			"stylesheet": v.Theme.Stylesheet,
			"css":        v.Theme.CSS,
		},
	}
}

// fieldView is one control together with its shown validation state.
type fieldView struct {
	form.Field
	Status  rules.Status
	Message string
}

func (f fieldView) context() pongo2.Context {
	options := make([]pongo2.Context, 0, len(f.Options))
	for _, option := range f.Options {
		options = append(options, pongo2.Context{"value": option.Value, "label": option.Label})
	}
	return pongo2.Context{
		"id":          f.ID,
		"label":       f.Label,
		"kind":        string(f.Kind),
		"value":       f.Value,
		"checked":     f.Checked,
		"placeholder": f.Placeholder,
		"options":     options,
		"live":        f.Live,
		"min":         f.Min,
		"max":         f.Max,
		"required":    f.Required(),
		"status":      string(f.Status),
		"message":     f.Message,
	}
}

type formView struct {
	layoutView
	FormName  string
	Fields    []fieldView
	Busy      bool
	Focus     string
	Banner    *presenter.Banner
	Documents []Document
}

func newFormView(layout layoutView, name string, fields []form.Field, state presenter.View, docs []Document) formView {
	v := formView{
		layoutView: layout,
		FormName:   name,
		Fields:     make([]fieldView, 0, len(fields)),
		Busy:       state.Busy,
		Focus:      state.Focus,
		Banner:     state.Banner,
		Documents:  docs,
	}
	for _, field := range fields {
		item := fieldView{Field: field}
		if result, ok := state.Fields[field.ID]; ok {
			item.Status = result.Status
			item.Message = result.Message
		}
		v.Fields = append(v.Fields, item)
	}
	return v
}

func (v formView) context() pongo2.Context {
	ctx := v.layoutView.context()
	fields := make([]pongo2.Context, 0, len(v.Fields))
	for _, field := range v.Fields {
		fields = append(fields, field.context())
	}
	docs := make([]pongo2.Context, 0, len(v.Documents))
	for _, doc := range v.Documents {
		if doc.Slug == "" {
			continue
		}
		docs = append(docs, pongo2.Context{"slug": doc.Slug, "title": doc.Title})
	}
	ctx["form_name"] = v.FormName
	ctx["fields"] = fields
	ctx["busy"] = v.Busy
	ctx["focus"] = v.Focus
	ctx["documents"] = docs
	if v.Banner != nil {
		ctx["banner"] = pongo2.Context{
			"severity": string(v.Banner.Severity),
			"message":  v.Banner.Message,
		}
	}
	return ctx
}

// documentView renders an already sanitized legal text.
type documentView struct {
	layoutView
	Body string
}

func (v documentView) context() pongo2.Context {
	ctx := v.layoutView.context()
	ctx["body"] = v.Body
	return ctx
}
