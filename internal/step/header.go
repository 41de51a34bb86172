package step

import (
	"slices"
	"time"

	"github.com/specialistvlad/storeysplit/internal/entity"
)

// Record is one HEADER section entry, e.g. FILE_SCHEMA(('IFC4')).
type Record struct {
	Type   string
	Params []entity.Value
}

// Header is the ordered list of HEADER section records.
type Header struct {
	Records []Record
}

const (
	recordDescription = "FILE_DESCRIPTION"
	recordName        = "FILE_NAME"
	recordSchema      = "FILE_SCHEMA"
)

// DefaultHeader builds a minimal header for the given schema.
func DefaultHeader(schema string) Header {
	return Header{Records: []Record{
		{Type: recordDescription, Params: []entity.Value{
			entity.List(entity.String("ViewDefinition [CoordinationView]")),
			entity.String("2;1"),
		}},
		{Type: recordName, Params: fileNameParams("", time.Time{})},
		{Type: recordSchema, Params: []entity.Value{entity.List(entity.String(schema))}},
	}}
}

func fileNameParams(name string, ts time.Time) []entity.Value {
	stamp := ""
	if !ts.IsZero() {
		stamp = ts.UTC().Format("2006-01-02T15:04:05")
	}
	return []entity.Value{
		entity.String(name),
		entity.String(stamp),
		entity.List(entity.String("")),
		entity.List(entity.String("")),
		entity.String(""),
		entity.String("storeysplit"),
		entity.String(""),
	}
}

func (h Header) find(typ string) int {
	return slices.IndexFunc(h.Records, func(r Record) bool { return r.Type == typ })
}

// Schema returns the first schema identifier declared by FILE_SCHEMA.
func (h Header) Schema() string {
	i := h.find(recordSchema)
	if i < 0 || len(h.Records[i].Params) == 0 {
		return ""
	}
	p := h.Records[i].Params[0]
	if p.Kind == entity.KindList && len(p.Items) > 0 {
		p = p.Items[0]
	}
	s, _ := p.StringValue()
	return s
}

func (h Header) clone() Header {
	out := Header{Records: make([]Record, len(h.Records))}
	for i, r := range h.Records {
		params := make([]entity.Value, len(r.Params))
		for j, p := range r.Params {
			params[j] = p.Clone()
		}
		out.Records[i] = Record{Type: r.Type, Params: params}
	}
	return out
}

// WithFileName returns a copy of the header whose FILE_NAME record names the
// given file and time stamp. Other FILE_NAME fields are preserved.
func (h Header) WithFileName(name string, ts time.Time) Header {
	out := h.clone()
	fresh := fileNameParams(name, ts)
	i := out.find(recordName)
	if i < 0 {
		out.Records = append(out.Records, Record{Type: recordName, Params: fresh})
		return out
	}
	params := out.Records[i].Params
	for len(params) < len(fresh) {
		params = append(params, fresh[len(params)])
	}
	params[0], params[1] = fresh[0], fresh[1]
	out.Records[i].Params = params
	return out
}

// WithSchema returns a copy of the header declaring the given schema.
func (h Header) WithSchema(schema string) Header {
	out := h.clone()
	rec := Record{Type: recordSchema, Params: []entity.Value{entity.List(entity.String(schema))}}
	if i := out.find(recordSchema); i >= 0 {
		out.Records[i] = rec
	} else {
		out.Records = append(out.Records, rec)
	}
	return out
}
