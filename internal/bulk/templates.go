package bulk

// Field describes one item field for a given transition kind, feeding the
// template endpoint that UIs and CSV importers use to build payloads.
type Field struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Example  string `json:"example"`
}

// Template lists the item shape expected by one transition kind.
type Template struct {
	Kind   Kind    `json:"kind"`
	Fields []Field `json:"fields"`
}

// TemplateFor returns the item template for the given kind.
func TemplateFor(kind Kind) (Template, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return Template{}, err
	}
	return Template{Kind: kind, Fields: templateFields[kind]}, nil
}

// Templates returns the templates for every transition kind.
func Templates() []Template {
	kinds := []Kind{KindRegister, KindSanitize, KindRecycle, KindTransfer}
	out := make([]Template, 0, len(kinds))
	for _, kind := range kinds {
		out = append(out, Template{Kind: kind, Fields: templateFields[kind]})
	}
	return out
}

var templateFields = map[Kind][]Field{
	KindRegister: {
		{Name: "serial_number", Required: true, Example: "SN-2043-0001"},
		{Name: "model", Required: true, Example: "ThinkPad X1 Carbon Gen 11"},
		{Name: "owner", Required: false, Example: "0xA1B2C3D4E5F60718293A4B5C6D7E8F9001122334"},
	},
	KindSanitize: {
		{Name: "asset_id", Required: true, Example: "6f1d4d3e-7c25-4a9b-8f30-1f6f2f8f9a10"},
		{Name: "sanitization_hash", Required: true, Example: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"},
	},
	KindRecycle: {
		{Name: "asset_id", Required: true, Example: "6f1d4d3e-7c25-4a9b-8f30-1f6f2f8f9a10"},
	},
	KindTransfer: {
		{Name: "asset_id", Required: true, Example: "6f1d4d3e-7c25-4a9b-8f30-1f6f2f8f9a10"},
		{Name: "new_owner", Required: true, Example: "0xA1B2C3D4E5F60718293A4B5C6D7E8F9001122334"},
	},
}
