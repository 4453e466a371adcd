// bind.go - Field-binding contract between templates and certificate data.
// Each active field's name must correspond to a recognized certificate
// attribute key, or to a free-form key under the certificate's extensible
// fieldValues mapping.
package template

// Recognized certificate attribute keys a field name may bind to directly.
var recognizedKeys = map[string]struct{}{
	"studentName":  {},
	"studentEmail": {},
	"courseName":   {},
	"timeComplete": {},
	"infoCompany":  {},
}

// RecognizedKey reports whether name is a built-in certificate attribute.
func RecognizedKey(name string) bool {
	_, ok := recognizedKeys[name]
	return ok
}

// BindValues builds the render value map for a certificate: recognized
// attributes first, then free-form fieldValues overriding or extending them.
func BindValues(attrs map[string]string, fieldValues map[string]string) map[string]string {
	values := make(map[string]string, len(attrs)+len(fieldValues))
	for k, v := range attrs {
		if RecognizedKey(k) {
			values[k] = v
		}
	}
	for k, v := range fieldValues {
		if v != "" {
			values[k] = v
		}
	}
	return values
}

// UnboundFields lists active fields whose names bind neither to a recognized
// attribute nor to a provided free-form value. Purely advisory: the remote
// generator leaves such fields blank.
func UnboundFields(t *Template, fieldValues map[string]string) []string {
	var unbound []string
	for _, f := range t.Fields {
		if !f.Selected {
			continue
		}
		if RecognizedKey(f.Name) {
			continue
		}
		if _, ok := fieldValues[f.Name]; ok {
			continue
		}
		unbound = append(unbound, f.Name)
	}
	return unbound
}
