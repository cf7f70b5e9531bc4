package payload

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
)

// Field is one named value of a request body.
type Field struct {
	Name  string
	Value interface{}
}

// Fields is an ordered request body. It encodes to a JSON object or to an XML
// element with one child per field, keeping the declared order in both.
type Fields []Field

// Get returns the value of name.
func (f Fields) Get(name string) (interface{}, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

// MarshalJSON implements json.Marshaler.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// XML encodes the fields as children of a root element.
func (f Fields) XML(root string) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	start := xml.StartElement{Name: xml.Name{Local: root}}
	if err := enc.EncodeToken(start); err != nil {
		return nil, err
	}
	for _, field := range f {
		child := xml.StartElement{Name: xml.Name{Local: field.Name}}
		if err := enc.EncodeElement(fmt.Sprint(field.Value), child); err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
