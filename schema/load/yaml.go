package load

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the layout of a YAML schema file:
//
//	types:
//	  - name: Order
//	    collection: orders
//	    fields:
//	      - {name: number, type: string}
//	    edges:
//	      - {name: customer, type: Customer, unique: true, embedded: flat}
//	  - name: Customer
//	    embeddable: true
//	    fields:
//	      - {name: name, type: string}
type File struct {
	Types []*Schema `yaml:"types"`
}

// ParseYAML decodes the schemas declared in a YAML document.
func ParseYAML(data []byte) ([]*Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("load: empty schema file")
		}
		return nil, fmt.Errorf("load: decoding schema: %w", err)
	}
	for _, s := range f.Types {
		if s.Name == "" {
			return nil, errors.New("load: schema without a name")
		}
		for _, fd := range s.Fields {
			if !fd.Type.Valid() {
				return nil, fmt.Errorf("load: schema %q: field %q: missing type", s.Name, fd.Name)
			}
		}
	}
	return f.Types, nil
}

// ReadFile reads and decodes a YAML schema file.
func ReadFile(path string) ([]*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return ParseYAML(data)
}

// MarshalYAML encodes loaded schemas in the YAML schema file layout.
func MarshalYAML(schemas []*Schema) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(File{Types: schemas}); err != nil {
		return nil, fmt.Errorf("load: encoding schema: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
