package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
)

var validate = validator.New()

// Ingredient is a single (name, quantity) requirement of a recipe.
type Ingredient struct {
	Name     string `json:"name" yaml:"name" bson:"name" validate:"required"`
	Quantity int    `json:"quantity" yaml:"quantity" bson:"quantity" validate:"gt=0"`
}

// Ingredients is an ordered ingredient mapping. It encodes as a JSON/YAML
// object whose keys keep their original order.
type Ingredients []Ingredient

// Set assigns qty to name. An existing entry is overwritten in place.
func (in *Ingredients) Set(name string, qty int) {
	for i := range *in {
		if (*in)[i].Name == name {
			(*in)[i].Quantity = qty
			return
		}
	}
	*in = append(*in, Ingredient{Name: name, Quantity: qty})
}

// Get returns the quantity recorded for name.
func (in Ingredients) Get(name string) (int, bool) {
	for _, ing := range in {
		if ing.Name == name {
			return ing.Quantity, true
		}
	}
	return 0, false
}

// Names returns the ingredient names in order.
func (in Ingredients) Names() []string {
	names := make([]string, len(in))
	for i, ing := range in {
		names[i] = ing.Name
	}
	return names
}

// MarshalJSON writes the ingredients as a JSON object in order.
func (in Ingredients) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ing := range in {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ing.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(ing.Quantity))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping key order. Later duplicate keys
// overwrite earlier ones.
func (in *Ingredients) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*in = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("ingredients: expected object, got %v", tok)
	}

	out := Ingredients{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var qty int
		if err := dec.Decode(&qty); err != nil {
			return fmt.Errorf("ingredient %q: %w", key, err)
		}
		out.Set(key, qty)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*in = out
	return nil
}

// MarshalYAML writes the ingredients as an ordered YAML mapping.
func (in Ingredients) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, ing := range in {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ing.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(ing.Quantity)},
		)
	}
	return node, nil
}

// UnmarshalYAML reads an ordered YAML mapping.
func (in *Ingredients) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: ingredients must be a mapping", value.Line)
	}
	out := Ingredients{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		var qty int
		if err := value.Content[i+1].Decode(&qty); err != nil {
			return fmt.Errorf("ingredient %q: %w", key, err)
		}
		out.Set(key, qty)
	}
	*in = out
	return nil
}

// Record is a normalized recipe: one product and the quantity of each
// ingredient it consumes.
type Record struct {
	Product     string      `json:"product" yaml:"product" bson:"product" validate:"required"`
	Ingredients Ingredients `json:"ingredients" yaml:"ingredients" bson:"ingredients" validate:"dive"`
}

// Validate checks the record invariants: a non-empty product, non-empty
// ingredient names and a positive quantity for every ingredient. Names are
// otherwise opaque; any other string is a valid node identity. Failures
// are MALFORMED_RECORD errors.
func (r Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return rgerrors.Wrap(rgerrors.ErrCodeMalformedRecord, formatValidationError(err), "product %q", r.Product)
	}
	return nil
}

// formatValidationError flattens validator output into one readable error.
func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
