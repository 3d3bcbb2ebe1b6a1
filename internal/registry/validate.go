package registry

import (
	"encoding"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/vk/contentgrid/internal/content"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Enum is implemented by parameter types restricted to a fixed set of values.
type Enum interface {
	EnumValues() []string
}

var (
	enumType            = reflect.TypeOf((*Enum)(nil)).Elem()
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// ParameterDescriptor describes one settable processor parameter.
type ParameterDescriptor struct {
	Name     string
	TypeName string
	CtyType  cty.Type
	Default  cty.Value
	// DefaultText is Default as a user would type it.
	DefaultText string
	// EnumValues lists the legal values of enumerated parameters.
	EnumValues []string

	index []int
	typ   reflect.Type
}

// deriveParameters lists the settable parameters of a processor prototype:
// its exported fields of a supported type. A `param:"Name"` tag renames a
// parameter and `param:"-"` hides the field.
func deriveParameters(proto any) ([]ParameterDescriptor, error) {
	rv := reflect.ValueOf(proto)
	if rv.Kind() != reflect.Pointer {
		// Value prototypes cannot be configured.
		return nil, nil
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return nil, nil
	}
	rt := rv.Type()

	var params []ParameterDescriptor
	var errs []string
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("param"); ok {
			if tag == "-" {
				continue
			}
			if n, _, _ := strings.Cut(tag, ","); n != "" {
				name = n
			}
		}
		ct, ok := ctyTypeOf(sf.Type)
		if !ok {
			errs = append(errs, fmt.Sprintf("parameter %s: unsupported type %s", name, sf.Type))
			continue
		}
		p := ParameterDescriptor{
			Name:     name,
			TypeName: typeName(sf.Type),
			CtyType:  ct,
			index:    sf.Index,
			typ:      sf.Type,
		}
		def, err := toCty(rv.Field(i), ct)
		if err != nil {
			errs = append(errs, fmt.Sprintf("parameter %s: default value: %v", name, err))
			continue
		}
		p.Default = def
		p.DefaultText = ctyText(def)
		p.EnumValues = enumValuesOf(sf.Type)
		params = append(params, p)
	}
	if len(errs) > 0 {
		return params, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return params, nil
}

// enumValuesOf returns the legal values of rt when it implements Enum,
// directly or through a pointer receiver. Methods are called on a fresh
// value, never through a nil pointer.
func enumValuesOf(rt reflect.Type) []string {
	switch {
	case rt.Kind() == reflect.Pointer:
		if rt.Implements(enumType) {
			return reflect.New(rt.Elem()).Interface().(Enum).EnumValues()
		}
	case rt.Implements(enumType):
		return reflect.Zero(rt).Interface().(Enum).EnumValues()
	case reflect.PointerTo(rt).Implements(enumType):
		return reflect.New(rt).Interface().(Enum).EnumValues()
	}
	return nil
}

// ctyTypeOf maps a Go field type onto the value type used in project files.
func ctyTypeOf(rt reflect.Type) (cty.Type, bool) {
	if reflect.PointerTo(rt).Implements(textUnmarshalerType) && rt.Implements(textMarshalerType) {
		return cty.String, true
	}
	switch rt.Kind() {
	case reflect.Bool:
		return cty.Bool, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return cty.Number, true
	case reflect.String:
		return cty.String, true
	}
	return cty.NilType, false
}

func typeName(rt reflect.Type) string {
	if rt.Name() != "" {
		return rt.Name()
	}
	return rt.String()
}

func toCty(v reflect.Value, ct cty.Type) (cty.Value, error) {
	if m, ok := v.Interface().(encoding.TextMarshaler); ok && ct == cty.String && v.Kind() != reflect.String {
		text, err := m.MarshalText()
		if err != nil {
			return cty.NilVal, err
		}
		return cty.StringVal(string(text)), nil
	}
	return gocty.ToCtyValue(v.Interface(), ct)
}

func ctyText(v cty.Value) string {
	if v.IsNull() || !v.IsKnown() {
		return ""
	}
	switch v.Type() {
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	case cty.Number:
		return v.AsBigFloat().Text('f', -1)
	case cty.String:
		return v.AsString()
	}
	return v.GoString()
}

// set assigns val to the parameter's field of target, a pointer to the
// processor struct.
func (p *ParameterDescriptor) set(target reflect.Value, val cty.Value) error {
	if val.IsNull() {
		return content.Argumentf("parameter %s must not be null", p.Name)
	}
	converted, err := convert.Convert(val, p.CtyType)
	if err != nil {
		return content.Argumentf("parameter %s: %s", p.Name, err)
	}
	field := target.Elem().FieldByIndex(p.index)

	if p.typ.Kind() != reflect.String && reflect.PointerTo(p.typ).Implements(textUnmarshalerType) {
		if err := field.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(converted.AsString())); err != nil {
			return content.Argumentf("parameter %s: %s", p.Name, err)
		}
		return nil
	}
	if len(p.EnumValues) > 0 {
		s := converted.AsString()
		if !slices.Contains(p.EnumValues, s) {
			return content.Argumentf("parameter %s: %q is not one of %s", p.Name, s, strings.Join(p.EnumValues, ", "))
		}
	}
	if err := gocty.FromCtyValue(converted, field.Addr().Interface()); err != nil {
		return content.Argumentf("parameter %s: %s", p.Name, err)
	}
	return nil
}
