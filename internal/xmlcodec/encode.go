package xmlcodec

import (
	"encoding"
	"encoding/xml"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
)

// Encoder writes intermediate documents.
type Encoder struct {
	types *TypeTable
}

// NewEncoder returns an encoder naming types through types.
func NewEncoder(types *TypeTable) *Encoder {
	return &Encoder{types: types}
}

// Encode writes v as the asset of a new document. The asset element carries
// a Type attribute when v's type is registered, so the document can be read
// back with DecodeAny.
func (e *Encoder) Encode(w io.Writer, v any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	st := &encodeState{types: e.types, enc: enc}

	root := xml.StartElement{Name: xml.Name{Local: RootElement}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		if err := st.null(AssetElement); err != nil {
			return err
		}
	} else {
		var attrs []xml.Attr
		dyn := rv.Type()
		for dyn.Kind() == reflect.Pointer {
			dyn = dyn.Elem()
		}
		if name, ok := e.types.NameOf(dyn); ok {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: TypeAttr}, Value: name})
		}
		if err := st.element(AssetElement, rv, attrs); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

type encodeState struct {
	types *TypeTable
	enc   *xml.Encoder
}

func (st *encodeState) null(name string) error {
	start := xml.StartElement{
		Name: xml.Name{Local: name},
		Attr: []xml.Attr{{Name: xml.Name{Local: NullAttr}, Value: "true"}},
	}
	if err := st.enc.EncodeToken(start); err != nil {
		return err
	}
	return st.enc.EncodeToken(start.End())
}

func (st *encodeState) text(name string, attrs []xml.Attr, s string) error {
	start := xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs}
	if err := st.enc.EncodeToken(start); err != nil {
		return err
	}
	if s != "" {
		if err := st.enc.EncodeToken(xml.CharData(s)); err != nil {
			return err
		}
	}
	return st.enc.EncodeToken(start.End())
}

// member writes v, declared as static, under name. Members of interface type
// record the dynamic type in a Type attribute.
func (st *encodeState) member(name string, v reflect.Value, static reflect.Type) error {
	if static.Kind() != reflect.Interface {
		return st.element(name, v, nil)
	}
	if v.IsNil() {
		return st.null(name)
	}
	v = v.Elem()
	dyn := v.Type()
	if dyn.Kind() == reflect.Pointer {
		dyn = dyn.Elem()
	}
	typeName, ok := st.types.NameOf(dyn)
	if !ok {
		return fmt.Errorf("member %s holds unregistered type %s", name, dyn)
	}
	return st.element(name, v, []xml.Attr{{Name: xml.Name{Local: TypeAttr}, Value: typeName}})
}

func (st *encodeState) element(name string, v reflect.Value, attrs []xml.Attr) error {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return st.null(name)
		}
		v = v.Elem()
	}
	rt := v.Type()

	if c := codecFor(rt); c != nil {
		return st.text(name, attrs, strings.Join(c.format(v), " "))
	}
	if rt.Implements(textMarshalerType) {
		b, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return fmt.Errorf("member %s: %w", name, err)
		}
		return st.text(name, attrs, string(b))
	}

	switch rt.Kind() {
	case reflect.String:
		return st.text(name, attrs, v.String())
	case reflect.Slice, reflect.Array:
		if rt.Kind() == reflect.Slice && v.IsNil() {
			return st.null(name)
		}
		if c := codecFor(rt.Elem()); c != nil {
			tokens := make([]string, 0, v.Len()*c.arity)
			for i := 0; i < v.Len(); i++ {
				tokens = append(tokens, c.format(v.Index(i))...)
			}
			return st.text(name, attrs, strings.Join(tokens, " "))
		}
		return st.wrap(name, attrs, func() error {
			for i := 0; i < v.Len(); i++ {
				if err := st.member(ItemElement, v.Index(i), rt.Elem()); err != nil {
					return err
				}
			}
			return nil
		})
	case reflect.Map:
		if v.IsNil() {
			return st.null(name)
		}
		return st.wrap(name, attrs, func() error { return st.mapItems(v) })
	case reflect.Struct:
		return st.wrap(name, attrs, func() error {
			for _, f := range structFields(rt).fields {
				if err := st.member(f.name, v.FieldByIndex(f.index), f.typ); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return fmt.Errorf("member %s: type %s cannot be written to a document", name, rt)
}

func (st *encodeState) wrap(name string, attrs []xml.Attr, body func() error) error {
	start := xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs}
	if err := st.enc.EncodeToken(start); err != nil {
		return err
	}
	if err := body(); err != nil {
		return err
	}
	return st.enc.EncodeToken(start.End())
}

// mapItems writes map entries ordered by their formatted key.
func (st *encodeState) mapItems(v reflect.Value) error {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	rt := v.Type()
	for _, k := range keys {
		err := st.wrap(ItemElement, nil, func() error {
			if err := st.member(KeyElement, k, rt.Key()); err != nil {
				return err
			}
			return st.member(ValueElement, v.MapIndex(k), rt.Elem())
		})
		if err != nil {
			return err
		}
	}
	return nil
}
