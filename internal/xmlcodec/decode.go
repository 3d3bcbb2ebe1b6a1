package xmlcodec

import (
	"encoding"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"

	"github.com/vk/contentgrid/internal/content"
)

// enumerated is implemented by string types restricted to a fixed set of
// values.
type enumerated interface {
	EnumValues() []string
}

var (
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	enumeratedType      = reflect.TypeOf((*enumerated)(nil)).Elem()
)

// Decoder reads intermediate documents.
type Decoder struct {
	types    *TypeTable
	identity content.Identity
}

// NewDecoder returns a decoder resolving names through types. Errors are
// attributed to id.
func NewDecoder(types *TypeTable, id content.Identity) *Decoder {
	return &Decoder{types: types, identity: id}
}

// Decode reads one document from r into target, which must be a non-nil
// pointer. A Type attribute on the asset element must name a type assignable
// to *target.
func (d *Decoder) Decode(r io.Reader, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return content.Argumentf("xmlcodec: Decode target must be a non-nil pointer, got %T", target)
	}
	st, asset, err := d.open(r)
	if err != nil {
		return err
	}
	v, err := st.value(asset, rv.Elem().Type(), asset.name)
	if err != nil {
		return err
	}
	rv.Elem().Set(v)
	return nil
}

// DecodeAny reads one document whose asset element carries a Type attribute
// and returns the decoded object. Struct types are returned as pointers.
func (d *Decoder) DecodeAny(r io.Reader) (any, error) {
	st, asset, err := d.open(r)
	if err != nil {
		return nil, err
	}
	if _, ok := asset.attr(TypeAttr); !ok {
		return nil, st.fail(asset, asset.name, "asset element has no %s attribute", TypeAttr)
	}
	v, err := st.value(asset, anyType, asset.name)
	if err != nil {
		return nil, err
	}
	if !v.IsValid() || (v.Kind() == reflect.Interface && v.IsNil()) {
		return nil, nil
	}
	return v.Interface(), nil
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

func (d *Decoder) open(r io.Reader) (*decodeState, *node, error) {
	doc, err := parseDocument(r)
	if err != nil {
		return nil, nil, content.WrapInvalidContent(d.identity, err, "malformed XML")
	}
	st := &decodeState{types: d.types, prefixes: doc.prefixes, identity: d.identity}
	asset, err := doc.asset()
	if err != nil {
		return nil, nil, content.WrapInvalidContent(d.identity, err, "malformed document")
	}
	return st, asset, nil
}

type decodeState struct {
	types    *TypeTable
	prefixes map[string]string
	identity content.Identity
}

func (st *decodeState) fail(n *node, path, format string, args ...any) error {
	id := st.identity.WithFragment(fmt.Sprintf("line %d, %s", n.line, path))
	return content.InvalidContentf(id, format, args...)
}

// value decodes n as a value assignable to rt.
func (st *decodeState) value(n *node, rt reflect.Type, path string) (reflect.Value, error) {
	if n.isNull() {
		return reflect.Zero(rt), nil
	}
	target := rt
	if name, ok := n.attr(TypeAttr); ok {
		ot, err := st.types.Resolve(name, st.prefixes)
		if err != nil {
			return reflect.Value{}, st.fail(n, path, "%v", err)
		}
		target = ot
	}
	v, err := st.decodeAs(n, target, path)
	if err != nil {
		return reflect.Value{}, err
	}
	return st.assign(n, v, rt, path)
}

// assign adapts v, decoded as an overridden type, to the member type rt.
func (st *decodeState) assign(n *node, v reflect.Value, rt reflect.Type, path string) (reflect.Value, error) {
	vt := v.Type()
	switch {
	case vt == rt:
		return v, nil
	case rt.Kind() == reflect.Interface:
		if vt.Kind() == reflect.Struct && codecFor(vt) == nil && reflect.PointerTo(vt).Implements(rt) {
			p := reflect.New(vt)
			p.Elem().Set(v)
			return p, nil
		}
		if vt.Implements(rt) {
			return v, nil
		}
	case rt.Kind() == reflect.Pointer && vt == rt.Elem():
		p := reflect.New(vt)
		p.Elem().Set(v)
		return p, nil
	case vt.AssignableTo(rt):
		return v, nil
	}
	if out, ok := convertTuple(v, rt); ok {
		return out, nil
	}
	return reflect.Value{}, st.fail(n, path, "type %s cannot be assigned to member of type %s",
		st.types.displayName(vt), st.types.displayName(rt))
}

func (st *decodeState) decodeAs(n *node, rt reflect.Type, path string) (reflect.Value, error) {
	if c := codecFor(rt); c != nil {
		v, err := parseValue(c, rt, n.text)
		if err != nil {
			return reflect.Value{}, st.fail(n, path, "%s: %v", st.types.displayName(rt), err)
		}
		return v, nil
	}
	if rt.Kind() != reflect.Pointer && reflect.PointerTo(rt).Implements(textUnmarshalerType) {
		p := reflect.New(rt)
		if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(strings.TrimSpace(n.text))); err != nil {
			return reflect.Value{}, st.fail(n, path, "%s: %v", st.types.displayName(rt), err)
		}
		return p.Elem(), nil
	}

	switch rt.Kind() {
	case reflect.String:
		v := reflect.New(rt).Elem()
		v.SetString(n.text)
		if n.text != "" && rt.Implements(enumeratedType) {
			allowed := v.Interface().(enumerated).EnumValues()
			if !slices.Contains(allowed, n.text) {
				return reflect.Value{}, st.fail(n, path, "%q is not a valid %s (one of %s)",
					n.text, st.types.displayName(rt), strings.Join(allowed, ", "))
			}
		}
		return v, nil
	case reflect.Pointer:
		elem, err := st.decodeAs(n, rt.Elem(), path)
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(rt.Elem())
		p.Elem().Set(elem)
		return p, nil
	case reflect.Slice, reflect.Array:
		return st.decodeList(n, rt, path)
	case reflect.Map:
		return st.decodeMap(n, rt, path)
	case reflect.Struct:
		return st.decodeStruct(n, rt, path)
	case reflect.Interface:
		return reflect.Value{}, st.fail(n, path, "member of type %s needs a %s attribute", st.types.displayName(rt), TypeAttr)
	}
	return reflect.Value{}, st.fail(n, path, "type %s cannot be read from a document", rt)
}

func (st *decodeState) decodeList(n *node, rt reflect.Type, path string) (reflect.Value, error) {
	elem := rt.Elem()
	if c := codecFor(elem); c != nil {
		return st.decodeFlat(n, rt, c, path)
	}

	items := make([]reflect.Value, 0, len(n.children))
	for i, child := range n.children {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		if child.name != ItemElement {
			return reflect.Value{}, st.fail(child, itemPath, "unexpected element <%s> in list, want <%s>", child.name, ItemElement)
		}
		v, err := st.value(child, elem, itemPath)
		if err != nil {
			return reflect.Value{}, err
		}
		items = append(items, v)
	}
	return st.buildList(n, rt, items, path)
}

// decodeFlat reads a list of value types written as one token stream.
func (st *decodeState) decodeFlat(n *node, rt reflect.Type, c *valueCodec, path string) (reflect.Value, error) {
	tokens := strings.Fields(n.text)
	if len(tokens)%c.arity != 0 {
		return reflect.Value{}, st.fail(n, path, "%d tokens do not divide into %s values of %d",
			len(tokens), st.types.displayName(rt.Elem()), c.arity)
	}
	items := make([]reflect.Value, 0, len(tokens)/c.arity)
	for i := 0; i < len(tokens); i += c.arity {
		v, err := c.parse(rt.Elem(), tokens[i:i+c.arity])
		if err != nil {
			return reflect.Value{}, st.fail(n, fmt.Sprintf("%s[%d]", path, i/c.arity), "%v", err)
		}
		items = append(items, v)
	}
	return st.buildList(n, rt, items, path)
}

func (st *decodeState) buildList(n *node, rt reflect.Type, items []reflect.Value, path string) (reflect.Value, error) {
	var out reflect.Value
	if rt.Kind() == reflect.Array {
		if len(items) != rt.Len() {
			return reflect.Value{}, st.fail(n, path, "array of %d elements has %d items", rt.Len(), len(items))
		}
		out = reflect.New(rt).Elem()
	} else {
		out = reflect.MakeSlice(rt, len(items), len(items))
	}
	for i, item := range items {
		out.Index(i).Set(item)
	}
	return out, nil
}

func (st *decodeState) decodeMap(n *node, rt reflect.Type, path string) (reflect.Value, error) {
	out := reflect.MakeMapWithSize(rt, len(n.children))
	for i, child := range n.children {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		if child.name != ItemElement {
			return reflect.Value{}, st.fail(child, itemPath, "unexpected element <%s> in dictionary, want <%s>", child.name, ItemElement)
		}
		var keyNode, valueNode *node
		for _, part := range child.children {
			switch part.name {
			case KeyElement:
				keyNode = part
			case ValueElement:
				valueNode = part
			default:
				return reflect.Value{}, st.fail(part, itemPath, "unexpected element <%s> in dictionary item", part.name)
			}
		}
		if keyNode == nil || valueNode == nil {
			return reflect.Value{}, st.fail(child, itemPath, "dictionary item needs both <%s> and <%s>", KeyElement, ValueElement)
		}
		k, err := st.value(keyNode, rt.Key(), itemPath+"."+KeyElement)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.MapIndex(k).IsValid() {
			return reflect.Value{}, st.fail(keyNode, itemPath, "duplicate dictionary key %v", k.Interface())
		}
		v, err := st.value(valueNode, rt.Elem(), itemPath+"."+ValueElement)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetMapIndex(k, v)
	}
	return out, nil
}

func (st *decodeState) decodeStruct(n *node, rt reflect.Type, path string) (reflect.Value, error) {
	info := structFields(rt)
	out := reflect.New(rt).Elem()
	for _, child := range n.children {
		idx, ok := info.byName[child.name]
		if !ok {
			return reflect.Value{}, st.fail(child, path, "type %s has no member %q", st.types.displayName(rt), child.name)
		}
		f := info.fields[idx]
		v, err := st.value(child, f.typ, path+"."+child.name)
		if err != nil {
			return reflect.Value{}, err
		}
		out.FieldByIndex(f.index).Set(v)
	}
	return out, nil
}
