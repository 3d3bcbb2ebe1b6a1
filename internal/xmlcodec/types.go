package xmlcodec

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/contentgrid/internal/vecmath"
)

// FrameworkNamespace is the namespace of the built-in vecmath types.
const FrameworkNamespace = "ContentGrid.Framework"

const resolveCacheSize = 512

// aliases maps the primitive names of the format to Go types.
var aliases = map[string]reflect.Type{
	"bool":     reflect.TypeOf(false),
	"byte":     reflect.TypeOf(uint8(0)),
	"sbyte":    reflect.TypeOf(int8(0)),
	"short":    reflect.TypeOf(int16(0)),
	"ushort":   reflect.TypeOf(uint16(0)),
	"int":      reflect.TypeOf(int32(0)),
	"uint":     reflect.TypeOf(uint32(0)),
	"long":     reflect.TypeOf(int64(0)),
	"ulong":    reflect.TypeOf(uint64(0)),
	"float":    reflect.TypeOf(float32(0)),
	"double":   reflect.TypeOf(float64(0)),
	"string":   reflect.TypeOf(""),
	"object":   reflect.TypeOf((*any)(nil)).Elem(),
	"TimeSpan": reflect.TypeOf(time.Duration(0)),
	"Guid":     reflect.TypeOf(uuid.UUID{}),
}

// aliasNames is the reverse of aliases. Go's platform-sized int and uint are
// written as long and ulong.
var aliasNames = func() map[reflect.Type]string {
	out := make(map[reflect.Type]string, len(aliases)+2)
	for name, rt := range aliases {
		if name != "object" {
			out[rt] = name
		}
	}
	out[reflect.TypeOf(int(0))] = "long"
	out[reflect.TypeOf(uint(0))] = "ulong"
	return out
}()

// TypeTable maps type names used in documents to Go types. It is safe for
// concurrent use.
type TypeTable struct {
	mu      sync.RWMutex
	byName  map[string]reflect.Type
	byShort map[string][]string
	names   map[reflect.Type]string

	cache *lru.Cache[string, reflect.Type]
}

// NewTypeTable returns a table holding the built-in vecmath types.
func NewTypeTable() *TypeTable {
	cache, err := lru.New[string, reflect.Type](resolveCacheSize)
	if err != nil {
		panic(fmt.Sprintf("xmlcodec: creating resolve cache: %v", err))
	}
	t := &TypeTable{
		byName:  make(map[string]reflect.Type),
		byShort: make(map[string][]string),
		names:   make(map[reflect.Type]string),
		cache:   cache,
	}
	for short, sample := range map[string]any{
		"Vector2":    vecmath.Vector2{},
		"Vector3":    vecmath.Vector3{},
		"Vector4":    vecmath.Vector4{},
		"Quaternion": vecmath.Quaternion{},
		"Point":      vecmath.Point{},
		"Rectangle":  vecmath.Rectangle{},
		"Color":      vecmath.Color{},
	} {
		t.Register(FrameworkNamespace+"."+short, sample)
	}
	return t
}

// Register makes sample's type known under fullName, a dot-separated
// namespace-qualified name. Pointer samples register their element type.
// Registering a name or type twice is a programming error and panics.
func (t *TypeTable) Register(fullName string, sample any) {
	rt := reflect.TypeOf(sample)
	if rt == nil {
		panic(fmt.Sprintf("xmlcodec: cannot register nil sample as %q", fullName))
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byName[fullName]; exists {
		panic(fmt.Sprintf("xmlcodec: type name %q already registered", fullName))
	}
	if prev, exists := t.names[rt]; exists {
		panic(fmt.Sprintf("xmlcodec: type %s already registered as %q", rt, prev))
	}
	t.byName[fullName] = rt
	t.names[rt] = fullName
	short := shortName(fullName)
	t.byShort[short] = append(t.byShort[short], fullName)
	t.cache.Purge()
}

// NameOf returns the name rt is written under. Slices of named types are
// written as the element name followed by "[]".
func (t *TypeTable) NameOf(rt reflect.Type) (string, bool) {
	if name, ok := aliasNames[rt]; ok {
		return name, true
	}
	if rt.Kind() == reflect.Slice {
		elem, ok := t.NameOf(rt.Elem())
		if !ok {
			return "", false
		}
		return elem + "[]", true
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	name, ok := t.names[rt]
	return name, ok
}

// Resolve looks up a type name as it appears in a Type attribute. prefixes
// maps namespace prefixes declared by the document to namespaces. A trailing
// "[]" resolves to a slice of the element type.
func (t *TypeTable) Resolve(name string, prefixes map[string]string) (reflect.Type, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty type name")
	}
	if elemName, ok := strings.CutSuffix(name, "[]"); ok {
		elem, err := t.Resolve(elemName, prefixes)
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	}
	if rt, ok := aliases[name]; ok {
		return rt, nil
	}

	full := name
	if prefix, short, ok := strings.Cut(name, ":"); ok {
		ns, known := prefixes[prefix]
		if !known {
			return nil, fmt.Errorf("type %q uses undeclared namespace prefix %q", name, prefix)
		}
		full = ns + "." + short
	}

	// Register purges the cache under the write lock.
	t.mu.RLock()
	defer t.mu.RUnlock()
	if rt, ok := t.cache.Get(full); ok {
		return rt, nil
	}
	rt, err := t.search(full)
	if err != nil {
		return nil, err
	}
	t.cache.Add(full, rt)
	return rt, nil
}

// search must be called with t.mu held.
func (t *TypeTable) search(full string) (reflect.Type, error) {
	if rt, ok := t.byName[full]; ok {
		return rt, nil
	}
	if strings.Contains(full, ".") {
		return nil, fmt.Errorf("unknown type %q", full)
	}
	candidates := t.byShort[full]
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("unknown type %q", full)
	case 1:
		return t.byName[candidates[0]], nil
	default:
		return nil, fmt.Errorf("type name %q is ambiguous (%s); use a qualified name", full, strings.Join(candidates, ", "))
	}
}

func shortName(full string) string {
	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		return full[i+1:]
	}
	return full
}

// displayName names rt in error messages.
func (t *TypeTable) displayName(rt reflect.Type) string {
	if name, ok := t.NameOf(rt); ok {
		return name
	}
	return rt.String()
}
