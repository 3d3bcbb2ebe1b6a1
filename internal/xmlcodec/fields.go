package xmlcodec

import (
	"reflect"
	"strings"
	"sync"
)

// field is a serialized struct member.
type field struct {
	name  string
	index []int
	typ   reflect.Type
}

type structInfo struct {
	fields []field
	byName map[string]int
}

var structCache sync.Map // reflect.Type -> *structInfo

// structFields lists the members of rt in declaration order. Exported fields
// are serialized under their Go name unless a `content:"Name"` tag renames
// them or `content:"-"` skips them. Anonymous struct fields without a tag are
// flattened into the outer struct; outer fields win over promoted ones.
func structFields(rt reflect.Type) *structInfo {
	if cached, ok := structCache.Load(rt); ok {
		return cached.(*structInfo)
	}
	info := &structInfo{byName: map[string]int{}}
	collectFields(rt, nil, info, 0)
	actual, _ := structCache.LoadOrStore(rt, info)
	return actual.(*structInfo)
}

func collectFields(rt reflect.Type, prefix []int, info *structInfo, depth int) {
	var embedded []reflect.StructField
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag, hasTag := sf.Tag.Lookup("content")
		if tag == "-" {
			continue
		}
		if sf.Anonymous && !hasTag && sf.Type.Kind() == reflect.Struct {
			embedded = append(embedded, sf)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if hasTag {
			if n, _, _ := strings.Cut(tag, ","); n != "" {
				name = n
			}
		}
		addField(info, field{name: name, index: appendIndex(prefix, i), typ: sf.Type}, depth)
	}
	for _, sf := range embedded {
		collectFields(sf.Type, appendIndex(prefix, sf.Index[0]), info, depth+1)
	}
}

func addField(info *structInfo, f field, depth int) {
	if _, exists := info.byName[f.name]; exists && depth > 0 {
		return
	}
	info.byName[f.name] = len(info.fields)
	info.fields = append(info.fields, f)
}

func appendIndex(prefix []int, i int) []int {
	out := make([]int, len(prefix)+1)
	copy(out, prefix)
	out[len(prefix)] = i
	return out
}
