package xmlcodec

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vk/contentgrid/internal/vecmath"
)

// valueCodec parses and formats a type written as a fixed number of
// whitespace-separated tokens.
type valueCodec struct {
	arity int
	// family groups tuple types that convert into each other component-wise
	// when a Type override names a different member of the family.
	family string
	parse  func(rt reflect.Type, tokens []string) (reflect.Value, error)
	format func(v reflect.Value) []string
}

const (
	familyFloat = "float"
	familyInt   = "int"
)

var (
	durationType = reflect.TypeOf(time.Duration(0))
	uuidType     = reflect.TypeOf(uuid.UUID{})
	colorType    = reflect.TypeOf(vecmath.Color{})
)

// fixedCodecs covers value types recognized by identity rather than kind.
var fixedCodecs = map[reflect.Type]*valueCodec{
	durationType: {
		arity: 1,
		parse: func(rt reflect.Type, tokens []string) (reflect.Value, error) {
			d, err := parseDuration(tokens[0])
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(d), nil
		},
		format: func(v reflect.Value) []string {
			return []string{formatDuration(time.Duration(v.Int()))}
		},
	},
	uuidType: {
		arity: 1,
		parse: func(rt reflect.Type, tokens []string) (reflect.Value, error) {
			id, err := uuid.Parse(tokens[0])
			if err != nil {
				return reflect.Value{}, fmt.Errorf("invalid Guid %q: %w", tokens[0], err)
			}
			return reflect.ValueOf(id), nil
		},
		format: func(v reflect.Value) []string {
			return []string{v.Interface().(uuid.UUID).String()}
		},
	},
	colorType: {
		arity: 1,
		parse: func(rt reflect.Type, tokens []string) (reflect.Value, error) {
			var c vecmath.Color
			if err := c.UnmarshalText([]byte(tokens[0])); err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(c), nil
		},
		format: func(v reflect.Value) []string {
			return []string{fmt.Sprintf("%08X", v.Interface().(vecmath.Color).ARGB())}
		},
	},
	reflect.TypeOf(vecmath.Vector2{}):    floatTuple(2),
	reflect.TypeOf(vecmath.Vector3{}):    floatTuple(3),
	reflect.TypeOf(vecmath.Vector4{}):    floatTuple(4),
	reflect.TypeOf(vecmath.Quaternion{}): floatTuple(4),
	reflect.TypeOf(vecmath.Point{}):      intTuple(2),
	reflect.TypeOf(vecmath.Rectangle{}):  intTuple(4),
}

// floatTuple handles structs made of n float32 fields.
func floatTuple(n int) *valueCodec {
	return &valueCodec{
		arity:  n,
		family: familyFloat,
		parse: func(rt reflect.Type, tokens []string) (reflect.Value, error) {
			v := reflect.New(rt).Elem()
			for i := 0; i < n; i++ {
				f, err := parseFloat(tokens[i], 32)
				if err != nil {
					return reflect.Value{}, err
				}
				v.Field(i).SetFloat(f)
			}
			return v, nil
		},
		format: func(v reflect.Value) []string {
			out := make([]string, n)
			for i := range out {
				out[i] = formatFloat(v.Field(i).Float(), 32)
			}
			return out
		},
	}
}

// intTuple handles structs made of n int32 fields.
func intTuple(n int) *valueCodec {
	return &valueCodec{
		arity:  n,
		family: familyInt,
		parse: func(rt reflect.Type, tokens []string) (reflect.Value, error) {
			v := reflect.New(rt).Elem()
			for i := 0; i < n; i++ {
				x, err := strconv.ParseInt(tokens[i], 10, 32)
				if err != nil {
					return reflect.Value{}, fmt.Errorf("invalid integer %q", tokens[i])
				}
				v.Field(i).SetInt(x)
			}
			return v, nil
		},
		format: func(v reflect.Value) []string {
			out := make([]string, n)
			for i := range out {
				out[i] = strconv.FormatInt(v.Field(i).Int(), 10)
			}
			return out
		},
	}
}

var (
	boolCodec = &valueCodec{
		arity: 1,
		parse: func(rt reflect.Type, tokens []string) (reflect.Value, error) {
			v := reflect.New(rt).Elem()
			switch tokens[0] {
			case "true", "1":
				v.SetBool(true)
			case "false", "0":
			default:
				return reflect.Value{}, fmt.Errorf("invalid boolean %q", tokens[0])
			}
			return v, nil
		},
		format: func(v reflect.Value) []string { return []string{strconv.FormatBool(v.Bool())} },
	}
	intCodec = &valueCodec{
		arity: 1,
		parse: func(rt reflect.Type, tokens []string) (reflect.Value, error) {
			x, err := strconv.ParseInt(tokens[0], 10, rt.Bits())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("invalid %d-bit integer %q", rt.Bits(), tokens[0])
			}
			v := reflect.New(rt).Elem()
			v.SetInt(x)
			return v, nil
		},
		format: func(v reflect.Value) []string { return []string{strconv.FormatInt(v.Int(), 10)} },
	}
	uintCodec = &valueCodec{
		arity: 1,
		parse: func(rt reflect.Type, tokens []string) (reflect.Value, error) {
			x, err := strconv.ParseUint(tokens[0], 10, rt.Bits())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("invalid %d-bit unsigned integer %q", rt.Bits(), tokens[0])
			}
			v := reflect.New(rt).Elem()
			v.SetUint(x)
			return v, nil
		},
		format: func(v reflect.Value) []string { return []string{strconv.FormatUint(v.Uint(), 10)} },
	}
	floatCodec = &valueCodec{
		arity: 1,
		parse: func(rt reflect.Type, tokens []string) (reflect.Value, error) {
			f, err := parseFloat(tokens[0], rt.Bits())
			if err != nil {
				return reflect.Value{}, err
			}
			v := reflect.New(rt).Elem()
			v.SetFloat(f)
			return v, nil
		},
		format: func(v reflect.Value) []string { return []string{formatFloat(v.Float(), v.Type().Bits())} },
	}
)

// codecFor returns the value codec for rt, or nil when rt is not a value type.
func codecFor(rt reflect.Type) *valueCodec {
	if c, ok := fixedCodecs[rt]; ok {
		return c
	}
	switch rt.Kind() {
	case reflect.Bool:
		return boolCodec
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return intCodec
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uintCodec
	case reflect.Float32, reflect.Float64:
		return floatCodec
	}
	return nil
}

// parseValue parses the leading tokens of text as a value of rt. Surplus
// tokens are ignored.
func parseValue(c *valueCodec, rt reflect.Type, text string) (reflect.Value, error) {
	tokens := strings.Fields(text)
	if len(tokens) < c.arity {
		return reflect.Value{}, fmt.Errorf("expected %d value(s), found %d", c.arity, len(tokens))
	}
	return c.parse(rt, tokens[:c.arity])
}

// convertTuple converts v to rt component-wise when both are tuples of the
// same family. Missing components are zero; surplus ones are dropped.
func convertTuple(v reflect.Value, rt reflect.Type) (reflect.Value, bool) {
	from, to := codecFor(v.Type()), codecFor(rt)
	if from == nil || to == nil || from.family == "" || from.family != to.family {
		return reflect.Value{}, false
	}
	tokens := from.format(v)
	for len(tokens) < to.arity {
		tokens = append(tokens, "0")
	}
	out, err := to.parse(rt, tokens[:to.arity])
	if err != nil {
		return reflect.Value{}, false
	}
	return out, true
}

func parseFloat(s string, bits int) (float64, error) {
	switch s {
	case "INF", "Infinity":
		return math.Inf(1), nil
	case "-INF", "-Infinity":
		return math.Inf(-1), nil
	case "NaN":
		return math.NaN(), nil
	}
	f, err := strconv.ParseFloat(s, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'G', -1, bits)
}

var durationPattern = regexp.MustCompile(`^(-)?P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)(?:\.(\d{1,9}))?S)?)?$`)

// parseDuration reads an XML schema duration restricted to days, hours,
// minutes and seconds, e.g. "P1DT2H30M0.5S".
func parseDuration(s string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "-P" || strings.HasSuffix(s, "T") {
		return 0, fmt.Errorf("invalid TimeSpan %q", s)
	}
	var d time.Duration
	for i, unit := range []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second} {
		if m[i+2] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+2], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid TimeSpan %q: %w", s, err)
		}
		if n > int64(math.MaxInt64-d)/int64(unit) {
			return 0, fmt.Errorf("invalid TimeSpan %q: out of range", s)
		}
		d += time.Duration(n) * unit
	}
	if frac := m[6]; frac != "" {
		ns, _ := strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
		if time.Duration(ns) > math.MaxInt64-d {
			return 0, fmt.Errorf("invalid TimeSpan %q: out of range", s)
		}
		d += time.Duration(ns)
	}
	if m[1] == "-" {
		d = -d
	}
	return d, nil
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	b.WriteByte('P')
	if days := d / (24 * time.Hour); days > 0 {
		fmt.Fprintf(&b, "%dD", days)
		d -= days * 24 * time.Hour
	}
	if d == 0 {
		return b.String()
	}
	b.WriteByte('T')
	if h := d / time.Hour; h > 0 {
		fmt.Fprintf(&b, "%dH", h)
		d -= h * time.Hour
	}
	if m := d / time.Minute; m > 0 {
		fmt.Fprintf(&b, "%dM", m)
		d -= m * time.Minute
	}
	if d > 0 {
		secs := d / time.Second
		ns := d - secs*time.Second
		if ns == 0 {
			fmt.Fprintf(&b, "%dS", secs)
		} else {
			frac := strings.TrimRight(fmt.Sprintf("%09d", int64(ns)), "0")
			fmt.Fprintf(&b, "%d.%sS", secs, frac)
		}
	}
	return b.String()
}
