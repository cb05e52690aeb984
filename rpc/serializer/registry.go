package serializer

import (
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// Constructor builds an instance of a registered type from its decoded field mapping
type Constructor func(fields map[string]any) (any, error)

// typeNamePattern matches valid type names (dotted identifiers like pkg.Point)
var typeNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

type registration struct {
	name string
	typ  reflect.Type
	ctor Constructor
}

// Registry maps type names to constructors. Only registered types can be decoded
// from their structured text form. A Registry is safe for concurrent use.
type Registry struct {
	byName *xsync.MapOf[string, registration]
	byType *xsync.MapOf[reflect.Type, string]
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byName: xsync.NewMapOf[string, registration](),
		byType: xsync.NewMapOf[reflect.Type, string](),
	}
}

// Register registers the struct type T under name (or under the Go type name if name is empty).
// The derived constructor assigns each entry of the field mapping to the struct field of the
// same name (see the ckv struct tag), converting numbers and collections where needed.
func Register[T any](r *Registry, name string) error {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return errors.Newf("can not register %s: only struct types can be registered", t)
	}
	if name == "" {
		name = t.Name()
	}
	return r.register(name, t, func(fields map[string]any) (any, error) {
		v := reflect.New(t).Elem()
		if err := fillStruct(v, fields); err != nil {
			return nil, err
		}
		return v.Interface(), nil
	})
}

// RegisterConstructor registers a custom constructor under name.
// sample is a value of the constructed type, it is used to find the name when encoding.
func (r *Registry) RegisterConstructor(name string, sample any, ctor Constructor) error {
	if sample == nil || ctor == nil {
		return errors.Newf("can not register %q: sample and constructor must not be nil", name)
	}
	return r.register(name, indirectType(reflect.TypeOf(sample)), ctor)
}

// Lookup returns the constructor registered under name
func (r *Registry) Lookup(name string) (Constructor, bool) {
	reg, ok := r.byName.Load(name)
	if !ok {
		return nil, false
	}
	return reg.ctor, true
}

// Names returns all registered type names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, r.byName.Size())
	r.byName.Range(func(name string, _ registration) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

func (r *Registry) register(name string, t reflect.Type, ctor Constructor) error {
	if !typeNamePattern.MatchString(name) {
		return errors.Newf("invalid type name %q", name)
	}
	if _, loaded := r.byName.LoadOrStore(name, registration{name: name, typ: t, ctor: ctor}); loaded {
		return errors.Newf("type name %q is already registered", name)
	}
	r.byType.LoadOrStore(t, name)
	Logger.Debugf("registered type %s as %q", t, name)
	return nil
}

// nameOf returns the name a struct type is encoded with.
// Unregistered types are encoded with their Go type name.
func (r *Registry) nameOf(t reflect.Type) string {
	if r != nil {
		if name, ok := r.byType.Load(t); ok {
			return name
		}
	}
	if t.Name() == "" {
		return "object"
	}
	return t.Name()
}

// --------------------------------------------------------------------------
// Struct field handling
// --------------------------------------------------------------------------

type fieldInfo struct {
	index int
	name  string
}

var fieldCache = xsync.NewMapOf[reflect.Type, []fieldInfo]()

// fieldsOf returns the encoded fields of a struct type in declaration order.
// Unexported fields and fields tagged with `ckv:"-"` are skipped.
func fieldsOf(t reflect.Type) []fieldInfo {
	fields, _ := fieldCache.LoadOrCompute(t, func() []fieldInfo {
		var out []fieldInfo
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := f.Name
			if tag, ok := f.Tag.Lookup("ckv"); ok {
				tag, _, _ = strings.Cut(tag, ",")
				if tag == "-" {
					continue
				}
				if tag != "" {
					name = tag
				}
			}
			out = append(out, fieldInfo{index: i, name: name})
		}
		return out
	})
	return fields
}

func fillStruct(v reflect.Value, fields map[string]any) error {
	known := fieldsOf(v.Type())
	used := 0
	for _, f := range known {
		val, ok := fields[f.name]
		if !ok {
			continue
		}
		used++
		if err := assign(v.Field(f.index), val); err != nil {
			return errors.Wrapf(err, "field %s", f.name)
		}
	}
	if used != len(fields) {
		for name := range fields {
			if !hasField(known, name) {
				return errors.Newf("%s has no field %q", v.Type(), name)
			}
		}
	}
	return nil
}

func hasField(fields []fieldInfo, name string) bool {
	for _, f := range fields {
		if f.name == name {
			return true
		}
	}
	return false
}

// assign stores a decoded value in dst, converting between the decoded (canonical)
// representation and the declared type of dst.
func assign(dst reflect.Value, val any) error {
	if val == nil {
		dst.SetZero()
		return nil
	}
	src := reflect.ValueOf(val)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	mismatch := func() error {
		return errors.Newf("can not assign %T to %s", val, dst.Type())
	}

	switch dst.Kind() {
	case reflect.Pointer:
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), val); err != nil {
			return err
		}
		dst.Set(elem)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		switch x := val.(type) {
		case int64:
			n = x
		case uint64:
			if x > 1<<63-1 {
				return errors.Newf("%d overflows %s", x, dst.Type())
			}
			n = int64(x)
		default:
			return mismatch()
		}
		if dst.OverflowInt(n) {
			return errors.Newf("%d overflows %s", n, dst.Type())
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		var n uint64
		switch x := val.(type) {
		case int64:
			if x < 0 {
				return errors.Newf("%d overflows %s", x, dst.Type())
			}
			n = uint64(x)
		case uint64:
			n = x
		default:
			return mismatch()
		}
		if dst.OverflowUint(n) {
			return errors.Newf("%d overflows %s", n, dst.Type())
		}
		dst.SetUint(n)
	case reflect.Float32, reflect.Float64:
		switch x := val.(type) {
		case float64:
			dst.SetFloat(x)
		case int64:
			dst.SetFloat(float64(x))
		case uint64:
			dst.SetFloat(float64(x))
		default:
			return mismatch()
		}
	case reflect.String:
		s, ok := val.(string)
		if !ok {
			return mismatch()
		}
		dst.SetString(s)
	case reflect.Bool:
		b, ok := val.(bool)
		if !ok {
			return mismatch()
		}
		dst.SetBool(b)
	case reflect.Slice:
		items, ok := sequence(val)
		if !ok {
			return mismatch()
		}
		out := reflect.MakeSlice(dst.Type(), len(items), len(items))
		for i, item := range items {
			if err := assign(out.Index(i), item); err != nil {
				return errors.Wrapf(err, "index %d", i)
			}
		}
		dst.Set(out)
	case reflect.Array:
		items, ok := sequence(val)
		if !ok || len(items) != dst.Len() {
			return mismatch()
		}
		for i, item := range items {
			if err := assign(dst.Index(i), item); err != nil {
				return errors.Wrapf(err, "index %d", i)
			}
		}
	case reflect.Map:
		out := reflect.MakeMap(dst.Type())
		put := func(k, v any) error {
			key := reflect.New(dst.Type().Key()).Elem()
			if err := assign(key, k); err != nil {
				return err
			}
			elem := reflect.New(dst.Type().Elem()).Elem()
			if err := assign(elem, v); err != nil {
				return errors.Wrapf(err, "key %v", k)
			}
			out.SetMapIndex(key, elem)
			return nil
		}
		switch m := val.(type) {
		case map[string]any:
			for k, v := range m {
				if err := put(k, v); err != nil {
					return err
				}
			}
		case map[any]any:
			for k, v := range m {
				if err := put(k, v); err != nil {
					return err
				}
			}
		default:
			return mismatch()
		}
		dst.Set(out)
	case reflect.Struct:
		m, ok := val.(map[string]any)
		if !ok {
			return mismatch()
		}
		return fillStruct(dst, m)
	default:
		return mismatch()
	}
	return nil
}

// sequence returns the items of a decoded list, tuple or bytes value
func sequence(val any) ([]any, bool) {
	switch x := val.(type) {
	case []any:
		return x, true
	case Tuple:
		return x, true
	case []byte:
		items := make([]any, len(x))
		for i, b := range x {
			items[i] = int64(b)
		}
		return items, true
	default:
		return nil, false
	}
}
