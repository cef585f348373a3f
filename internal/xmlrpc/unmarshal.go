package xmlrpc

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

type fieldInfo struct {
	name      string
	index     []int
	omitEmpty bool
}

var fieldCache sync.Map

// structFields lists the exported fields of t with their member names.
// The `xmlrpc:"name,omitempty"` tag sets the name; "-" skips the field.
func structFields(t reflect.Type) []fieldInfo {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]fieldInfo)
	}
	fields := make([]fieldInfo, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("xmlrpc")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = f.Name
		}
		fields = append(fields, fieldInfo{name: name, index: f.Index, omitEmpty: opts == "omitempty"})
	}
	fieldCache.Store(t, fields)
	return fields
}

// Unmarshal copies a decoded value into dst, which must be a non-nil
// pointer. Structs are filled from struct members by tag name; members
// without a field are ignored. Numbers sent as strings, and the reverse,
// are converted because blog clients disagree on id types.
func Unmarshal(src any, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("unmarshal target must be a non-nil pointer")
	}
	return assign(rv.Elem(), src, "")
}

func assign(dst reflect.Value, src any, path string) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	switch {
	case dst.Kind() == reflect.Pointer:
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), src, path); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	case dst.Kind() == reflect.Interface && dst.NumMethod() == 0:
		dst.Set(reflect.ValueOf(src))
		return nil
	case dst.Type() == timeType:
		t, err := toTime(src)
		if err != nil {
			return wrapPath(path, err)
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	case dst.Type() == bytesType:
		data, err := toBytes(src)
		if err != nil {
			return wrapPath(path, err)
		}
		dst.SetBytes(data)
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		s, err := toString(src)
		if err != nil {
			return wrapPath(path, err)
		}
		dst.SetString(s)
	case reflect.Bool:
		b, err := toBool(src)
		if err != nil {
			return wrapPath(path, err)
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt(src)
		if err != nil {
			return wrapPath(path, err)
		}
		if dst.OverflowInt(n) {
			return wrapPath(path, fmt.Errorf("%d overflows %s", n, dst.Type()))
		}
		dst.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := toFloat(src)
		if err != nil {
			return wrapPath(path, err)
		}
		dst.SetFloat(f)
	case reflect.Slice:
		items, ok := src.([]any)
		if !ok {
			return wrapPath(path, fmt.Errorf("expected array, got %T", src))
		}
		out := reflect.MakeSlice(dst.Type(), len(items), len(items))
		for i, item := range items {
			if err := assign(out.Index(i), item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		dst.Set(out)
	case reflect.Map:
		members, ok := src.(map[string]any)
		if !ok {
			return wrapPath(path, fmt.Errorf("expected struct, got %T", src))
		}
		if dst.Type().Key().Kind() != reflect.String {
			return wrapPath(path, fmt.Errorf("unsupported map key type %s", dst.Type().Key()))
		}
		out := reflect.MakeMapWithSize(dst.Type(), len(members))
		for name, member := range members {
			elem := reflect.New(dst.Type().Elem()).Elem()
			if err := assign(elem, member, joinPath(path, name)); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(name).Convert(dst.Type().Key()), elem)
		}
		dst.Set(out)
	case reflect.Struct:
		members, ok := src.(map[string]any)
		if !ok {
			return wrapPath(path, fmt.Errorf("expected struct, got %T", src))
		}
		for _, field := range structFields(dst.Type()) {
			member, ok := members[field.name]
			if !ok {
				continue
			}
			if err := assign(dst.FieldByIndex(field.index), member, joinPath(path, field.name)); err != nil {
				return err
			}
		}
	default:
		return wrapPath(path, fmt.Errorf("unsupported target type %s", dst.Type()))
	}
	return nil
}

func toString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("expected string, got %T", src)
}

func toBool(src any) (bool, error) {
	switch v := src.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true":
			return true, nil
		case "0", "false", "":
			return false, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T", src)
}

func toInt(src any) (int64, error) {
	switch v := src.(type) {
	case int:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("expected integer, got %T", src)
}

func toFloat(src any) (float64, error) {
	switch v := src.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return 0, fmt.Errorf("expected double, got %T", src)
}

func toTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case time.Time:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return time.Time{}, nil
		}
		return ParseDateTime(v)
	}
	return time.Time{}, fmt.Errorf("expected dateTime, got %T", src)
}

func toBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case []byte:
		return v, nil
	case string:
		return base64.StdEncoding.DecodeString(stripSpace(v))
	}
	return nil, fmt.Errorf("expected base64, got %T", src)
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func wrapPath(path string, err error) error {
	if path == "" {
		return err
	}
	return fmt.Errorf("%s: %w", path, err)
}
