package xmlrpc

import (
	"bufio"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// EncodeResponse writes a successful <methodResponse> carrying result.
func EncodeResponse(w io.Writer, result any) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(xml.Header)
	bw.WriteString("<methodResponse><params><param>")
	if err := writeValue(bw, reflect.ValueOf(result)); err != nil {
		return err
	}
	bw.WriteString("</param></params></methodResponse>\n")
	return bw.Flush()
}

// EncodeFault writes a fault <methodResponse>.
func EncodeFault(w io.Writer, code int, message string) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(xml.Header)
	bw.WriteString("<methodResponse><fault>")
	if err := writeValue(bw, reflect.ValueOf(Fault{Code: code, Message: message})); err != nil {
		return err
	}
	bw.WriteString("</fault></methodResponse>\n")
	return bw.Flush()
}

var (
	timeType  = reflect.TypeOf(time.Time{})
	bytesType = reflect.TypeOf([]byte(nil))
)

func writeValue(w *bufio.Writer, v reflect.Value) error {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			break
		}
		v = v.Elem()
	}
	if !v.IsValid() || ((v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) && v.IsNil()) {
		w.WriteString("<value><nil/></value>")
		return nil
	}

	switch {
	case v.Type() == timeType:
		t := v.Interface().(time.Time)
		w.WriteString("<value><dateTime.iso8601>")
		w.WriteString(t.UTC().Format(DateTimeLayout))
		w.WriteString("</dateTime.iso8601></value>")
		return nil
	case v.Type() == bytesType:
		w.WriteString("<value><base64>")
		w.WriteString(base64.StdEncoding.EncodeToString(v.Bytes()))
		w.WriteString("</base64></value>")
		return nil
	}

	switch v.Kind() {
	case reflect.String:
		w.WriteString("<value><string>")
		if err := xml.EscapeText(w, []byte(v.String())); err != nil {
			return err
		}
		w.WriteString("</string></value>")
	case reflect.Bool:
		w.WriteString("<value><boolean>")
		if v.Bool() {
			w.WriteString("1")
		} else {
			w.WriteString("0")
		}
		w.WriteString("</boolean></value>")
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		w.WriteString("<value><int>")
		w.WriteString(strconv.FormatInt(v.Int(), 10))
		w.WriteString("</int></value>")
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		w.WriteString("<value><int>")
		w.WriteString(strconv.FormatUint(v.Uint(), 10))
		w.WriteString("</int></value>")
	case reflect.Float32, reflect.Float64:
		w.WriteString("<value><double>")
		w.WriteString(strconv.FormatFloat(v.Float(), 'f', -1, 64))
		w.WriteString("</double></value>")
	case reflect.Slice, reflect.Array:
		w.WriteString("<value><array><data>")
		for i := 0; i < v.Len(); i++ {
			if err := writeValue(w, v.Index(i)); err != nil {
				return err
			}
		}
		w.WriteString("</data></array></value>")
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("unsupported map key type %s", v.Type().Key())
		}
		keys := make([]string, 0, v.Len())
		for _, key := range v.MapKeys() {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		w.WriteString("<value><struct>")
		for _, key := range keys {
			if err := writeMember(w, key, v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key()))); err != nil {
				return err
			}
		}
		w.WriteString("</struct></value>")
	case reflect.Struct:
		w.WriteString("<value><struct>")
		for _, field := range structFields(v.Type()) {
			fv := v.FieldByIndex(field.index)
			if field.omitEmpty && fv.IsZero() {
				continue
			}
			if err := writeMember(w, field.name, fv); err != nil {
				return err
			}
		}
		w.WriteString("</struct></value>")
	default:
		return fmt.Errorf("unsupported value type %s", v.Type())
	}
	return nil
}

func writeMember(w *bufio.Writer, name string, v reflect.Value) error {
	w.WriteString("<member><name>")
	if err := xml.EscapeText(w, []byte(name)); err != nil {
		return err
	}
	w.WriteString("</name>")
	if err := writeValue(w, v); err != nil {
		return fmt.Errorf("member %s: %w", name, err)
	}
	w.WriteString("</member>")
	return nil
}
