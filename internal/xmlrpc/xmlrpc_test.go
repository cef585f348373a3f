package xmlrpc

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	kolo "github.com/kolo/xmlrpc"
)

const newPostCall = `<?xml version="1.0"?>
<methodCall>
  <methodName>metaWeblog.newPost</methodName>
  <params>
    <param><value><string>12</string></value></param>
    <param><value>alice</value></param>
    <param><value><string>s3cret &amp; more</string></value></param>
    <param>
      <value>
        <struct>
          <member><name>title</name><value><string>Hello &lt;World&gt;</string></value></member>
          <member><name>description</name><value>&lt;p&gt;Body&lt;/p&gt;</value></member>
          <member><name>dateCreated</name><value><dateTime.iso8601>20240315T10:30:00</dateTime.iso8601></value></member>
          <member><name>categories</name><value><array><data>
            <value><string>go</string></value>
            <value>xml</value>
          </data></array></value></member>
        </struct>
      </value>
    </param>
    <param><value><boolean>1</boolean></value></param>
  </params>
</methodCall>`

type testPost struct {
	Title       string    `xmlrpc:"title"`
	Description string    `xmlrpc:"description"`
	DateCreated time.Time `xmlrpc:"dateCreated"`
	Categories  []string  `xmlrpc:"categories"`
	PostID      string    `xmlrpc:"postid,omitempty"`
	Ignored     string    `xmlrpc:"-"`
}

func TestDecodeCall(t *testing.T) {
	call, err := DecodeCall(strings.NewReader(newPostCall))
	if err != nil {
		t.Fatalf("decode call: %v", err)
	}
	if call.Method != "metaWeblog.newPost" {
		t.Fatalf("unexpected method %q", call.Method)
	}
	if len(call.Params) != 5 {
		t.Fatalf("expected 5 params, got %d", len(call.Params))
	}
	if call.Params[1] != "alice" || call.Params[2] != "s3cret & more" {
		t.Fatalf("unexpected string params %#v %#v", call.Params[1], call.Params[2])
	}
	if call.Params[4] != true {
		t.Fatalf("expected boolean true, got %#v", call.Params[4])
	}

	var post testPost
	if err := Unmarshal(call.Params[3], &post); err != nil {
		t.Fatalf("unmarshal post: %v", err)
	}
	if post.Title != "Hello <World>" || post.Description != "<p>Body</p>" {
		t.Fatalf("unexpected post text %#v", post)
	}
	want := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)
	if !post.DateCreated.Equal(want) {
		t.Fatalf("expected %s, got %s", want, post.DateCreated)
	}
	if len(post.Categories) != 2 || post.Categories[0] != "go" || post.Categories[1] != "xml" {
		t.Fatalf("unexpected categories %v", post.Categories)
	}

	var blogID int64
	if err := Unmarshal(call.Params[0], &blogID); err != nil {
		t.Fatalf("unmarshal blog id: %v", err)
	}
	if blogID != 12 {
		t.Fatalf("expected blog id 12, got %d", blogID)
	}
}

func TestDecodeCallErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty", body: ""},
		{name: "wrong root", body: `<methodResponse/>`},
		{name: "no method name", body: `<methodCall><params/></methodCall>`},
		{name: "bad int", body: `<methodCall><methodName>x</methodName><params><param><value><int>one</int></value></param></params></methodCall>`},
		{name: "unknown type", body: `<methodCall><methodName>x</methodName><params><param><value><blob>1</blob></value></param></params></methodCall>`},
		{name: "truncated", body: `<methodCall><methodName>x</methodName><params><param><value>`},
		{name: "member without value", body: `<methodCall><methodName>x</methodName><params><param><value><struct><member><name>a</name></member></struct></value></param></params></methodCall>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeCall(strings.NewReader(tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDecodeCallLatin1(t *testing.T) {
	body := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><methodCall><methodName>m</methodName><params><param><value>caf\xe9</value></param></params></methodCall>")
	call, err := DecodeCall(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("decode latin-1 call: %v", err)
	}
	if call.Params[0] != "café" {
		t.Fatalf("expected café, got %#v", call.Params[0])
	}
}

func TestResponseRoundTrip(t *testing.T) {
	created := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)
	result := []testPost{{
		Title:       "A & B",
		Description: "<p>x</p>",
		DateCreated: created,
		Categories:  []string{"one"},
		PostID:      "7",
		Ignored:     "never sent",
	}}

	var buf bytes.Buffer
	if err := EncodeResponse(&buf, result); err != nil {
		t.Fatalf("encode response: %v", err)
	}
	if strings.Contains(buf.String(), "never sent") {
		t.Fatal("expected skipped field to be omitted")
	}
	if !strings.Contains(buf.String(), "<dateTime.iso8601>20240315T10:30:00</dateTime.iso8601>") {
		t.Fatalf("unexpected date encoding in %s", buf.String())
	}

	var got []testPost
	if err := kolo.Response(buf.Bytes()).Unmarshal(&got); err != nil {
		t.Fatalf("client decode: %v", err)
	}
	if len(got) != 1 || got[0].Title != "A & B" || got[0].PostID != "7" || !got[0].DateCreated.Equal(created) {
		t.Fatalf("unexpected round trip %#v", got)
	}
}

func TestEncodeScalars(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "bool", value: true, want: "<boolean>1</boolean>"},
		{name: "int", value: int64(-4), want: "<int>-4</int>"},
		{name: "double", value: 1.5, want: "<double>1.5</double>"},
		{name: "base64", value: []byte("hi"), want: "<base64>aGk=</base64>"},
		{name: "nil", value: nil, want: "<nil/>"},
		{name: "map", value: map[string]any{"b": 1, "a": "x"}, want: "<struct><member><name>a</name><value><string>x</string></value></member><member><name>b</name><value><int>1</int></value></member></struct>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := EncodeResponse(&buf, tt.value); err != nil {
				t.Fatalf("encode: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Fatalf("expected %s in %s", tt.want, buf.String())
			}
		})
	}

	var buf bytes.Buffer
	if err := EncodeResponse(&buf, make(chan int)); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestFaultRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeFault(&buf, 3001, "User could not be verified."); err != nil {
		t.Fatalf("encode fault: %v", err)
	}
	err := kolo.Response(buf.Bytes()).Err()
	var fault kolo.FaultError
	if !errors.As(err, &fault) {
		t.Fatalf("expected fault, got %v", err)
	}
	if fault.Code != 3001 || fault.String != "User could not be verified." {
		t.Fatalf("unexpected fault %#v", fault)
	}
}

func TestDecodeClientCall(t *testing.T) {
	created := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)
	body, err := kolo.EncodeMethodCall("metaWeblog.newMediaObject", "12", "alice", "pw", struct {
		Name    string      `xmlrpc:"name"`
		Bits    kolo.Base64 `xmlrpc:"bits"`
		Created time.Time   `xmlrpc:"created"`
	}{
		Name:    "cat.png",
		Bits:    kolo.Base64(base64.StdEncoding.EncodeToString([]byte("meow"))),
		Created: created,
	})
	if err != nil {
		t.Fatalf("client encode: %v", err)
	}
	call, err := DecodeCall(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("decode call: %v", err)
	}
	if call.Method != "metaWeblog.newMediaObject" || len(call.Params) != 4 || call.Params[0] != "12" {
		t.Fatalf("unexpected call %#v", call)
	}
	var obj struct {
		Name    string    `xmlrpc:"name"`
		Bits    []byte    `xmlrpc:"bits"`
		Created time.Time `xmlrpc:"created"`
	}
	if err := Unmarshal(call.Params[3], &obj); err != nil {
		t.Fatalf("unmarshal media object: %v", err)
	}
	if obj.Name != "cat.png" || string(obj.Bits) != "meow" || !obj.Created.Equal(created) {
		t.Fatalf("unexpected media object %+v", obj)
	}

	body, err = kolo.EncodeMethodCall("system.listMethods")
	if err != nil {
		t.Fatalf("client encode: %v", err)
	}
	call, err = DecodeCall(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("decode call without params: %v", err)
	}
	if call.Method != "system.listMethods" || len(call.Params) != 0 {
		t.Fatalf("unexpected call %#v", call)
	}
}

func TestUnmarshalConversions(t *testing.T) {
	var s string
	if err := Unmarshal(17, &s); err != nil || s != "17" {
		t.Fatalf("int to string: %q %v", s, err)
	}
	var b bool
	if err := Unmarshal("true", &b); err != nil || !b {
		t.Fatalf("string to bool: %v %v", b, err)
	}
	var when time.Time
	if err := Unmarshal("2024-01-02T03:04:05Z", &when); err != nil || when.Year() != 2024 {
		t.Fatalf("string to time: %v %v", when, err)
	}
	var n int
	if err := Unmarshal("abc", &n); err == nil {
		t.Fatal("expected error converting abc to int")
	}
	var post testPost
	if err := Unmarshal(map[string]any{"categories": "not an array"}, &post); err == nil || !strings.Contains(err.Error(), "categories") {
		t.Fatalf("expected error naming the member, got %v", err)
	}
	if err := Unmarshal("x", post); err == nil {
		t.Fatal("expected error for non-pointer target")
	}
}
