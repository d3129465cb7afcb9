package parser

import (
	"errors"
	"reflect"
	"testing"

	"github.com/August26/proxycheck-api/internal/model"
)

func TestParseCredential_Simple(t *testing.T) {
	res, err := ParseCredential("user:pass@9.9.9.9:3128")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := model.ProxyCredential{
		IP:   "9.9.9.9",
		Port: 3128,
		User: "user",
		Pass: "pass",
	}
	if !reflect.DeepEqual(res, want) {
		t.Fatalf("got %#v want %#v", res, want)
	}
}

func TestParseCredential_TrimsWhitespace(t *testing.T) {
	res, err := ParseCredential("  u:p@proxy.example.com:1080\n")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.IP != "proxy.example.com" || res.Port != 1080 {
		t.Fatalf("bad host/port parse: %#v", res)
	}
}

func TestParseCredential_RoundTrip(t *testing.T) {
	cases := []model.ProxyCredential{
		{IP: "1.2.3.4", Port: 1, User: "a", Pass: "b"},
		{IP: "203.0.113.5", Port: 8080, User: "user-01", Pass: "p%ss/w?rd"},
		{IP: "10.0.0.1", Port: 65535, User: "u", Pass: "!#$&'()*+,;="},
		{IP: "proxy.local", Port: 3128, User: "имя", Pass: "пароль"},
	}
	for _, c := range cases {
		got, err := ParseCredential(FormatCredential(c))
		if err != nil {
			t.Fatalf("%q: unexpected err: %v", FormatCredential(c), err)
		}
		if !reflect.DeepEqual(got, c) {
			t.Fatalf("got %#v want %#v", got, c)
		}
	}
}

func TestParseCredential_Invalid(t *testing.T) {
	bad := []string{
		"",
		"   ",
		"nouserpasshere",
		"1.2.3.4:8080",
		"user@1.2.3.4:8080",
		":pass@1.2.3.4:8080",
		"user:@1.2.3.4:8080",
		"user:pa:ss@1.2.3.4:8080",
		"user:pass@1.2.3.4",
		"user:pass@1.2.3.4:80:80",
		"user:pass@:8080",
		"user:pass@1.2.3.4:0",
		"user:pass@1.2.3.4:65536",
		"user:pass@1.2.3.4:http",
		"user:pass@1.2.3.4:+80",
		"user:pass@1.2.3.4:-1",
		"user:p@ss@1.2.3.4:8080",
	}
	for _, s := range bad {
		res, err := ParseCredential(s)
		if err == nil {
			t.Fatalf("%q: expected error, got %#v", s, res)
		}
		if !errors.Is(err, ErrMalformedCredential) {
			t.Fatalf("%q: error %v does not wrap ErrMalformedCredential", s, err)
		}
		if res != (model.ProxyCredential{}) {
			t.Fatalf("%q: partial credential returned: %#v", s, res)
		}
	}
}
