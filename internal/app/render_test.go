package app

import (
	"errors"
	"testing"
)

func TestPrettyJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"object", `{"count": 5}`, "{\n  \"count\": 5\n}"},
		{"empty object", `{}`, "{}"},
		{"empty object with space", "{ }", "{}"},
		{"empty array", `[]`, "[]"},
		{"nested", `{"a":{"b":[1,2]},"c":null}`, "{\n  \"a\": {\n    \"b\": [\n      1,\n      2\n    ]\n  },\n  \"c\": null\n}"},
		{"keeps key order", `{"z":1,"a":2}`, "{\n  \"z\": 1,\n  \"a\": 2\n}"},
		{"scalar string", `"hello"`, `"hello"`},
		{"surrounding whitespace", "\n  {\"x\":true}  \n", "{\n  \"x\": true\n}"},
		{"no html escaping", `{"t":"<b>&</b>"}`, "{\n  \"t\": \"<b>&</b>\"\n}"},
		{"python float zero", `{"avg_cpu_usage": 0.0}`, "{\n  \"avg_cpu_usage\": 0\n}"},
		{"trailing zero fraction", `[41.50, 3.0, -0.0]`, "[\n  41.5,\n  3,\n  0\n]"},
		{"exponent expanded", `{"n":1e2}`, "{\n  \"n\": 100\n}"},
		{"small fraction", `[0.000001, 1E-7]`, "[\n  0.000001,\n  1e-7\n]"},
		{"large numbers", `[1e21, 123456789012345678901234, 1e20]`, "[\n  1e+21,\n  1.2345678901234568e+23,\n  100000000000000000000\n]"},
		{"overflow is null", `[1e400]`, "[\n  null\n]"},
		{"duplicate key keeps last value at first position", `{"a":1,"b":2,"a":3}`, "{\n  \"a\": 3,\n  \"b\": 2\n}"},
		{"index keys first", `{"b":1,"1":2}`, "{\n  \"1\": 2,\n  \"b\": 1\n}"},
		{"index keys ascending", `{"x":0,"10":1,"2":2,"01":3}`, "{\n  \"2\": 2,\n  \"10\": 1,\n  \"x\": 0,\n  \"01\": 3\n}"},
		{"string escapes", `"a\u0001\/b\u00e9"`, "\"a\\u0001/b\u00e9\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PrettyJSON([]byte(tt.in))
			if err != nil {
				t.Fatalf("PrettyJSON: %v", err)
			}
			if got != tt.want {
				t.Errorf("PrettyJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPrettyJSON_Idempotent(t *testing.T) {
	body := []byte(`{"total_player_events":12,"avg_cpu_usage":41.5,"last_updated":"2025-03-01T10:00:00"}`)
	first, err := PrettyJSON(body)
	if err != nil {
		t.Fatal(err)
	}
	second, err := PrettyJSON(body)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("unchanged body should render byte-identical text:\n%q\n%q", first, second)
	}
}

func TestPrettyJSON_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "<html>502 Bad Gateway</html>", `{"a":`, `{"a":1}}`, `"abc`, `tru`, `[1,]`, `{"a" 1}`, `01`, `1.`, `[.5]`, `{"a":1,}`, `nul`} {
		_, err := PrettyJSON([]byte(in))
		if !errors.Is(err, ErrNotJSON) {
			t.Errorf("PrettyJSON(%q) error = %v, want ErrNotJSON", in, err)
		}
	}
}
