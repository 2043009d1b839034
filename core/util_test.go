package core

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitComma(t *testing.T) {
	for _, c := range []struct {
		input string
		want  []string
	}{
		{"linux, darwin", []string{"linux", "darwin"}},
		{"linux", []string{"linux"}},
		{" , linux , ", []string{"linux"}},
		{"", nil},
		{",,,", nil},
	} {
		if got := SplitComma(c.input); !reflect.DeepEqual(got, c.want) {
			t.Fatalf(`SplitComma("%s") == %v, wanted %v`, c.input, got, c.want)
		}
	}
}

func TestGensym(t *testing.T) {
	s := Gensym(32)
	if len(s) != 32 {
		t.Fatalf("got %d characters", len(s))
	}
	for _, r := range s {
		if !strings.ContainsRune(string(alphabet), r) {
			t.Fatalf("got %q", r)
		}
	}
	if Gensym(32) == s {
		t.Fatal("that's unlucky")
	}
}

func TestCanonicalize(t *testing.T) {
	x, err := Canonicalize(map[string]interface{}{
		"n":    1,
		"list": []string{"a"},
	})
	if err != nil {
		t.Fatal(err)
	}

	m, is := x.(map[string]interface{})
	if !is {
		t.Fatalf("got %T", x)
	}
	if got := m["n"]; got != float64(1) {
		t.Fatalf("got %#v", got)
	}
	if _, is = m["list"].([]interface{}); !is {
		t.Fatalf("got %T", m["list"])
	}

	if _, err = Canonicalize(func() {}); err == nil {
		t.Fatal("wanted an error")
	}
}
