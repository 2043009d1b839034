package tools

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ColinKennedy/ways/descriptor"
)

func TestInline(t *testing.T) {
	input := `
I like %inline("tacos"), and
I also like %inline("queso").
Both are delicious.
`
	want := `
I like TACOS, and
I also like QUESO.
Both are delicious.
`

	find := func(name string) ([]byte, error) {
		return []byte(strings.ToUpper(name)), nil
	}

	got, err := Inline([]byte(input), find)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Fatalf("got %s", got)
	}
}

func TestReadFileWithInlines(t *testing.T) {
	dir := t.TempDir()

	common := `    job:
        hierarchy: job
        mapping: /jobs/{JOB}
`
	sheet := `plugins:
%inline("common.yml")`

	if err := ioutil.WriteFile(filepath.Join(dir, "common.yml"), []byte(common), 0644); err != nil {
		t.Fatal(err)
	}
	filename := filepath.Join(dir, "pipeline.yml")
	if err := ioutil.WriteFile(filename, []byte(sheet), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadFileWithInlines(filename)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), "mapping: /jobs/{JOB}") {
		t.Fatalf("got %s", got)
	}

	if _, err = descriptor.ParseSheet(got); err != nil {
		t.Fatal(err)
	}
}
