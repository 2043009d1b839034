/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package testutil has small helpers for tests and for debug output.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/ColinKennedy/ways/core"
	"github.com/ColinKennedy/ways/descriptor"
)

// JS renders its argument as JSON or as a string indicating an error.
func JS(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		log.Printf("warning: testutil.JS error %s for %#v", err, x)
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Dwimjs, when given a string or bytes that parse as JSON, returns
// the parsed value.  Anything else just comes back as given.
//
// See https://en.wikipedia.org/wiki/DWIM.
func Dwimjs(x interface{}) interface{} {
	switch vv := x.(type) {
	case []byte:
		return Dwimjs(string(vv))
	case string:
		var v interface{}
		if err := json.Unmarshal([]byte(vv), &v); err != nil {
			return x
		}
		return v
	default:
		return x
	}
}

// SheetFile writes sheet source to a file under dir and returns the
// full path.
func SheetFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Registry loads each sheet source into one fresh Registry, failing
// the test on any load trouble.  Interpreted actions compile against
// core.DefaultInterpreters, so link an interpreter package if a sheet
// declares actions.
func Registry(t *testing.T, sheets ...string) *core.Registry {
	t.Helper()

	dir := t.TempDir()
	r := core.NewRegistry()
	for i, src := range sheets {
		path := SheetFile(t, dir, fmt.Sprintf("sheet%02d.yml", i), src)
		result := descriptor.Add(context.Background(), r, path, nil)
		if result.Status != descriptor.StatusSuccess {
			t.Fatalf("loading sheet %d: %s: %v", i, result.Reason, result.Err)
		}
	}
	return r
}
