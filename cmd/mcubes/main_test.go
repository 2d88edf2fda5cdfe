package main

import (
	"flag"
	"io"
	"strings"
	"testing"
)

func TestSDFFlagConflicts(t *testing.T) {
	for _, test := range []struct {
		args    []string
		ignored string
	}{
		{args: []string{"-sdf", "csg", "-n", "40", "-o", "f.bin"}},
		{args: []string{"-sdf", "box", "-nx", "20"}, ignored: "-nx"},
		{args: []string{"-sdf", "box", "-scale", "2", "-offset", "1"}, ignored: "-offset, -scale"},
		{args: []string{"-type", "waves", "-sdf", "sphere"}, ignored: "-type"},
	} {
		fs := flag.NewFlagSet("gen", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		for _, name := range []string{"sdf", "type", "o"} {
			fs.String(name, "", "")
		}
		for _, name := range []string{"n", "nx", "ny", "nz", "seed"} {
			fs.Int(name, 0, "")
		}
		fs.Float64("scale", 1, "")
		fs.Float64("offset", 0, "")
		if err := fs.Parse(test.args); err != nil {
			t.Fatal(err)
		}
		err := sdfFlagConflicts(fs)
		if test.ignored == "" {
			if err != nil {
				t.Errorf("%v: unexpected error %v", test.args, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), test.ignored) {
			t.Errorf("%v: want error naming %s, got %v", test.args, test.ignored, err)
		}
	}
}
