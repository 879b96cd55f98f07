// Command airspeed-svcgen generates the GATT attribute table for a
// service described in YAML.
//
// The service definition names its characteristics, their properties
// and whether they carry a client configuration descriptor; the
// generator lays out the handle space, emits the handle constants and
// a table constructor, and formats the result with goimports.
//
// Usage:
//
//	airspeed-svcgen -in gatt/throughput.yaml -out pkg/gatt/throughput_gen.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/tools/imports"
)

func main() {
	in := flag.String("in", "", "Service definition YAML")
	out := flag.String("out", "", "Output path for the generated Go file")
	pkg := flag.String("pkg", "gatt", "Package name for the generated file")
	flag.Parse()

	if *in == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "Usage: airspeed-svcgen -in <yaml> -out <go file> [-pkg <name>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(*in, *out, *pkg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(in, out, pkg string) error {
	def, err := LoadServiceDef(in)
	if err != nil {
		return fmt.Errorf("loading service definition: %w", err)
	}

	code, err := Generate(def, pkg)
	if err != nil {
		return fmt.Errorf("generating %s: %w", def.Name, err)
	}

	if err := writeFormatted(out, code); err != nil {
		return err
	}
	fmt.Printf("  generated %s\n", out)
	return nil
}

// writeFormatted formats Go source code with goimports and writes it
// to a file.
func writeFormatted(path string, code string) error {
	formatted, err := imports.Process(path, []byte(code), nil)
	if err != nil {
		// Write unformatted so you can debug the generator output
		_ = os.WriteFile(path+".broken", []byte(code), 0o644)
		return fmt.Errorf("goimports %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, formatted, 0o644)
}
