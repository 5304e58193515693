package main

import (
	"flag"
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/aromanovich/jsl"
	"github.com/aromanovich/jsl/gen"
	"github.com/aromanovich/jsl/manifest"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "schema":
		schemaCmd(os.Args[2:])
	case "gen":
		genCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "jslc compiles document manifests to JSON Schema and Go types\n\nUsage:\n  jslc schema -manifest spec.yaml -doc Name [-role role] [-compact] [-o out.json]\n  jslc gen -manifest spec.yaml -pkg models [-o models.go]")
}

func schemaCmd(args []string) {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	var manifestPath string
	var docName string
	var role string
	var compact bool
	var out string
	fs.StringVar(&manifestPath, "manifest", "", "manifest file, YAML or JSON")
	fs.StringVar(&docName, "doc", "", "document name, as written or module qualified")
	fs.StringVar(&role, "role", jsl.DefaultRole, "role to emit the schema for")
	fs.BoolVar(&compact, "compact", false, "emit compact JSON")
	fs.StringVar(&out, "o", "", "output filename, stdout when empty")
	_ = fs.Parse(args)
	if manifestPath == "" || docName == "" {
		fs.Usage()
		os.Exit(2)
	}

	reg := jsl.NewRegistry()
	loadManifest(manifestPath, reg)
	doc := findDocument(reg, docName)
	schema, err := doc.Schema(jsl.WithRole(role))
	if err != nil {
		fatalf("emitting schema: %v", err)
	}
	var data []byte
	if compact {
		data, err = json.Marshal(schema)
	} else {
		data, err = json.MarshalIndent(schema, "", "  ")
	}
	if err != nil {
		fatalf("encoding schema: %v", err)
	}
	writeOutput(out, append(data, '\n'))
}

func genCmd(args []string) {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	var manifestPath string
	var pkg string
	var out string
	fs.StringVar(&manifestPath, "manifest", "", "manifest file, YAML or JSON")
	fs.StringVar(&pkg, "pkg", "", "package name for the generated file")
	fs.StringVar(&out, "o", "", "output filename, stdout when empty")
	_ = fs.Parse(args)
	if manifestPath == "" || pkg == "" {
		fs.Usage()
		os.Exit(2)
	}

	reg := jsl.NewRegistry()
	docs := loadManifest(manifestPath, reg)
	code, err := gen.File(pkg, docs)
	if err != nil {
		fatalf("generate: %v", err)
	}
	writeOutput(out, code)
}

func loadManifest(path string, reg *jsl.Registry) []*jsl.Document {
	f, err := os.Open(path)
	if err != nil {
		fatalf("%v", err)
	}
	defer f.Close()
	docs, err := manifest.Load(f, reg)
	if err != nil {
		fatalf("%v", err)
	}
	return docs
}

// findDocument resolves a document by its registry name or, failing
// that, by its bare name when that is unambiguous.
func findDocument(reg *jsl.Registry, name string) *jsl.Document {
	if d, err := reg.Get(name); err == nil {
		return d
	}
	var matches []*jsl.Document
	for _, d := range reg.Documents() {
		if d.Name() == name {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0]
	case 0:
		fatalf("document %q is not declared in the manifest", name)
	default:
		fatalf("document %q is ambiguous, qualify it with its module", name)
	}
	return nil
}

func writeOutput(path string, data []byte) {
	if path == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			fatalf("writing output: %v", err)
		}
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fatalf("writing output: %v", err)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
