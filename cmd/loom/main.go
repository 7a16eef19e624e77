package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	loom "github.com/loom-lang/loom"
)

type args struct {
	inputPath   *string
	analyzeOnly *bool
	astOnly     *bool
	emitGo      *bool
	run         *bool
	goPackage   *string
	bindJSON    *string
	bindVar     *string
}

func readArgs() *args {
	a := &args{
		inputPath:   flag.String("input", "", "Path to the source file"),
		analyzeOnly: flag.Bool("analyze-only", false, "Run analysis and print diagnostics, nothing else"),
		astOnly:     flag.Bool("ast", false, "Print the parsed AST and exit"),
		emitGo:      flag.Bool("emit-go", false, "Emit standalone Go source to stdout"),
		run:         flag.Bool("run", false, "Interpret the program and print its output"),
		goPackage:   flag.String("go-package", "main", "Package name for -emit-go output"),
		bindJSON:    flag.String("bind-json", "", "Path to a flat JSON object to bind as a parser-origin container before running"),
		bindVar:     flag.String("bind-var", "", "Top-level var/let name -bind-json's container is bound to (required with -bind-json)"),
	}
	flag.Parse()
	return a
}

func main() {
	a := readArgs()

	if *a.inputPath == "" {
		log.Fatal("Input not informed")
	}

	source, err := os.ReadFile(*a.inputPath)
	if err != nil {
		log.Fatalf("Can't open input file: %s", err.Error())
	}

	if *a.astOnly {
		prog, _, err := loom.ParseProgram(source)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(loom.PrettyProgram(prog))
		return
	}

	res, err := loom.Compile(source, loom.NewConfig())
	if err != nil {
		log.Fatal(err)
	}

	for _, d := range res.Diagnostics {
		fmt.Fprintln(os.Stderr, d.String())
	}

	if *a.analyzeOnly {
		if res.HasErrors() {
			os.Exit(1)
		}
		return
	}

	if res.HasErrors() {
		os.Exit(1)
	}

	externals, err := loadExternalBinding(*a.bindJSON, *a.bindVar)
	if err != nil {
		log.Fatal(err)
	}

	switch {
	case *a.emitGo:
		out, err := res.EmitGoSource(*a.goPackage)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Print(out)

	case *a.run:
		if err := res.RunWithExternal(os.Stdout, externals); err != nil {
			log.Fatal(err)
		}

	default:
		if err := res.RunWithExternal(os.Stdout, externals); err != nil {
			log.Fatal(err)
		}
	}
}

// loadExternalBinding implements -bind-json/-bind-var: parsing a flat
// JSON object into a parser-origin container (loom.ParseJSONMap) and
// handing it to the interpreter under bindVar's name, the CLI's
// surface for the host-supplied-data path RunWithExternal exists for.
func loadExternalBinding(jsonPath, bindVar string) (map[string]loom.Cell, error) {
	if jsonPath == "" {
		return nil, nil
	}
	if bindVar == "" {
		return nil, fmt.Errorf("-bind-json requires -bind-var to name the variable it's bound to")
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("can't open -bind-json file: %w", err)
	}
	c, err := loom.ParseJSONMap(loom.NewShapePool(), data)
	if err != nil {
		return nil, err
	}
	return map[string]loom.Cell{bindVar: loom.ContainerCell(c)}, nil
}
