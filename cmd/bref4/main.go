// Command bref4 compresses and filters phased, non-missing-genotype VCF data
// into the bref4 container format, and converts bref4 files back to VCF.
package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/browning-lab/bref4/bref4"
	"github.com/browning-lab/bref4/pipeline"
)

const (
	version = "0.1 (alpha release)"
	command = "bref4"

	defBitsPerLevel = 2
)

func programInfo() string {
	return "bref4 version " + version + "\n\n" +
		"The bref4 program compresses and filters phased sequence data."
}

func usage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage:\n  %s [parameters]\n\n", command)
	b.WriteString("Input and output file parameters:\n")
	b.WriteString("  in=[input file]                                        (required)\n")
	b.WriteString("  out=[output file]                                      (required)\n\n")
	b.WriteString("  The filename suffix must indicate the file type:\n\n")
	b.WriteString("    uncompressed VCF (\"*.vcf\")\n")
	b.WriteString("    gzip-compressed VCF (\"*.vcf.gz\" or \"*.vcf.bgz\")\n")
	b.WriteString("    bref4 (\"*.bref4\")\n\n")
	b.WriteString("    Replace \"[input file]\" with \"-\" to read an uncompressed VCF file from stdin\n")
	b.WriteString("    Replace \"[output file]\" with \"-\" to write an uncompressed VCF file to stdout\n")
	b.WriteString("    VCF output is always written uncompressed, whatever the output file's suffix\n\n")
	b.WriteString("General parameters:\n")
	b.WriteString("  nthreads=<number of threads>                           (default: all CPU cores)\n\n")
	return b.String()
}

func commandAndVersion() string {
	return strings.Join(os.Args, " ") + "  # bref4 (version " + version + ")"
}

func isValidInputOrOutput(path string) bool {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return false
	}
	return pipeline.IsVcfFormat(path) || pipeline.IsBref4Format(path)
}

func exitWithUsageError(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n\n", a...)
	fmt.Fprintf(os.Stderr, "Command:\n \"%s\"\n\n", strings.Join(os.Args, " "))
	fmt.Fprint(os.Stderr, usage())
	os.Exit(1)
}

// argsToMap parses "key=value" tokens into a map, the same grammar bref4's
// original command line uses.
func argsToMap(args []string) (map[string]string, error) {
	m := make(map[string]string, len(args))
	for _, a := range args {
		i := strings.IndexByte(a, '=')
		if i < 0 {
			return nil, fmt.Errorf("parameter %q is missing an \"=\"", a)
		}
		key, val := a[:i], a[i+1:]
		if _, ok := m[key]; ok {
			return nil, fmt.Errorf("duplicate parameter %q", key)
		}
		m[key] = val
	}
	return m, nil
}

func intArg(m map[string]string, key string, def, min int) (int, error) {
	v, ok := m[key]
	if !ok {
		return def, nil
	}
	delete(m, key)
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		return 0, fmt.Errorf("%s=%q must be an integer >= %d", key, v, min)
	}
	return n, nil
}

func run(args []string) error {
	if len(args) == 0 || strings.EqualFold(args[0], "help") {
		fmt.Println(programInfo())
		fmt.Println()
		fmt.Print(usage())
		return nil
	}

	m, err := argsToMap(args)
	if err != nil {
		exitWithUsageError("%v", err)
	}

	in, ok := m["in"]
	if !ok {
		exitWithUsageError("Missing input file. The input file is specified with the \"in=\" parameter.")
	}
	delete(m, "in")
	out, ok := m["out"]
	if !ok {
		exitWithUsageError("Missing output file. The output file is specified with the \"out=\" parameter.")
	}
	delete(m, "out")

	if !isValidInputOrOutput(in) {
		exitWithUsageError("Invalid input file %q. The input file must be '-' (for stdin)\nor a filename that ends in \".vcf.gz\", \".vcf.bgz\", \".vcf\", or \".bref4\"", in)
	}
	if !isValidInputOrOutput(out) {
		exitWithUsageError("Invalid output file %q. The output file must be '-' (for stdout)\nor a filename that ends in \".vcf.gz\", \".vcf.bgz\", \".vcf\", or \".bref4\"", out)
	}
	if in != "-" && in == out {
		exitWithUsageError("input_file and output_file are the same file: %q", in)
	}

	nthreads, err := intArg(m, "nthreads", runtime.NumCPU(), 1)
	if err != nil {
		exitWithUsageError("%v", err)
	}
	bitsPerLevel, err := intArg(m, "bits-per-level", defBitsPerLevel, 1)
	if err != nil {
		exitWithUsageError("%v", err)
	}
	maxNonmajor, err := intArg(m, "max-nonmajor", bref4.AutoMaxNonmajor, 0)
	if err != nil {
		exitWithUsageError("%v", err)
	}
	for k := range m {
		exitWithUsageError("Unrecognized parameter %q", k)
	}

	cfg := pipeline.Config{
		In:           in,
		Out:          out,
		NThreads:     nthreads,
		BitsPerLevel: bitsPerLevel,
		MaxNonmajor:  maxNonmajor,
		Command:      commandAndVersion(),
	}
	return pipeline.Run(cfg)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
