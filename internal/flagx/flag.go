package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the flags named in allowed (plus their values) from
// args, preserving order. Both "-f value" and "--flag=value" spellings are
// recognized; in the separate-value form, a following token is taken as the
// value only when it does not itself start with a dash. Everything else,
// positional arguments included, is dropped.
//
// This lets a component parse its own flag subset without tripping over
// flags that belong to someone else on the same command line.
func FilterArgs(args []string, allowed []string) []string {
	keep := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		keep[name] = struct{}{}
	}

	kept := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := splitEquals(arg); ok {
			if _, want := keep[name]; want {
				kept = append(kept, arg)
			}
			continue
		}

		if _, want := keep[arg]; !want {
			continue
		}
		kept = append(kept, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			kept = append(kept, args[i+1])
			i++
		}
	}
	return kept
}

// splitEquals recognizes the "--flag=value" spelling.
func splitEquals(arg string) (name, value string, ok bool) {
	if !strings.HasPrefix(arg, "-") {
		return "", "", false
	}
	name, value, ok = strings.Cut(arg, "=")
	return name, value, ok
}

// JsonConfigFlags reads the config file path from -c or -config on the
// command line, returning "" when neither is present. Other flags pass
// through untouched so packages with their own flag sets stay unaffected.
func JsonConfigFlags() string {
	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	var path string
	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)
	return path
}
