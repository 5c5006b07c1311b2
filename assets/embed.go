package assets

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed usages.tsv
var FS embed.FS

// readLines returns the non-blank, non-comment lines of an embedded file.
func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(s) == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// UsageLines returns the default phrase bank as raw TSV lines.
func UsageLines() ([]string, error) {
	return readLines("usages.tsv")
}
