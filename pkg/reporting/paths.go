package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RunDir names the output directory for one batch run: the symbol set
// (capped so huge batches stay readable) plus a sortable timestamp.
func RunDir(outputRoot string, symbols []string, at time.Time) string {
	seen := make(map[string]bool)
	uniq := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		uniq = append(uniq, s)
	}

	label := "BATCH"
	switch {
	case len(uniq) == 0:
	case len(uniq) <= 3:
		label = strings.Join(uniq, "-")
	default:
		label = fmt.Sprintf("%s-AND-%d-MORE", uniq[0], len(uniq)-1)
	}

	return filepath.Join(outputRoot, fmt.Sprintf("%s_%s", label, at.Format("20060102_150405")))
}

// EnsureDirectoryExists creates the directory holding path if needed.
func EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
