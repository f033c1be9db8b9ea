package server

import (
	"strconv"
	"strings"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

// creatorLine joins creator names for display, e.g. "Ada Lovelace, Printing Society".
func creatorLine(creators []catalog.Creator) string {
	names := make([]string, 0, len(creators))
	for _, c := range creators {
		if n := c.FullName(); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, ", ")
}

func parseYear(date string) (string, bool) {
	y, ok := catalog.ParseYear(date)
	if !ok {
		return "", false
	}
	return strconv.Itoa(y), true
}
