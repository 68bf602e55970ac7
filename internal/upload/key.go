// Package upload stores downloaded CSV exports in object storage.
package upload

import (
	"path"
	"strings"
	"unicode"

	"github.com/bobmcallan/storetally/internal/models"
)

// ObjectKey builds "<folder>/<date>/<store>-<type>.csv". The store name is
// lowercased and reduced to letters, digits and dashes.
func ObjectKey(folder, date, store string, typ models.CollectionType) string {
	name := slug(store) + "-" + string(typ) + ".csv"
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return path.Join(date, name)
	}
	return path.Join(folder, date, name)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "store"
	}
	return out
}
