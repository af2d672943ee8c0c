package utils

import "strings"

// NormalizePlate приводит номер к виду, в котором его присылают станции:
// без пробелов и дефисов, в верхнем регистре. '*' сохраняется для поиска.
func NormalizePlate(raw string) string {
	return strings.ToUpper(strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(strings.TrimSpace(raw)))
}

// PlateLikePattern turns a '*' wildcard plate into a SQL LIKE pattern.
// ok is false when the plate has no wildcard.
func PlateLikePattern(plate string) (pattern string, ok bool) {
	if !strings.Contains(plate, "*") {
		return plate, false
	}
	escaped := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(plate)
	return strings.ReplaceAll(escaped, "*", "%"), true
}
