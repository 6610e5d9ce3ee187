package utils

import "strings"

func IsStringInSlice(s string, slice []string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

// SplitHeaderList splits a whitespace separated header (References, In-Reply-To)
// and drops duplicates, keeping first occurrence order.
func SplitHeaderList(raw string) []string {
	var out []string
	for _, item := range strings.Fields(raw) {
		if !IsStringInSlice(item, out) {
			out = append(out, item)
		}
	}
	return out
}
