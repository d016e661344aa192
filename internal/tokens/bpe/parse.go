package bpe

import (
	"strconv"
	"strings"
)

// ParseTokenIDs parses a user supplied token list such as "1 23 45" or
// "1, 23, 45". Commas are ignored and fields are split on whitespace.
func ParseTokenIDs(s string) ([]TokenID, error) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	ids := make([]TokenID, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, &InvalidTokenInputError{Token: f, Position: i}
		}
		ids = append(ids, TokenID(v))
	}
	return ids, nil
}
