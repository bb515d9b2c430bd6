package shopping

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// ListID derives the shopping list id of a wish-set. It only depends on the
// members of dishIDs: ids are sorted, joined with "|" and hashed with a
// 31-multiplier rolling hash over UTF-16 code units, wrapped to int32.
// Collisions are not detected.
func ListID(dishIDs []string) string {
	ids := append([]string(nil), dishIDs...)
	sort.Strings(ids)
	key := strings.Join(ids, "|")

	var h int32
	for _, unit := range utf16.Encode([]rune(key)) {
		h = h*31 + int32(unit)
	}

	n := int64(h)
	if n < 0 {
		n = -n
	}
	return "sl_" + strconv.FormatInt(n, 16)
}
