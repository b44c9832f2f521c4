package candidate

import (
	"fmt"
	"sort"
	"strings"
)

const (
	Digits  = "0123456789"
	Lower   = "abcdefghijklmnopqrstuvwxyz"
	Upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Special = "!@#$%^&*()-_=+,.?/"
	All     = Digits + Lower + Upper + Special
)

var charsets = map[string]string{
	"digits":  Digits,
	"lower":   Lower,
	"upper":   Upper,
	"mixed":   Lower + Digits,
	"special": Special,
	"all":     All,
}

// Charset resolves a named character set such as "lower" or "all".
func Charset(name string) (string, error) {
	cs, ok := charsets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: unknown charset %q (want one of %s)",
			ErrInvalidConfiguration, name, strings.Join(CharsetNames(), ", "))
	}
	return cs, nil
}

// CharsetNames lists the accepted charset names in sorted order.
func CharsetNames() []string {
	names := make([]string, 0, len(charsets))
	for n := range charsets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
