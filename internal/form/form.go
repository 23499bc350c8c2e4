// Package form parses application/x-www-form-urlencoded request bodies into
// an explicit field map.
package form

import (
	"fmt"
	"net/url"
	"strings"
)

// Values maps a field name to every value sent for it, in body order.
type Values map[string][]string

// Parse decodes a form-encoded body.  Pairs are separated by '&' only, so a
// ';' is part of the key or value.  Only a bad percent-escape is an error.
// An empty body yields an empty map.
func Parse(body []byte) (Values, error) {
	v := Values{}
	rest := string(body)
	for rest != "" {
		var pair string
		pair, rest, _ = strings.Cut(rest, "&")
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("form: key %q: %w", rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("form: value of %q: %w", key, err)
		}
		v[key] = append(v[key], value)
	}
	return v, nil
}

// Lookup returns the first value of name and whether the field was present.
// A field sent with an empty value ("data=") is present.
func (v Values) Lookup(name string) (string, bool) {
	vals, ok := v[name]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}
