package remote

import (
	"net/url"
	"strings"
)

var columnListParams = []string{"columns", "select"}

func normalizeQuery(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, vs := range values {
		cp := make([]string, len(vs))
		copy(cp, vs)
		out[k] = cp
	}
	for _, name := range columnListParams {
		vs, ok := out[name]
		if !ok {
			continue
		}
		for i, v := range vs {
			if strings.Contains(v, `"`) {
				vs[i] = strings.ReplaceAll(v, `"`, "")
			}
		}
	}
	return out
}

// url.Values.Encode would escape '*' and ','.
func encodeQuery(values url.Values) string {
	encoded := values.Encode()
	r := strings.NewReplacer("%2A", "*", "%2C", ",")
	return r.Replace(encoded)
}
