package corpus

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Transform turns a field's JSON value into corpus text.
type Transform func(gjson.Result) string

var transforms = map[string]Transform{
	"text":         textTransform,
	"lowercase":    func(r gjson.Result) string { return strings.ToLower(r.String()) },
	"path_segment": pathSegmentTransform,
	"first_id":     firstIDTransform,
}

// lookupTransform resolves a transform name; the empty name means "text".
func lookupTransform(name string) (Transform, error) {
	if name == "" {
		return textTransform, nil
	}
	t, ok := transforms[name]
	if !ok {
		return nil, fmt.Errorf("unknown transform %q", name)
	}
	return t, nil
}

// textTransform yields strings unquoted and any other JSON value verbatim.
func textTransform(r gjson.Result) string {
	if r.Type == gjson.Null {
		return ""
	}
	return r.String()
}

// pathSegmentTransform returns the parent directory name of a slash path,
// e.g. the package name in "node_modules/lodash/package.json".
func pathSegmentTransform(r gjson.Result) string {
	segments := strings.Split(r.String(), "/")
	if len(segments) < 2 {
		return ""
	}
	return segments[len(segments)-2]
}

// firstIDTransform returns the "id" of the first array element carrying one.
func firstIDTransform(r gjson.Result) string {
	var id string
	r.ForEach(func(_, value gjson.Result) bool {
		if v := value.Get("id"); v.Exists() {
			id = v.String()
			return false
		}
		return true
	})
	return id
}
