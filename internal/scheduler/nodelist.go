package scheduler

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var nodelistBracketRE = regexp.MustCompile(`^([^\[]*)\[([^\]]*)\](.*)$`)

// ExpandNodelist turns scheduler bracket notation ("udc-an[1,3,5-7]") into
// individual node names. A nodelist with no brackets (a single name, or a
// comma-separated list of plain names) is split and returned as-is.
func ExpandNodelist(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var names []string
	for _, group := range splitTopLevelCommas(s) {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		m := nodelistBracketRE.FindStringSubmatch(group)
		if m == nil {
			names = append(names, group)
			continue
		}
		prefix, body, suffix := m[1], m[2], m[3]
		expanded, err := expandBracketBody(prefix, body, suffix)
		if err != nil {
			return nil, err
		}
		names = append(names, expanded...)
	}
	return names, nil
}

// splitTopLevelCommas splits on commas that are not inside a [...] group.
func splitTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func expandBracketBody(prefix, body, suffix string) ([]string, error) {
	var names []string
	for _, item := range strings.Split(body, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if dash := strings.IndexByte(item, '-'); dash > 0 {
			loStr, hiStr := item[:dash], item[dash+1:]
			lo, err := strconv.Atoi(loStr)
			if err != nil {
				return nil, fmt.Errorf("invalid nodelist range %q: %w", item, err)
			}
			hi, err := strconv.Atoi(hiStr)
			if err != nil {
				return nil, fmt.Errorf("invalid nodelist range %q: %w", item, err)
			}
			width := len(loStr)
			for n := lo; n <= hi; n++ {
				names = append(names, fmt.Sprintf("%s%0*d%s", prefix, width, n, suffix))
			}
			continue
		}
		n, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid nodelist entry %q: %w", item, err)
		}
		names = append(names, fmt.Sprintf("%s%0*d%s", prefix, len(item), n, suffix))
	}
	return names, nil
}

// CompressNodelist is the inverse of ExpandNodelist: it groups names by
// their non-numeric prefix/suffix (groups emitted in sorted key order) and
// folds each group's contiguous numeric runs into "prefix[lo-hi,...]suffix"
// notation, zero-padded to the digit width of the group's lowest-numbered
// name. Names without trailing digits are appended as plain comma-separated
// entries.
func CompressNodelist(names []string) string {
	if len(names) == 0 {
		return ""
	}
	if len(names) == 1 {
		return names[0]
	}

	type parsed struct {
		prefix, suffix string
		n              int
		width          int
		ok             bool
	}

	trailingDigitsRE := regexp.MustCompile(`^(.*?)(\d+)([^\d]*)$`)

	parsedNames := make([]parsed, len(names))
	groups := map[string][]parsed{}
	for i, name := range names {
		m := trailingDigitsRE.FindStringSubmatch(name)
		if m == nil {
			parsedNames[i] = parsed{ok: false}
			continue
		}
		n, _ := strconv.Atoi(m[2])
		p := parsed{prefix: m[1], suffix: m[3], n: n, width: len(m[2]), ok: true}
		parsedNames[i] = p
		key := p.prefix + "\x00" + p.suffix
		groups[key] = append(groups[key], p)
	}

	var plain []string
	for i, p := range parsedNames {
		if !p.ok {
			plain = append(plain, names[i])
		}
	}

	var groupKeys []string
	for k := range groups {
		groupKeys = append(groupKeys, k)
	}
	sort.Strings(groupKeys)

	var segments []string
	for _, key := range groupKeys {
		entries := groups[key]
		sort.Slice(entries, func(i, j int) bool { return entries[i].n < entries[j].n })

		prefix, suffix := entries[0].prefix, entries[0].suffix
		width := entries[0].width

		var ranges []string
		i := 0
		for i < len(entries) {
			j := i
			for j+1 < len(entries) && entries[j+1].n == entries[j].n+1 {
				j++
			}
			if i == j {
				ranges = append(ranges, fmt.Sprintf("%0*d", width, entries[i].n))
			} else {
				ranges = append(ranges, fmt.Sprintf("%0*d-%0*d", width, entries[i].n, width, entries[j].n))
			}
			i = j + 1
		}

		if len(ranges) == 1 && !strings.Contains(ranges[0], "-") {
			segments = append(segments, prefix+ranges[0]+suffix)
		} else {
			segments = append(segments, fmt.Sprintf("%s[%s]%s", prefix, strings.Join(ranges, ","), suffix))
		}
	}

	segments = append(segments, plain...)
	return strings.Join(segments, ",")
}
