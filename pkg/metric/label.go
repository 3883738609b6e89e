// Copyright 2024 The pgexporter Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
package metric

import "strings"

// EscapeLabelValue applies the exposition-format escaping rules to a
// raw string: `"` -> `\"`, `\` -> `\\`, newline -> `\n`. This is the
// generic value encoder and runs over every label value at format
// time, including decimal values like histogram `le` bounds, so it
// must not fold dots — that would turn `le="0.1"` into `le="0_1"`.
// Empty input maps to the empty string.
func EscapeLabelValue(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SafeKey folds `.` -> `_` in a raw identifier, dropping a trailing
// `.` outright, per spec §3's label-name invariant. Unlike
// EscapeLabelValue this is not a generic value encoder: it is applied
// at construction time to key-type identifiers — server names,
// extension names, setting names, SQL column names used as label
// names — and to the values of custom-metric label columns in
// pkg/query; it is not applied at format time, so values such as
// histogram `le` bounds keep their dots.
func SafeKey(raw string) string {
	if raw == "" {
		return ""
	}
	raw = strings.TrimSuffix(raw, ".")
	return strings.ReplaceAll(raw, ".", "_")
}

// EscapeHelp escapes help text for the HELP line: backslashes and
// newlines are escaped, everything else (including quotes) passes
// through verbatim, per the exposition format's HELP-line rules.
func EscapeHelp(raw string) string {
	if !strings.ContainsAny(raw, "\\\n") {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
