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

import "strconv"

// CoerceValue maps an arbitrary SQL cell string to a Prometheus-legal
// value, in precedence order. It is a total function: every input
// produces one of NaN, +Inf, -Inf, an integer literal, or a decimal
// literal.
func CoerceValue(raw string) string {
	switch raw {
	case "", "off", "f", "(disabled)":
		return "0"
	case "on", "t":
		return "1"
	case "NaN":
		return "NaN"
	}
	if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return raw
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		// Spellings such as "Infinity", "inf" or "nan" parse as floats;
		// normalize them to the exposition format's own forms.
		if s := strconv.FormatFloat(f, 'g', -1, 64); s == "NaN" || s == "+Inf" || s == "-Inf" {
			return s
		}
		return raw
	}
	return "1"
}
