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

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteTo serializes the registry to the Prometheus exposition text
// format, writing one HELP/TYPE/series block per family in
// name-sorted order, separated by a blank line. Histogram families
// expand into three derived blocks (_bucket, _sum, _count) per §4.4.
//
// Serialization is stable: the same registry contents always produce
// byte-identical output, because Iterate() sorts by name and every
// slice traversed here is insertion-ordered.
func WriteTo(w io.Writer, r *Registry) error {
	for _, f := range r.Iterate() {
		var err error
		if f.Kind == Histogram {
			err = writeHistogramFamily(w, f)
		} else {
			err = writeSimpleFamily(w, f)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeSimpleFamily(w io.Writer, f *Family) error {
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", f.Name, EscapeHelp(f.Help), f.Name, f.Kind); err != nil {
		return err
	}
	for _, s := range f.Series {
		for _, sample := range s.Samples {
			if err := writeLine(w, f.Name, s.Labels, sample); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func writeHistogramFamily(w io.Writer, f *Family) error {
	bucketName := f.Name + "_bucket"
	sumName := f.Name + "_sum"
	countName := f.Name + "_count"

	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", bucketName, EscapeHelp(f.Help), bucketName, Gauge); err != nil {
		return err
	}
	for _, s := range f.Series {
		h := s.Histogram
		if h == nil {
			continue
		}
		n := len(h.Bounds)
		if len(h.Counts) < n {
			n = len(h.Counts)
		}
		for i := 0; i < n; i++ {
			labels := withLabel(s.Labels, "le", formatFloat(h.Bounds[i]))
			if err := writeLine(w, bucketName, labels, Sample{Value: formatFloat(h.Counts[i])}); err != nil {
				return err
			}
		}
		infLabels := withLabel(s.Labels, "le", "+Inf")
		if err := writeLine(w, bucketName, infLabels, Sample{Value: h.Count}); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", sumName, EscapeHelp(f.Help), sumName, Gauge); err != nil {
		return err
	}
	for _, s := range f.Series {
		if s.Histogram == nil {
			continue
		}
		if err := writeLine(w, sumName, s.Labels, Sample{Value: s.Histogram.Sum}); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", countName, EscapeHelp(f.Help), countName, Gauge); err != nil {
		return err
	}
	for _, s := range f.Series {
		if s.Histogram == nil {
			continue
		}
		if err := writeLine(w, countName, s.Labels, Sample{Value: s.Histogram.Count}); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func writeLine(w io.Writer, name string, labels []Label, sample Sample) error {
	var b strings.Builder
	b.WriteString(name)
	if len(labels) > 0 {
		b.WriteByte('{')
		for i, l := range labels {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(l.Name)
			b.WriteString(`="`)
			b.WriteString(EscapeLabelValue(l.Value))
			b.WriteString(`"`)
		}
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(sample.Value)
	if sample.Timestamp != 0 {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatInt(int64(sample.Timestamp*1000), 10))
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func withLabel(labels []Label, name, value string) []Label {
	out := make([]Label, 0, len(labels)+1)
	out = append(out, labels...)
	out = append(out, Label{Name: name, Value: value})
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
