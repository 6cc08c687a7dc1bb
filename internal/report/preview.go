// Package report renders tables, previews and model summaries as the
// plain text shown in the results log.
package report

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"

	"cox-analyzer/internal/models"
)

// Head renders the first n rows of the given columns with a leading row
// index.
func Head(names []string, cols [][]string, n int) string {
	rows := 0
	if len(cols) > 0 {
		rows = len(cols[0])
	}
	if n > rows {
		n = rows
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprint(w, "\t")
	for _, na := range names {
		fmt.Fprintf(w, "%s\t", na)
	}
	fmt.Fprintln(w)

	for i := 0; i < n; i++ {
		fmt.Fprintf(w, "%d\t", i)
		for _, c := range cols {
			fmt.Fprintf(w, "%s\t", c[i])
		}
		fmt.Fprintln(w)
	}
	w.Flush()

	if n == 0 {
		buf.WriteString("(no rows)\n")
	}
	return buf.String()
}

// TableHead renders the first n rows of every column of t.
func TableHead(t *models.Table, n int) string {
	names := t.Names()
	cols := make([][]string, len(names))
	for j, na := range names {
		cols[j], _ = t.Column(na)
	}
	return Head(names, cols, n)
}

// FormatColumn renders numbers with up to six significant digits.
func FormatColumn(x []float64) []string {
	s := make([]string, len(x))
	for i, v := range x {
		s[i] = strconv.FormatFloat(v, 'g', 6, 64)
	}
	return s
}

// Describe renders count, mean, standard deviation, extremes and
// quartiles of x.
func Describe(name string, x []float64) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 4, ' ', 0)

	fmt.Fprintf(w, "count\t%.6f\n", float64(len(x)))
	if len(x) > 0 {
		s := append([]float64(nil), x...)
		sort.Float64s(s)
		mean, std := stat.MeanStdDev(s, nil)

		fmt.Fprintf(w, "mean\t%.6f\n", mean)
		fmt.Fprintf(w, "std\t%.6f\n", std)
		fmt.Fprintf(w, "min\t%.6f\n", s[0])
		for _, q := range []float64{0.25, 0.5, 0.75} {
			fmt.Fprintf(w, "%g%%\t%.6f\n", 100*q, Quantile(q, s))
		}
		fmt.Fprintf(w, "max\t%.6f\n", s[len(s)-1])
	}
	w.Flush()

	fmt.Fprintf(&buf, "Name: %s, dtype: float64\n", name)
	return buf.String()
}

// Quantile returns the p-quantile of sorted, interpolating linearly between
// the order statistics at h = (n-1)p.
func Quantile(p float64, sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo < 0 {
		return sorted[0]
	}
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}
