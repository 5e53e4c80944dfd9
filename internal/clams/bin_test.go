package clams

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/clams-cli/internal/progress"
	"github.com/KaramelBytes/clams-cli/internal/schema"
	"github.com/KaramelBytes/clams-cli/internal/table"
)

// trimmedFixture returns rows [from, to] of a synthetic export, as the
// Trimmer would have produced them.
func trimmedFixture(s subjectExport, from, to int) *table.Table {
	t := table.New(exportColumns)
	for i := from; i <= to; i++ {
		t.Rows = append(t.Rows, s.row(i))
	}
	return t
}

// cells maps column name to value for one output row.
func cells(t *table.Table, row int) map[string]string {
	out := make(map[string]string, len(t.Header))
	for i, h := range t.Header {
		out[h] = t.Rows[row][i]
	}
	return out
}

func sumColumn(t *testing.T, tab *table.Table, name string) float64 {
	t.Helper()
	col, ok := tab.Column(name)
	require.True(t, ok, name)
	var s float64
	for _, c := range col {
		if v, ok := schema.ParseNumber(c); ok {
			s += v
		}
	}
	return s
}

func TestValidateBinHours(t *testing.T) {
	for _, h := range []int{1, 2, 3, 4, 6, 8, 12, 24} {
		assert.NoError(t, ValidateBinHours(h), "bin %d", h)
	}
	for _, h := range []int{0, -4, 5, 7, 48} {
		err := ValidateBinHours(h)
		assert.True(t, errors.Is(err, ErrInvalidParams), "bin %d", h)
	}
}

func TestBinTable(t *testing.T) {
	sub := subjectExport{id: "0001", hours: 48, period: 12, vo2: 3000}
	in := trimmedFixture(sub, 12, 36)

	out, err := BinTable("s.csv", in, 4)
	require.NoError(t, err)
	assert.Equal(t, schema.CanonicalOrder, out.Header)
	for _, d := range schema.DroppedColumns {
		assert.False(t, out.Has(d), "dropped column %s present", d)
	}
	// Light phase 1 spans hours 12-23 (3 full bins), phase 0 hours 24-36
	// (3 full bins and the single closing reading at hour 36).
	require.Len(t, out.Rows, 7)

	first := cells(out, 0)
	assert.Equal(t, "1", first["CHAN"])
	assert.Equal(t, "13", first["INTERVAL_start"])
	assert.Equal(t, "16", first["INTERVAL_end"])
	assert.Equal(t, "2024-03-04 19:00:00", first["DATE/TIME_start"])
	assert.Equal(t, "2024-03-04 22:00:00", first["DATE/TIME_end"])
	assert.Equal(t, "3", first["DURATION"])
	assert.Equal(t, "3013.5", first["VO2"])
	assert.Equal(t, "16", first["ACCO2"])
	assert.Equal(t, "32", first["ACCCO2"])
	assert.Equal(t, "0.83", first["RER"])
	assert.Equal(t, "1", first["FEED1"])
	assert.Equal(t, "4", first["FEED1 ACC"])
	assert.Equal(t, "20", first["TOT_AMB"])
	assert.Equal(t, "4", first["WHEEL"])
	assert.Equal(t, "16", first["WHEEL ACC"])
	assert.Equal(t, "22", first["ENCLOSURE TEMP"])
	assert.Equal(t, "1", first["LED LIGHTNESS"])
	assert.Equal(t, "0", first["BIN"])
	assert.Equal(t, "1", first["DAY"])
	assert.Equal(t, "0", first["DAILY_BIN"])

	fourth := cells(out, 3)
	assert.Equal(t, "0", fourth["LED LIGHTNESS"])
	assert.Equal(t, "25", fourth["INTERVAL_start"])
	assert.Equal(t, "2", fourth["DAY"])

	last := cells(out, 6)
	assert.Equal(t, "37", last["INTERVAL_start"])
	assert.Equal(t, "37", last["INTERVAL_end"])
	assert.Equal(t, "0", last["DURATION"])
	assert.Equal(t, "3036", last["VO2"])
	assert.Equal(t, "6", last["BIN"])
	assert.Equal(t, "3", last["DAY"])
	assert.Equal(t, "0", last["DAILY_BIN"])

	for i := range out.Rows {
		assert.Equal(t, strconv.Itoa(i), cells(out, i)["BIN"])
		assert.Equal(t, strconv.Itoa(i%6), cells(out, i)["DAILY_BIN"])
	}
}

func TestBinTablePreservesTotals(t *testing.T) {
	sub := subjectExport{id: "0001", hours: 48, period: 12, vo2: 3000}
	in := trimmedFixture(sub, 12, 36)
	out, err := BinTable("s.csv", in, 4)
	require.NoError(t, err)

	assert.InDelta(t, sumColumn(t, in, "WHEEL"), sumColumn(t, out, "WHEEL"), 1e-9)
	assert.InDelta(t, sumColumn(t, in, "FEED1"), sumColumn(t, out, "FEED1"), 1e-9)
	assert.InDelta(t, sumColumn(t, in, "XAMB")+sumColumn(t, in, "YAMB"), sumColumn(t, out, "TOT_AMB"), 1e-9)

	// Cumulative columns end where the input ends.
	acc, _ := in.Column("WHEEL ACC")
	outAcc, _ := out.Column("WHEEL ACC")
	assert.Equal(t, acc[len(acc)-1], outAcc[len(outAcc)-1])
}

func TestBinTableDeterministic(t *testing.T) {
	in := trimmedFixture(subjectExport{id: "1", hours: 48, period: 12, vo2: 10}, 12, 36)
	a, err := BinTable("s.csv", in, 6)
	require.NoError(t, err)
	b, err := BinTable("s.csv", in, 6)
	require.NoError(t, err)
	ea, err := a.Encode()
	require.NoError(t, err)
	eb, err := b.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(ea), string(eb))
}

func TestBinTableGroupsNonContiguousPhases(t *testing.T) {
	sub := subjectExport{id: "1", hours: 6, period: 100, vo2: 10}
	in := trimmedFixture(sub, 0, 5)
	led := in.Index("LED LIGHTNESS")
	for i, v := range []string{"0", "0", "1", "1", "0", "0"} {
		in.Rows[i][led] = v
	}

	out, err := BinTable("s.csv", in, 24)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	zero, one := cells(out, 0), cells(out, 1)
	assert.Equal(t, "0", zero["LED LIGHTNESS"])
	assert.Equal(t, "1", zero["INTERVAL_start"])
	assert.Equal(t, "6", zero["INTERVAL_end"])
	assert.Equal(t, "4", zero["WHEEL"])
	assert.Equal(t, "1", one["LED LIGHTNESS"])
	assert.Equal(t, "2", one["WHEEL"])
}

func TestBinTableNulls(t *testing.T) {
	in := trimmedFixture(subjectExport{id: "1", hours: 4, period: 100, vo2: 10}, 0, 3)
	x, vo2 := in.Index("XAMB"), in.Index("VO2")
	in.Rows[1][x] = ""
	for i := range in.Rows {
		in.Rows[i][vo2] = ""
	}

	out, err := BinTable("s.csv", in, 24)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	row := cells(out, 0)
	// A null operand drops that row's ambulation from the sum.
	assert.Equal(t, "15", row["TOT_AMB"])
	assert.Equal(t, "", row["VO2"])
}

func TestBinTableErrors(t *testing.T) {
	in := trimmedFixture(subjectExport{id: "1", hours: 4, period: 100, vo2: 10}, 0, 3)

	_, err := BinTable("s.csv", in.Drop("VO2", "WHEEL"), 4)
	var mf *MissingFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, []string{"WHEEL", "VO2"}, mf.Fields)

	bad := trimmedFixture(subjectExport{id: "1", hours: 4, period: 100, vo2: 10}, 0, 3)
	bad.Rows[2][bad.Index("DATE/TIME")] = "yesterday"
	_, err = BinTable("s.csv", bad, 4)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Row)
	assert.Equal(t, "yesterday", pe.Value)

	_, err = BinTable("s.csv", in, 5)
	assert.True(t, errors.Is(err, ErrInvalidParams))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "3", formatFloat(3))
	assert.Equal(t, "1.2346", formatFloat(1.23456))
	assert.Equal(t, "0", formatFloat(-0.00001))
	assert.Equal(t, "-2.5", formatFloat(-2.5))
}

func TestBinDirectory(t *testing.T) {
	dir := standardExperiment(t)
	_, err := CleanDirectory(context.Background(), dir, CleanOptions{}, nil)
	require.NoError(t, err)
	_, err = TrimDirectory(context.Background(), dir, TrimOptions{TrimHours: 6, KeepHours: 24}, nil)
	require.NoError(t, err)

	rec := &progress.Recorder{}
	res, err := BinDirectory(context.Background(), dir, BinOptions{BinHours: 4}, rec)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, filepath.Join(dir, BinnedDir, "cage1_ID0001_trimmed_binned.csv"), res.Files[0])
	assert.Equal(t, "Binning cage1_ID0001_trimmed.csv", rec.Lines()[0])

	m, err := ReadMarker(res.Dir)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.EqualValues(t, 4, m.Params["bin_hours"])
	assert.NoError(t, m.Verify(res.Dir))
}
