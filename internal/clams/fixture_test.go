package clams

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// exportColumns mirrors the column set of an Oxymax CLAMS export, including
// columns the binner drops.
var exportColumns = []string{
	"INTERVAL", "CHAN", "DATE/TIME", "VO2", "O2IN", "O2OUT", "DO2", "ACCO2", "VCO2",
	"CO2IN", "CO2OUT", "DCO2", "ACCCO2", "RER", "HEAT", "FLOW", "STATUS1", "PRESSURE",
	"FEED1", "FEED1 ACC", "XTOT", "XAMB", "YTOT", "YAMB", "WHEEL", "WHEEL ACC",
	"ENCLOSURE TEMP", "ENCLOSURE SETPOINT", "LED LIGHTNESS", "LED HUE", "LED SATURATION",
}

var fixtureStart = time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC)

// subjectExport describes one synthetic subject recording.
type subjectExport struct {
	id     string
	hours  int     // hourly rows
	period int     // rows per light phase
	vo2    float64 // VO2 of row 0; increases by 1 per row
}

// phaseAt alternates 0 and 1 every period rows, starting with 0.
func (s subjectExport) phaseAt(i int) int {
	return (i / s.period) % 2
}

func (s subjectExport) row(i int) []string {
	ts := fixtureStart.Add(time.Duration(i) * time.Hour)
	vals := map[string]string{
		"INTERVAL":           fmt.Sprint(i + 1),
		"CHAN":               "1",
		"DATE/TIME":          ts.Format("1/2/2006 3:04:05 PM"),
		"VO2":                fmt.Sprint(s.vo2 + float64(i)),
		"ACCO2":              fmt.Sprint(i + 1),
		"VCO2":               fmt.Sprint(2500 + i),
		"ACCCO2":             fmt.Sprint(2 * (i + 1)),
		"RER":                "0.83",
		"HEAT":               "0.5",
		"FLOW":               "0.6",
		"PRESSURE":           "101",
		"FEED1":              "0.25",
		"FEED1 ACC":          fmt.Sprint(0.25 * float64(i+1)),
		"XAMB":               "2",
		"YAMB":               "3",
		"WHEEL":              "1",
		"WHEEL ACC":          fmt.Sprint(i + 1),
		"ENCLOSURE TEMP":     "22",
		"ENCLOSURE SETPOINT": "22",
		"LED LIGHTNESS":      fmt.Sprint(s.phaseAt(i)),
	}
	out := make([]string, len(exportColumns))
	for j, c := range exportColumns {
		if v, ok := vals[c]; ok {
			out[j] = v
		} else {
			out[j] = "0"
		}
	}
	return out
}

// rawExport renders a complete raw export: preamble, header, two formatting
// rows and hourly data.
func (s subjectExport) rawExport() string {
	var b strings.Builder
	for i := 0; i < DefaultPreambleRows; i++ {
		switch i {
		case 0:
			b.WriteString("Oxymax Windows V 2.30 Data File\n")
		case 5:
			b.WriteString("Subject ID," + s.id + "\n")
		default:
			fmt.Fprintf(&b, "Meta %d,value %d\n", i, i)
		}
	}
	b.WriteString(strings.Join(exportColumns, ",") + "\n")
	b.WriteString(strings.Repeat(",", len(exportColumns)-1) + "\n")
	b.WriteString("=======" + strings.Repeat(",", len(exportColumns)-1) + "\n")
	for i := 0; i < s.hours; i++ {
		b.WriteString(strings.Join(s.row(i), ",") + "\n")
	}
	return b.String()
}

func writeExport(t *testing.T, dir, name string, s subjectExport) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(s.rawExport()), 0o644))
	return path
}

// standardExperiment writes two 48 h subjects whose light phase flips every 12 h.
func standardExperiment(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeExport(t, dir, "cage1.CSV", subjectExport{id: "0001", hours: 48, period: 12, vo2: 3000})
	writeExport(t, dir, "cage2.csv", subjectExport{id: "0002", hours: 48, period: 12, vo2: 4000})
	return dir
}
