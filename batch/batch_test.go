package batch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/apache/beam/sdks/v2/go/pkg/beam"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/testing/passert"
	"github.com/apache/beam/sdks/v2/go/pkg/beam/testing/ptest"
	"github.com/google/differential-privacy/privacy-on-beam/v3/pbeam"
	"github.com/google/go-cmp/cmp"

	"github.com/htried/taxi-diff-privacy/tdp"
)

func TestMain(m *testing.M) {
	ptest.MainWithDefault(m, "direct")
}

var grid2x2 = GridSpec{Bounds: tdp.Manhattan, Side: 2}

// two pickups in cell 3, one in cell 0 and one off the map
var trips = []Trip{
	{DriverID: "d1", PickupLat: 40.8, PickupLng: -73.75},
	{DriverID: "d1", PickupLat: 40.8, PickupLng: -73.75},
	{DriverID: "d2", PickupLat: 40.65, PickupLng: -74.05},
	{DriverID: "d3", PickupLat: 41, PickupLng: -73.9},
}

var testParams = Params{
	Epsilon:  1,
	MaxCells: 4,
	MaxValue: 4,
	TestMode: pbeam.TestModeWithoutContributionBounding,
}

func TestParseTripFn(t *testing.T) {
	var got []Trip
	emit := func(tr Trip) { got = append(got, tr) }
	for _, line := range []string{
		"driver_id,pickup_latitude,pickup_longitude,dropoff_latitude",
		"d036,40.69929,-73.98758,40.74863",
		"d040,,,40.7",
	} {
		if err := ParseTripFn(line, emit); err != nil {
			t.Fatalf("ParseTripFn(%q): %v", line, err)
		}
	}
	want := []Trip{{DriverID: "d036", PickupLat: 40.69929, PickupLng: -73.98758}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseTripFn mismatch (-want +got):\n%s", diff)
	}

	for _, line := range []string{"d1,40.7", "d1,north,-73.9"} {
		if err := ParseTripFn(line, emit); err == nil {
			t.Errorf("ParseTripFn(%q) accepted a malformed line", line)
		}
	}
}

func TestGridCells(t *testing.T) {
	if diff := cmp.Diff([]int{0, 1, 2, 3}, grid2x2.Cells()); diff != "" {
		t.Errorf("Cells mismatch (-want +got):\n%s", diff)
	}
}

func TestCountPickups(t *testing.T) {
	p, s, col := ptest.CreateList(trips)
	got := beam.ParDo(s, formatCountFn, CountPickups(s, col, grid2x2))
	passert.Equals(s, got, "0,1", "3,2")
	if err := ptest.Run(p); err != nil {
		t.Errorf("CountPickups: %v", err)
	}
}

func TestPrivateCountPickupsWithoutNoise(t *testing.T) {
	p, s, col := ptest.CreateList(trips)
	counts, err := PrivateCountPickups(s, col, grid2x2, testParams)
	if err != nil {
		t.Fatal(err)
	}
	// every cell is a public partition, so empty cells are reported too
	passert.Equals(s, beam.ParDo(s, formatPrivateCountFn, counts), "0,1", "1,0", "2,0", "3,2")
	if err := ptest.Run(p); err != nil {
		t.Errorf("PrivateCountPickups: %v", err)
	}
}

func TestPrivateCountPickupsBoundsContributions(t *testing.T) {
	params := testParams
	params.MaxValue = 1
	params.TestMode = pbeam.TestModeWithContributionBounding

	p, s, col := ptest.CreateList(trips)
	counts, err := PrivateCountPickups(s, col, grid2x2, params)
	if err != nil {
		t.Fatal(err)
	}
	// d1 can only add one pickup to cell 3
	passert.Equals(s, beam.ParDo(s, formatPrivateCountFn, counts), "0,1", "1,0", "2,0", "3,1")
	if err := ptest.Run(p); err != nil {
		t.Errorf("PrivateCountPickups: %v", err)
	}
}

func TestParamsValidate(t *testing.T) {
	for _, params := range []Params{
		{Epsilon: 0, MaxCells: 1, MaxValue: 1},
		{Epsilon: 1, MaxCells: 0, MaxValue: 1},
		{Epsilon: 1, MaxCells: 1, MaxValue: 0},
	} {
		if err := params.Validate(); err == nil {
			t.Errorf("Validate(%+v) accepted invalid params", params)
		}
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	sort.Strings(lines)
	return lines
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "trips.csv")
	csv := "driver_id,pickup_latitude,pickup_longitude\n" +
		"d1,40.8,-73.75\nd1,40.8,-73.75\nd2,40.65,-74.05\nd3,41,-73.9\n"
	if err := os.WriteFile(input, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "counts.txt")

	chart := filepath.Join(dir, "counts.png")

	err := Run(context.Background(), Options{Input: input, Output: output, Grid: grid2x2, Params: testParams, Chart: chart})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"0,1", "3,2"}, readLines(t, output)); diff != "" {
		t.Errorf("exact counts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"0,1", "1,0", "2,0", "3,2"}, readLines(t, PrivateOutput(output))); diff != "" {
		t.Errorf("private counts mismatch (-want +got):\n%s", diff)
	}
	if info, err := os.Stat(chart); err != nil || info.Size() == 0 {
		t.Errorf("chart was not drawn: %v", err)
	}
}

func TestReadCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.txt")
	if err := os.WriteFile(path, []byte("3,2\n0,1\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCounts(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[int]float64{0: 1, 3: 2}, got); diff != "" {
		t.Errorf("ReadCounts mismatch (-want +got):\n%s", diff)
	}

	if err := os.WriteFile(path, []byte("3 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadCounts(path); err == nil {
		t.Error("ReadCounts accepted a line without a comma")
	}
}

func TestBuildRejectsMissingFiles(t *testing.T) {
	s := beam.NewPipeline().Root()
	if err := Build(s, Options{Grid: grid2x2, Params: testParams}); err == nil {
		t.Error("Build accepted options without files")
	}
}

func TestPrivateOutput(t *testing.T) {
	if got := PrivateOutput("out/counts.txt"); got != "out/counts_dp.txt" {
		t.Errorf("PrivateOutput = %q", got)
	}
}
