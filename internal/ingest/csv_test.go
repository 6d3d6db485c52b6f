package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleHeader = "data_date,data_srce,pid,name,dec_lat,dec_lon,state,county,marker,setting,last_recv,last_cond,last_recby,ortho_ht\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestReadPoints(t *testing.T) {
	input := sampleHeader +
		`20240101,NGS,"  AB1234 ",MARK 1,36.1,-86.7,tn,DAVIDSON,DISK,CONCRETE,20050812,GOOD,NGS,152.3` + "\n" +
		`20240101,NGS,CD5678,"MARK ""2""",36.2,-86.8,TN,DAVIDSON,ROD,,1999,POOR,USPSQD,` + "\n"

	result, err := ReadPoints(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadPoints failed: %v", err)
	}

	if result.Rows != 2 || result.Skipped != 0 {
		t.Errorf("Expected 2 rows, 0 skipped; got %d rows, %d skipped", result.Rows, result.Skipped)
	}
	if len(result.Points) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(result.Points))
	}

	p := result.Points[0]
	if p.ID != "AB1234" {
		t.Errorf("Expected trimmed id AB1234, got %q", p.ID)
	}
	if p.Latitude != 36.1 || p.Longitude != -86.7 {
		t.Errorf("Expected (36.1, -86.7), got (%v, %v)", p.Latitude, p.Longitude)
	}
	if p.LastRecoveredYear != 2005 {
		t.Errorf("Expected recovery year 2005, got %d", p.LastRecoveredYear)
	}
	if p.State != "TN" {
		t.Errorf("Expected state TN, got %q", p.State)
	}
	if p.Marker != "DISK" || p.OrthoHeight != "152.3" {
		t.Errorf("Unexpected attributes: %+v", p)
	}

	if result.Points[1].Name != "MARK 2" {
		t.Errorf("Expected quotes removed from name, got %q", result.Points[1].Name)
	}
	if result.Points[1].LastRecoveredYear != 1999 {
		t.Errorf("Expected year 1999, got %d", result.Points[1].LastRecoveredYear)
	}
}

func TestReadPointsSkipsBadRows(t *testing.T) {
	input := sampleHeader +
		"d,s,GOOD1,n,36.1,-86.7,TN,c,m,s,,,,\n" +
		"d,s,,n,36.1,-86.7,TN,c,m,s,,,,\n" + // empty pid
		"d,s,BADLAT,n,abc,-86.7,TN,c,m,s,,,,\n" +
		"d,s,OUTSIDE,n,95,-86.7,TN,c,m,s,,,,\n" +
		"d,s,SHORT,n\n" + // missing coordinates
		"d,s,GOOD2,n,36.2,-86.8,TN,c,m,s,,,,\n"

	result, err := ReadPoints(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadPoints failed: %v", err)
	}
	if result.Rows != 6 {
		t.Errorf("Expected 6 rows, got %d", result.Rows)
	}
	if result.Skipped != 4 {
		t.Errorf("Expected 4 skipped, got %d", result.Skipped)
	}
	if len(result.Points) != 2 {
		t.Errorf("Expected 2 points, got %d", len(result.Points))
	}
}

func TestReadPointsColumnOrder(t *testing.T) {
	input := "\ufeffDEC_LON,PID,DEC_LAT,extra\n-86.7,AB1234,36.1,ignored\n"

	result, err := ReadPoints(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadPoints failed: %v", err)
	}
	if len(result.Points) != 1 || result.Points[0].Longitude != -86.7 {
		t.Errorf("Expected one point at lon -86.7, got %+v", result.Points)
	}
}

func TestReadPointsMissingColumn(t *testing.T) {
	_, err := ReadPoints(strings.NewReader("pid,dec_lat\nAB1234,36.1\n"))

	var colErr *ErrMissingColumn
	if !errors.As(err, &colErr) {
		t.Fatalf("Expected ErrMissingColumn, got %v", err)
	}
	if colErr.Column != "dec_lon" {
		t.Errorf("Expected missing dec_lon, got %s", colErr.Column)
	}
}

func TestReadPointsEmpty(t *testing.T) {
	result, err := ReadPoints(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Expected no error for empty input, got %v", err)
	}
	if len(result.Points) != 0 {
		t.Errorf("Expected no points, got %d", len(result.Points))
	}
}

func TestReadFileNotFound(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}

func TestRecoveryYear(t *testing.T) {
	tests := map[string]int{
		"20050812": 2005,
		"199907":   1999,
		"1987":     1987,
		"":         0,
		"87":       0,
		"UNKN":     0,
		"0000":     0,
	}
	for in, want := range tests {
		if got := recoveryYear(in); got != want {
			t.Errorf("recoveryYear(%q) = %d, want %d", in, got, want)
		}
	}
}
