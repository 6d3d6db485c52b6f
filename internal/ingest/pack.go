package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrUnknownPack is returned when a state code is not present in a manifest
// or pack directory.
var ErrUnknownPack = errors.New("unknown state pack")

// ErrChecksumMismatch indicates a local pack file does not match its
// manifest entry.
type ErrChecksumMismatch struct {
	Code  string
	Field string // "bytes" or "sha256"
	Want  string
	Got   string
}

func (e *ErrChecksumMismatch) Error() string {
	return fmt.Sprintf("pack %s: %s mismatch (manifest %s, file %s)", e.Code, e.Field, e.Want, e.Got)
}

// StateNames maps two-letter codes to display names.
var StateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas", "CA": "California",
	"CO": "Colorado", "CT": "Connecticut", "DE": "Delaware", "FL": "Florida", "GA": "Georgia",
	"HI": "Hawaii", "ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi", "MO": "Missouri",
	"MT": "Montana", "NE": "Nebraska", "NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey",
	"NM": "New Mexico", "NY": "New York", "NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio",
	"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah", "VT": "Vermont",
	"VA": "Virginia", "WA": "Washington", "WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
	"DC": "District of Columbia",
}

// packNamePattern matches TN.csv, pois_TN.csv and TN_20240131.csv.
var packNamePattern = regexp.MustCompile(`^(?:pois[_-])?([A-Za-z]{2})(?:[_-](\d{8}))?\.csv$`)

// Pack is one state's CSV file on disk.
type Pack struct {
	Code    string // Upper-case state code
	Name    string // Display name
	Path    string
	Version string // ISO date from the filename, or the file's mtime
	Bytes   int64
	ModTime time.Time
}

// ParsePackName extracts the state code and optional YYYYMMDD version from a
// pack filename.
func ParsePackName(filename string) (code, ymd string, ok bool) {
	m := packNamePattern.FindStringSubmatch(filename)
	if m == nil {
		return "", "", false
	}
	return strings.ToUpper(m[1]), m[2], true
}

// ScanDir lists the packs in dir, sorted by display name. When strict is set
// only codes in StateNames are accepted. Two files for the same code are an
// error.
func ScanDir(dir string, strict bool) ([]Pack, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read pack dir: %w", err)
	}

	seen := make(map[string]string)
	var packs []Pack
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		code, ymd, ok := ParsePackName(entry.Name())
		if !ok {
			continue
		}
		if _, known := StateNames[code]; strict && !known {
			continue
		}
		if prev, dup := seen[code]; dup {
			return nil, fmt.Errorf("duplicate state code %s: %s and %s", code, prev, entry.Name())
		}
		seen[code] = entry.Name()

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}

		version := info.ModTime().Format(time.DateOnly)
		if ymd != "" {
			if t, err := time.Parse("20060102", ymd); err == nil {
				version = t.Format(time.DateOnly)
			}
		}

		name := StateNames[code]
		if name == "" {
			name = code
		}

		packs = append(packs, Pack{
			Code:    code,
			Name:    name,
			Path:    filepath.Join(dir, entry.Name()),
			Version: version,
			Bytes:   info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(packs, func(i, j int) bool {
		return packs[i].Name < packs[j].Name
	})
	return packs, nil
}

// SelectPacks returns the packs whose codes are listed, in the order listed.
// An empty list selects every pack.
func SelectPacks(packs []Pack, codes []string) ([]Pack, error) {
	if len(codes) == 0 {
		return packs, nil
	}

	byCode := make(map[string]Pack, len(packs))
	for _, p := range packs {
		byCode[p.Code] = p
	}

	selected := make([]Pack, 0, len(codes))
	for _, code := range codes {
		p, ok := byCode[strings.ToUpper(strings.TrimSpace(code))]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPack, code)
		}
		selected = append(selected, p)
	}
	return selected, nil
}

// Manifest describes the published state packs.
type Manifest struct {
	SchemaVersion int             `json:"schemaVersion"`
	UpdatedAt     string          `json:"updatedAt"`
	States        []ManifestEntry `json:"states"`
}

// ManifestEntry is one state pack in a manifest.
type ManifestEntry struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Bytes   int64  `json:"bytes"`
	SHA256  string `json:"sha256"`
	URL     string `json:"url"`
}

// ReadManifest decodes a manifest.json file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// WriteManifest encodes m to path with two-space indentation.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Lookup returns the entry for code.
func (m *Manifest) Lookup(code string) (ManifestEntry, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, e := range m.States {
		if e.Code == code {
			return e, nil
		}
	}
	return ManifestEntry{}, fmt.Errorf("%w: %s", ErrUnknownPack, code)
}

// BuildManifest hashes every pack and returns a manifest whose URLs are
// baseURL joined with each file name.
func BuildManifest(packs []Pack, baseURL, updatedAt string) (*Manifest, error) {
	m := &Manifest{
		SchemaVersion: 1,
		UpdatedAt:     updatedAt,
		States:        make([]ManifestEntry, 0, len(packs)),
	}

	for _, p := range packs {
		sum, size, err := HashFile(p.Path)
		if err != nil {
			return nil, err
		}
		m.States = append(m.States, ManifestEntry{
			Code:    p.Code,
			Name:    p.Name,
			Version: p.Version,
			Bytes:   size,
			SHA256:  sum,
			URL:     strings.TrimRight(baseURL, "/") + "/" + filepath.Base(p.Path),
		})
	}
	return m, nil
}

// HashFile returns the hex SHA-256 and size of the file at path.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// VerifyPack checks the pack file's size and SHA-256 against entry.
func VerifyPack(p Pack, entry ManifestEntry) error {
	sum, size, err := HashFile(p.Path)
	if err != nil {
		return err
	}
	if size != entry.Bytes {
		return &ErrChecksumMismatch{
			Code:  p.Code,
			Field: "bytes",
			Want:  fmt.Sprint(entry.Bytes),
			Got:   fmt.Sprint(size),
		}
	}
	if !strings.EqualFold(sum, entry.SHA256) {
		return &ErrChecksumMismatch{Code: p.Code, Field: "sha256", Want: entry.SHA256, Got: sum}
	}
	return nil
}

// VerifyPacks checks each pack against m. The result has one error per
// failing pack; packs missing from the manifest fail with ErrUnknownPack.
func VerifyPacks(packs []Pack, m *Manifest) []error {
	var errs []error
	for _, p := range packs {
		entry, err := m.Lookup(p.Code)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := VerifyPack(p, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
