// Package catalog reads and writes plant database files.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"gardencore/pkg/domain"
)

// DefaultPath is where the plant database lives when no path is configured.
const DefaultPath = "data/plants/plant_database.json"

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrDuplicate is returned when a scientific name appears twice.
var ErrDuplicate = errors.New("duplicate scientific name")

// ValidationError lists every problem found in a catalog.
type ValidationError struct {
	Source   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog %s: %s", e.Source, strings.Join(e.Problems, "; "))
}

// Load reads a catalog file, picking the decoder from the extension. Files
// without a .yaml or .yml extension are decoded as JSON.
func Load(path string) ([]domain.Plant, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- catalog paths are operator supplied
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	plants, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := Validate(path, plants); err != nil {
		return nil, err
	}
	return plants, nil
}

// Decode parses a catalog document. ext selects YAML for ".yaml" and ".yml".
func Decode(data []byte, ext string) ([]domain.Plant, error) {
	var plants []domain.Plant
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &plants); err != nil {
			return nil, err
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&plants); err != nil {
			return nil, err
		}
	}
	return plants, nil
}

// LoadGlob loads every file matching pattern in lexical path order and
// concatenates the results. Duplicates across files are rejected.
func LoadGlob(pattern string) ([]domain.Plant, []string, error) {
	base, rel := doublestar.SplitPattern(filepath.ToSlash(pattern))
	matches, err := doublestar.Glob(os.DirFS(base), rel, doublestar.WithFilesOnly())
	if err != nil {
		return nil, nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, nil, fmt.Errorf("glob %s: no catalog files matched", pattern)
	}
	sort.Strings(matches)
	var all []domain.Plant
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		path := filepath.Join(filepath.FromSlash(base), filepath.FromSlash(m))
		plants, err := Load(path)
		if err != nil {
			return nil, nil, err
		}
		all = append(all, plants...)
		files = append(files, path)
	}
	if err := checkDuplicates(pattern, all); err != nil {
		return nil, nil, err
	}
	return all, files, nil
}

// Validate checks struct tags, range ordering and name uniqueness.
func Validate(source string, plants []domain.Plant) error {
	var problems []string
	for i, p := range plants {
		label := fmt.Sprintf("plant[%d]", i)
		if p.ScientificName != "" {
			label = p.ScientificName
		}
		if err := validate.Struct(p); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					problems = append(problems, fmt.Sprintf("%s: %s failed %s", label, fe.Namespace(), fe.Tag()))
				}
			} else {
				problems = append(problems, fmt.Sprintf("%s: %v", label, err))
			}
		}
		if !p.HeightRange.Valid() {
			problems = append(problems, fmt.Sprintf("%s: height_range min exceeds max", label))
		}
		if !p.SpreadRange.Valid() {
			problems = append(problems, fmt.Sprintf("%s: spread_range min exceeds max", label))
		}
		if p.SoilPH != nil && (!p.SoilPH.Valid() || p.SoilPH.Max > 14) {
			problems = append(problems, fmt.Sprintf("%s: soil_ph must lie within 0-14 with min <= max", label))
		}
	}
	if err := checkDuplicates(source, plants); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return &ValidationError{Source: source, Problems: problems}
	}
	return nil
}

func checkDuplicates(source string, plants []domain.Plant) error {
	seen := make(map[string]struct{}, len(plants))
	for _, p := range plants {
		key := strings.ToLower(strings.TrimSpace(p.ScientificName))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w in %s: %s", ErrDuplicate, source, p.ScientificName)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Save writes plants as an indented JSON array, creating parent directories.
// Persisted identifiers and timestamps are stripped.
func Save(path string, plants []domain.Plant) error {
	out := make([]domain.Plant, len(plants))
	for i, p := range plants {
		p.Base = domain.Base{}
		out[i] = p
	}
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(out)
	default:
		data, err = json.MarshalIndent(out, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return os.Rename(tmp, path)
}

// Add appends plant to the catalog file at path, creating it when absent.
func Add(path string, plant domain.Plant) ([]domain.Plant, error) {
	plants, err := Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	plants = append(plants, plant)
	if err := Validate(path, plants); err != nil {
		return nil, err
	}
	if err := Save(path, plants); err != nil {
		return nil, err
	}
	return plants, nil
}
