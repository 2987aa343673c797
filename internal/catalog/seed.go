package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed data.json
var defaultCatalog []byte

var ErrInvalidCatalog = errors.New("invalid catalog")

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// SeedEntry is one validated item of the static catalog.
type SeedEntry struct {
	Name       string
	Category   string
	PriceCents int64
	Image      Image
}

// Product builds the stored record for the entry at the given 1-based id.
func (e SeedEntry) Product(id int64) Product {
	return Product{
		ID:            id,
		Name:          e.Name,
		Category:      e.Category,
		PriceCents:    e.PriceCents,
		ItemsSelected: 0,
		Image:         e.Image,
	}
}

type ValidationError struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e ValidationError) Error() string {
	if e.Index < 0 {
		return e.Reason
	}
	return fmt.Sprintf("entry %d: %s: %s", e.Index, e.Field, e.Reason)
}

// ParseResult carries either the parsed entries or every problem found.
// Exactly one of the two slices is non-empty for a non-empty input.
type ParseResult struct {
	Entries []SeedEntry
	Errors  []ValidationError
}

func (r ParseResult) OK() bool { return len(r.Errors) == 0 }

// Err folds the validation errors into one error wrapping ErrInvalidCatalog.
func (r ParseResult) Err() error {
	if r.OK() {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(msgs, "; "))
}

type rawImage struct {
	Desktop   string `json:"desktop" yaml:"desktop" validate:"required"`
	Tablet    string `json:"tablet" yaml:"tablet"`
	Mobile    string `json:"mobile" yaml:"mobile"`
	Thumbnail string `json:"thumbnail" yaml:"thumbnail"`
}

type rawEntry struct {
	Name     string   `json:"name" yaml:"name" validate:"required"`
	Category string   `json:"category" yaml:"category" validate:"required"`
	Price    *float64 `json:"price" yaml:"price" validate:"required,gte=0,lte=1000000"`
	Image    rawImage `json:"image" yaml:"image"`
}

var validate = validator.New()

// ParseCatalog decodes and validates a static catalog document.
func ParseCatalog(data []byte, format Format) ParseResult {
	var raw []rawEntry

	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return ParseResult{Errors: []ValidationError{{
			Index:  -1,
			Reason: fmt.Sprintf("failed to decode catalog: %v", err),
		}}}
	}

	var res ParseResult
	for i, re := range raw {
		if errs := validateEntry(i, re); len(errs) > 0 {
			res.Errors = append(res.Errors, errs...)
			continue
		}
		res.Entries = append(res.Entries, SeedEntry{
			Name:       strings.TrimSpace(re.Name),
			Category:   strings.TrimSpace(re.Category),
			PriceCents: CentsFromPrice(*re.Price),
			Image:      Image(re.Image),
		})
	}

	if !res.OK() {
		res.Entries = nil
	}
	return res
}

func validateEntry(i int, re rawEntry) []ValidationError {
	re.Name = strings.TrimSpace(re.Name)
	re.Category = strings.TrimSpace(re.Category)

	err := validate.Struct(re)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationError{{Index: i, Reason: err.Error()}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Index:  i,
			Field:  fieldPath(fe.Namespace()),
			Reason: reason(fe),
		})
	}
	return out
}

// fieldPath turns "rawEntry.Image.Desktop" into "image.desktop".
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// LoadCatalogFile parses a catalog file, choosing YAML for .yaml/.yml and
// JSON otherwise.
func LoadCatalogFile(path string) (ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ParseResult{}, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	return ParseCatalog(data, format), nil
}

// DefaultCatalog parses the catalog bundled with the binary.
func DefaultCatalog() ParseResult {
	return ParseCatalog(defaultCatalog, FormatJSON)
}
