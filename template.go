package pdfdocx

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

// Template describes the output document's page geometry and default
// typography. Zero values fall back to the source PDF's first page (size,
// orientation) or to the documented defaults (margins, font).
type Template struct {
	// PageWidth and PageHeight are in points. 0 means "use the first PDF
	// page's dimensions".
	PageWidth  float64 `yaml:"page_width"`
	PageHeight float64 `yaml:"page_height"`

	// Orientation is "portrait" or "landscape". Empty means derived from
	// the page dimensions (landscape when width > height).
	Orientation string `yaml:"orientation"`

	// Margins in inches.
	MarginTop    float64 `yaml:"margin_top"`
	MarginBottom float64 `yaml:"margin_bottom"`
	MarginLeft   float64 `yaml:"margin_left"`
	MarginRight  float64 `yaml:"margin_right"`

	// DefaultFont is used when a fragment carries no resolvable font name.
	DefaultFont string `yaml:"default_font"`

	// Fonts lists custom font files registered alongside any passed on the
	// command line.
	Fonts []string `yaml:"fonts"`
}

// DefaultTemplate returns the default output formatting: page size from the
// source PDF, one-inch margins, Calibri fallback font.
func DefaultTemplate() Template {
	return Template{
		MarginTop:    1.0,
		MarginBottom: 1.0,
		MarginLeft:   1.0,
		MarginRight:  1.0,
		DefaultFont:  "Calibri",
	}
}

// LoadTemplate reads a YAML template file. Fields the file omits keep their
// defaults.
func LoadTemplate(path string) (Template, error) {
	template := DefaultTemplate()

	data, err := os.ReadFile(path)
	if err != nil {
		return template, errors.Wrapf(err, "failed to read template %s", path)
	}

	if err := yaml.Unmarshal(data, &template); err != nil {
		return template, errors.Wrapf(err, "failed to parse template %s", path)
	}

	if template.DefaultFont == "" {
		template.DefaultFont = "Calibri"
	}

	return template, nil
}
