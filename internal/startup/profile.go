package startup

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"variant-server/internal/responsive"
	"variant-server/internal/variant"
)

// ProfileSettings carries the parsed responsive profile plus the transform
// defaults every resolved request starts from.
type ProfileSettings struct {
	Profile   *responsive.Profile
	Factors   []float64
	Fractions []responsive.Fraction
	Defaults  variant.Options
}

// profileFile is the YAML shape of a responsive profile. The breakpoint and
// ratio blocks hold the line-oriented mini-language verbatim; factors and
// fractions are the comma-separated lists.
type profileFile struct {
	Breakpoints string       `yaml:"breakpoints"`
	Ratios      string       `yaml:"ratios"`
	Factors     string       `yaml:"factors"`
	Fractions   string       `yaml:"fractions"`
	Defaults    defaultsFile `yaml:"defaults"`
}

type defaultsFile struct {
	Cropping    string `yaml:"cropping"`
	Quality     int    `yaml:"quality"`
	WebpQuality int    `yaml:"webp_quality"`
	AvifQuality int    `yaml:"avif_quality"`
	Sharpening  string `yaml:"sharpening"`
	Upscaling   bool   `yaml:"upscaling"`
	Format      string `yaml:"format"`
}

// builtinProfile is used when no profile file is configured.
const builtinProfile = `
breakpoints: |
  1200=+l|Large
  992=m|Medium
  768=s|Small
  480=xs|Extra small
ratios: |
  16:9=+landscape
  3:2=classic
  1:1=square
  2:3=portrait
factors: "0.25, 0.5, 1, 2"
fractions: "1, 1/2, 1/3, 2/3, 1/4"
defaults:
  cropping: center
  quality: 90
  webp_quality: 90
  avif_quality: 60
  sharpening: soft
`

// LoadProfile reads and parses a responsive profile. An empty path yields the
// built-in profile; sections absent from a profile file keep their built-in
// values. Parse errors carry the file path and wrap responsive.ErrConfig from
// the mini-language parsers.
func LoadProfile(path string) (*ProfileSettings, error) {
	var base profileFile
	if err := yaml.Unmarshal([]byte(builtinProfile), &base); err != nil {
		return nil, fmt.Errorf("built-in profile is invalid: %w", err)
	}

	if path == "" {
		return buildProfile(&base, "builtin")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file %s: %w", path, err)
	}

	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}

	if pf.Breakpoints == "" {
		pf.Breakpoints = base.Breakpoints
	}
	if pf.Ratios == "" {
		pf.Ratios = base.Ratios
	}
	if pf.Factors == "" {
		pf.Factors = base.Factors
	}
	if pf.Fractions == "" {
		pf.Fractions = base.Fractions
	}
	if pf.Defaults.Cropping == "" {
		pf.Defaults.Cropping = base.Defaults.Cropping
	}
	if pf.Defaults.Quality == 0 {
		pf.Defaults.Quality = base.Defaults.Quality
	}
	if pf.Defaults.WebpQuality == 0 {
		pf.Defaults.WebpQuality = base.Defaults.WebpQuality
	}
	if pf.Defaults.AvifQuality == 0 {
		pf.Defaults.AvifQuality = base.Defaults.AvifQuality
	}
	if pf.Defaults.Sharpening == "" {
		pf.Defaults.Sharpening = base.Defaults.Sharpening
	}

	return buildProfile(&pf, path)
}

func buildProfile(pf *profileFile, origin string) (*ProfileSettings, error) {
	breakpoints, err := responsive.ParseBreakpoints(pf.Breakpoints)
	if err != nil {
		return nil, fmt.Errorf("profile %s: breakpoints: %w", origin, err)
	}

	ratios, err := responsive.ParseRatios(pf.Ratios)
	if err != nil {
		return nil, fmt.Errorf("profile %s: ratios: %w", origin, err)
	}

	factors, err := responsive.ParseFactors(pf.Factors)
	if err != nil {
		return nil, fmt.Errorf("profile %s: factors: %w", origin, err)
	}

	fractions, err := responsive.ParseFractions(pf.Fractions)
	if err != nil {
		return nil, fmt.Errorf("profile %s: fractions: %w", origin, err)
	}

	defaults := variant.DefaultOptions()
	if pf.Defaults.Cropping != "" {
		defaults.Cropping = pf.Defaults.Cropping
	}
	if pf.Defaults.Quality != 0 {
		defaults.Quality = pf.Defaults.Quality
	}
	if pf.Defaults.WebpQuality != 0 {
		defaults.WebpQuality = pf.Defaults.WebpQuality
	}
	if pf.Defaults.AvifQuality != 0 {
		defaults.AvifQuality = pf.Defaults.AvifQuality
	}
	if pf.Defaults.Sharpening != "" {
		defaults.Sharpening = pf.Defaults.Sharpening
	}
	if pf.Defaults.Upscaling {
		defaults.Upscaling = true
	}
	if pf.Defaults.Format != "" {
		defaults.Format = pf.Defaults.Format
	}

	return &ProfileSettings{
		Profile: &responsive.Profile{
			Breakpoints: breakpoints,
			Ratios:      ratios,
		},
		Factors:   factors,
		Fractions: fractions,
		Defaults:  defaults,
	}, nil
}
