// Package generate produces synthetic, labelled claim and policy data sets.
package generate

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/piyushigoyal/claimtriage/internal/dataset"
	"github.com/piyushigoyal/claimtriage/internal/models"
)

// Output file names written by Write.
const (
	ClaimsFile   = "claims.csv"
	PoliciesFile = "policies.csv"
	ManifestFile = "manifest.yaml"
)

// DefaultClaims is the data set size when none is requested.
const DefaultClaims = 200

// Locations claims are drawn from.
var Locations = []string{
	"Zurich, Switzerland", "Geneva, Switzerland", "Basel, Switzerland",
	"Bern, Switzerland", "Lausanne, Switzerland",
	"London, UK", "Frankfurt, Germany", "Munich, Germany",
	"Paris, France", "Milan, Italy", "Madrid, Spain",
	"New York, NY", "Chicago, IL", "Toronto, Canada",
}

type amountRange struct{ min, max float64 }

var amountRanges = map[models.ClaimType]amountRange{
	models.ClaimTypeAutoAccident:   {2000, 50000},
	models.ClaimTypePropertyDamage: {1000, 100000},
	models.ClaimTypeTheft:          {500, 25000},
	models.ClaimTypeFireDamage:     {5000, 200000},
	models.ClaimTypeWaterDamage:    {2000, 75000},
	models.ClaimTypeLiability:      {3000, 150000},
	models.ClaimTypeMedical:        {1000, 100000},
	models.ClaimTypeStormDamage:    {2000, 100000},
}

// narratives hold one %s verb for the formatted amount.
var narratives = map[models.ClaimType][]string{
	models.ClaimTypeAutoAccident: {
		"Vehicle collision occurred at intersection. Claimant reports being rear-ended at stoplight. Damage to rear bumper and trunk. Estimated repair cost %s.",
		"Multi-vehicle accident on highway. Claimant's vehicle sustained front-end damage. Police report filed. Total damages approximately %s.",
		"Single-vehicle accident. Claimant lost control on wet road and hit guardrail. Airbags deployed. Repair estimate %s.",
	},
	models.ClaimTypePropertyDamage: {
		"Storm damage to residential property. Roof tiles damaged and water intrusion into attic. Assessment estimates repairs at %s.",
		"Tree fell on house during windstorm. Damage to roof and gutters. Emergency repairs needed. Estimated cost %s.",
		"Neighbor's property damage caused structural issues. Wall and foundation affected. Repair quote %s.",
	},
	models.ClaimTypeTheft: {
		"Burglary reported at residence. Electronics and jewelry stolen. Police report filed. Total loss valued at %s.",
		"Vehicle theft from parking garage. Car recovered but damaged. Repair and replacement costs %s.",
		"Break-in at property. Multiple items stolen including appliances. Police investigation ongoing. Loss estimate %s.",
	},
	models.ClaimTypeFireDamage: {
		"Kitchen fire caused by electrical malfunction. Smoke and fire damage to kitchen and adjacent rooms. Restoration cost %s.",
		"Wildfire smoke damage to property. Interior and exterior cleaning needed. Total cost %s.",
		"Electrical fire in garage. Structure damage and vehicle damaged. Fire department report available. Estimate %s.",
	},
	models.ClaimTypeWaterDamage: {
		"Pipe burst in basement. Flooding damaged flooring, walls, and personal property. Water remediation needed. Cost %s.",
		"Roof leak during heavy rain. Water damage to ceiling and walls in multiple rooms. Repairs estimated at %s.",
		"Washing machine overflow caused water damage. Flooring and drywall replacement needed. Total %s.",
	},
	models.ClaimTypeLiability: {
		"Guest injured on property. Medical treatment required. Liability claim filed. Settlement amount %s.",
		"Property damage caused by claimant to third party. Legal settlement reached. Total liability %s.",
		"Dog bite incident. Medical bills and legal costs. Total claim amount %s.",
	},
	models.ClaimTypeMedical: {
		"Emergency room visit after accident. Treatment for injuries including X-rays and medication. Total medical bills %s.",
		"Surgery required after covered incident. Hospital stay and rehabilitation. Medical costs %s.",
		"Physical therapy and specialist visits following injury. Ongoing treatment. Total expenses %s.",
	},
	models.ClaimTypeStormDamage: {
		"Hail damage to roof and siding. Multiple dents and broken shingles. Contractor estimate %s.",
		"Hurricane damage to property. Wind and water damage. Emergency repairs and restoration. Cost %s.",
		"Tornado damage. Structural issues and debris removal needed. Assessment total %s.",
	},
}

var (
	policyTypes    = []string{"Standard", "Premium", "Basic"}
	coverageLimits = []float64{50000, 100000, 250000, 500000, 1000000}
	deductibles    = []float64{500, 1000, 2500, 5000}
)

var printer = message.NewPrinter(language.English)

// Options controls generation. The same options always produce the same
// data set.
type Options struct {
	Claims int
	Seed   int64
	// Now anchors generated dates; zero means today (UTC, truncated to a day).
	Now time.Time
}

// Dataset is a generated set of claims and the policies they reference.
type Dataset struct {
	Claims   []models.Claim
	Policies []models.Policy
}

// Generate builds a labelled data set.
func Generate(opts Options) (*Dataset, error) {
	if opts.Claims < 0 {
		return nil, fmt.Errorf("claim count must not be negative, got %d", opts.Claims)
	}
	if opts.Claims == 0 {
		opts.Claims = DefaultClaims
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	now = now.Truncate(24 * time.Hour)

	g := &generator{rng: rand.New(rand.NewSource(opts.Seed)), now: now}

	ds := &Dataset{Claims: make([]models.Claim, opts.Claims)}
	for i := range ds.Claims {
		ds.Claims[i] = g.claim(i)
	}

	seen := map[string]bool{}
	for _, c := range ds.Claims {
		if seen[c.PolicyID] {
			continue
		}
		seen[c.PolicyID] = true
		ds.Policies = append(ds.Policies, g.policy(c.PolicyID))
	}
	return ds, nil
}

type generator struct {
	rng *rand.Rand
	now time.Time
}

func (g *generator) claim(i int) models.Claim {
	claimType := models.ClaimTypes[g.rng.Intn(len(models.ClaimTypes))]
	amount := g.amount(claimType)

	c := models.Claim{
		ID:                fmt.Sprintf("CLM-%05d", i+1),
		PolicyID:          fmt.Sprintf("POL-%d", 1000+g.rng.Intn(9000)),
		Type:              claimType,
		Amount:            amount,
		IncidentDate:      g.date(-365, 365),
		ReportDate:        g.date(1, 30),
		Location:          Locations[g.rng.Intn(len(Locations))],
		ClaimantAge:       18 + g.rng.Intn(68),
		PriorClaims:       g.rng.Intn(6),
		PolicyTenureYears: float64(g.rng.Intn(21)),
		Narrative:         g.narrative(claimType, amount),
	}
	sev := GroundTruthSeverity(amount)
	c.GroundTruth = &models.GroundTruth{
		Severity: sev,
		Action:   GroundTruthAction(sev, c.PriorClaims, c.PolicyTenureYears),
	}
	return c
}

func (g *generator) policy(id string) models.Policy {
	return models.Policy{
		ID:                 id,
		Type:               policyTypes[g.rng.Intn(len(policyTypes))],
		CoverageLimit:      coverageLimits[g.rng.Intn(len(coverageLimits))],
		Deductible:         deductibles[g.rng.Intn(len(deductibles))],
		CustomerName:       "Customer " + id,
		StartDate:          g.date(-365, 1825),
		ClaimsHistoryCount: g.rng.Intn(6),
		Active:             true,
	}
}

// amount draws from a log-normal centred on the middle of the type's range,
// clipped to the range and rounded to cents.
func (g *generator) amount(t models.ClaimType) float64 {
	r, ok := amountRanges[t]
	if !ok {
		r = amountRange{1000, 50000}
	}
	mu := math.Log((r.min + r.max) / 2)
	v := math.Exp(mu + 0.5*g.rng.NormFloat64())
	v = math.Max(r.min, math.Min(r.max, v))
	return math.Round(v*100) / 100
}

// date returns now + offset + a uniform 0..span days.
func (g *generator) date(offset, span int) time.Time {
	days := offset + g.rng.Intn(span+1)
	return g.now.AddDate(0, 0, days)
}

func (g *generator) narrative(t models.ClaimType, amount float64) string {
	money := printer.Sprintf("$%.2f", amount)
	templates, ok := narratives[t]
	if !ok {
		return fmt.Sprintf("Claim filed for %s. Total amount %s.", t, money)
	}
	return fmt.Sprintf(templates[g.rng.Intn(len(templates))], money)
}

// GroundTruthSeverity labels a claim by amount band.
func GroundTruthSeverity(amount float64) models.Severity {
	switch {
	case amount < 5000:
		return models.SeverityLow
	case amount < 25000:
		return models.SeverityMedium
	case amount < 75000:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

// GroundTruthAction labels the expected action. Rules are checked in order;
// a critical claim with three or more prior claims is therefore labelled
// investigate, not escalate.
func GroundTruthAction(sev models.Severity, priorClaims int, tenureYears float64) models.Action {
	switch {
	case sev == models.SeverityLow && priorClaims < 2:
		return models.ActionApprove
	case sev == models.SeverityMedium && priorClaims < 3 && tenureYears > 1:
		return models.ActionApprove
	case sev == models.SeverityHigh || priorClaims >= 3:
		return models.ActionInvestigate
	case sev == models.SeverityCritical:
		return models.ActionEscalate
	default:
		return models.ActionInvestigate
	}
}

// Manifest describes a written data set.
type Manifest struct {
	Seed        int64          `yaml:"seed"`
	GeneratedAt string         `yaml:"generated_at"`
	Claims      int            `yaml:"claims"`
	Policies    int            `yaml:"policies"`
	Severities  map[string]int `yaml:"severity_distribution"`
	Actions     map[string]int `yaml:"action_distribution"`
}

// NewManifest summarises ds.
func NewManifest(ds *Dataset, opts Options) Manifest {
	m := Manifest{
		Seed:       opts.Seed,
		Claims:     len(ds.Claims),
		Policies:   len(ds.Policies),
		Severities: map[string]int{},
		Actions:    map[string]int{},
	}
	if !opts.Now.IsZero() {
		m.GeneratedAt = opts.Now.Format(models.DateLayout)
	}
	for _, c := range ds.Claims {
		m.Severities[string(c.GroundTruth.Severity)]++
		m.Actions[string(c.GroundTruth.Action)]++
	}
	return m
}

// Write saves claims.csv, policies.csv and manifest.yaml into outputDir.
func Write(ds *Dataset, opts Options, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := writeCSV(filepath.Join(outputDir, ClaimsFile), func(f *os.File) error {
		return dataset.WriteClaims(f, ds.Claims)
	}); err != nil {
		return fmt.Errorf("writing claims: %w", err)
	}
	if err := writeCSV(filepath.Join(outputDir, PoliciesFile), func(f *os.File) error {
		return dataset.WritePolicies(f, ds.Policies)
	}); err != nil {
		return fmt.Errorf("writing policies: %w", err)
	}
	if err := writeYAML(filepath.Join(outputDir, ManifestFile), NewManifest(ds, opts)); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

func writeCSV(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeYAML(path string, data any) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}
