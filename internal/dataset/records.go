package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

// Claim CSV columns.
var ClaimHeaders = []string{
	"claim_id", "policy_id", "claim_type", "claim_amount", "incident_date",
	"report_date", "location", "claimant_age", "prior_claims",
	"policy_tenure_years", "narrative", "ground_truth_severity", "ground_truth_action",
}

// Policy CSV columns.
var PolicyHeaders = []string{
	"policy_id", "policy_type", "coverage_limit", "deductible", "customer_name",
	"policy_start_date", "claims_history_count", "is_active",
}

var requiredClaimHeaders = []string{
	"claim_id", "policy_id", "claim_type", "claim_amount", "incident_date",
	"report_date", "prior_claims", "policy_tenure_years",
}

var requiredPolicyHeaders = []string{"policy_id", "coverage_limit"}

var recordValidate *validator.Validate

func init() {
	recordValidate = validator.New()
	recordValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = recordValidate.RegisterValidation("claimtype", func(fl validator.FieldLevel) bool {
		return models.ClaimType(fl.Field().String()).Valid()
	})
}

// ValidationError reports a record that could not be ingested. Row is the
// 1-based data row (the header is row 0).
type ValidationError struct {
	Row   int
	ID    string
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	id := ""
	if e.ID != "" {
		id = " (" + e.ID + ")"
	}
	if e.Value != "" {
		return fmt.Sprintf("row %d%s: field %s=%q: %v", e.Row, id, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("row %d%s: field %s: %v", e.Row, id, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var (
	// ErrMissing is wrapped by ValidationError when a required value is empty.
	ErrMissing = errors.New("required value is missing")
	// ErrMalformed is wrapped by ValidationError when a value cannot be parsed.
	ErrMalformed = errors.New("malformed value")
)

// LoadClaims reads and validates a claims CSV file. Rows that fail
// validation are returned as ValidationErrors and skipped.
func LoadClaims(path string) ([]models.Claim, []*ValidationError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("claims: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	claims, invalid, err := ParseClaims(f)
	if err != nil {
		return nil, nil, fmt.Errorf("claims: %s: %w", path, err)
	}
	return claims, invalid, nil
}

// ParseClaims reads claim records from r.
func ParseClaims(r io.Reader) ([]models.Claim, []*ValidationError, error) {
	rows, err := ReadCSV(r)
	if err != nil {
		return nil, nil, err
	}
	if err := requireHeaders(rows, requiredClaimHeaders); err != nil {
		return nil, nil, err
	}

	claims := make([]models.Claim, 0, len(rows))
	var invalid []*ValidationError
	for i, row := range rows {
		c, verr := parseClaim(i+1, row)
		if verr != nil {
			invalid = append(invalid, verr)
			continue
		}
		claims = append(claims, c)
	}
	return claims, invalid, nil
}

// LoadPolicies reads and validates a policies CSV file.
func LoadPolicies(path string) ([]models.Policy, []*ValidationError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("policies: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	policies, invalid, err := ParsePolicies(f)
	if err != nil {
		return nil, nil, fmt.Errorf("policies: %s: %w", path, err)
	}
	return policies, invalid, nil
}

// ParsePolicies reads policy records from r.
func ParsePolicies(r io.Reader) ([]models.Policy, []*ValidationError, error) {
	rows, err := ReadCSV(r)
	if err != nil {
		return nil, nil, err
	}
	if err := requireHeaders(rows, requiredPolicyHeaders); err != nil {
		return nil, nil, err
	}

	policies := make([]models.Policy, 0, len(rows))
	var invalid []*ValidationError
	for i, row := range rows {
		p, verr := parsePolicy(i+1, row)
		if verr != nil {
			invalid = append(invalid, verr)
			continue
		}
		policies = append(policies, p)
	}
	return policies, invalid, nil
}

// WriteClaims writes claims in the CSV layout ParseClaims reads.
func WriteClaims(w io.Writer, claims []models.Claim) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ClaimHeaders); err != nil {
		return err
	}
	for _, c := range claims {
		var sev, act string
		if c.GroundTruth != nil {
			sev, act = string(c.GroundTruth.Severity), string(c.GroundTruth.Action)
		}
		age := ""
		if c.HasAge() {
			age = strconv.Itoa(c.ClaimantAge)
		}
		rec := []string{
			c.ID, c.PolicyID, string(c.Type),
			strconv.FormatFloat(c.Amount, 'f', 2, 64),
			formatDate(c.IncidentDate), formatDate(c.ReportDate),
			c.Location, age, strconv.Itoa(c.PriorClaims),
			strconv.FormatFloat(c.PolicyTenureYears, 'f', -1, 64),
			c.Narrative, sev, act,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePolicies writes policies in the CSV layout ParsePolicies reads.
func WritePolicies(w io.Writer, policies []models.Policy) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PolicyHeaders); err != nil {
		return err
	}
	for _, p := range policies {
		rec := []string{
			p.ID, p.Type,
			strconv.FormatFloat(p.CoverageLimit, 'f', -1, 64),
			strconv.FormatFloat(p.Deductible, 'f', -1, 64),
			p.CustomerName, formatDate(p.StartDate),
			strconv.Itoa(p.ClaimsHistoryCount),
			strconv.FormatBool(p.Active),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func requireHeaders(rows []Row, required []string) error {
	if len(rows) == 0 {
		return nil
	}
	var missing []string
	for _, h := range required {
		if _, ok := rows[0][h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// fieldParser accumulates the first parse failure for a row.
type fieldParser struct {
	row Row
	n   int
	id  string
	err *ValidationError
}

func (p *fieldParser) fail(field, value string, err error) {
	if p.err == nil {
		p.err = &ValidationError{Row: p.n, ID: p.id, Field: field, Value: value, Err: err}
	}
}

func (p *fieldParser) str(field string) string {
	return strings.TrimSpace(p.row[field])
}

func (p *fieldParser) float(field string, required bool) float64 {
	v := p.str(field)
	if v == "" {
		if required {
			p.fail(field, "", ErrMissing)
		}
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(field, v, ErrMalformed)
	}
	return f
}

func (p *fieldParser) int(field string, required bool) int {
	v := p.str(field)
	if v == "" {
		if required {
			p.fail(field, "", ErrMissing)
		}
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Whole numbers written as floats ("3.0") are accepted.
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int(f)) {
			p.fail(field, v, ErrMalformed)
			return 0
		}
		return int(f)
	}
	return n
}

func (p *fieldParser) date(field string, required bool) time.Time {
	v := p.str(field)
	if v == "" {
		if required {
			p.fail(field, "", ErrMissing)
		}
		return time.Time{}
	}
	t, err := time.Parse(models.DateLayout, v)
	if err != nil {
		p.fail(field, v, ErrMalformed)
	}
	return t
}

func (p *fieldParser) bool(field string, def bool) bool {
	v := p.str(field)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(field, v, ErrMalformed)
	}
	return b
}

func parseClaim(n int, row Row) (models.Claim, *ValidationError) {
	p := &fieldParser{row: row, n: n, id: strings.TrimSpace(row["claim_id"])}
	c := models.Claim{
		ID:                p.str("claim_id"),
		PolicyID:          p.str("policy_id"),
		Type:              models.ClaimType(p.str("claim_type")),
		Amount:            p.float("claim_amount", true),
		IncidentDate:      p.date("incident_date", true),
		ReportDate:        p.date("report_date", true),
		Location:          p.str("location"),
		ClaimantAge:       p.int("claimant_age", false),
		PriorClaims:       p.int("prior_claims", true),
		PolicyTenureYears: p.float("policy_tenure_years", true),
		Narrative:         p.str("narrative"),
	}
	if p.err == nil && c.ReportDate.Before(c.IncidentDate) {
		p.fail("report_date", p.str("report_date"), fmt.Errorf("%w: before incident_date %s", ErrMalformed, p.str("incident_date")))
	}

	sev, act := p.str("ground_truth_severity"), p.str("ground_truth_action")
	if sev != "" || act != "" {
		gt := &models.GroundTruth{Severity: models.Severity(sev), Action: models.Action(act)}
		if !models.ValidSeverity(gt.Severity) {
			p.fail("ground_truth_severity", sev, ErrMalformed)
		}
		if !models.ValidAction(gt.Action) {
			p.fail("ground_truth_action", act, ErrMalformed)
		}
		c.GroundTruth = gt
	}
	if p.err != nil {
		return models.Claim{}, p.err
	}

	if err := recordValidate.Struct(c); err != nil {
		return models.Claim{}, structError(n, c.ID, err)
	}
	return c, nil
}

func parsePolicy(n int, row Row) (models.Policy, *ValidationError) {
	p := &fieldParser{row: row, n: n, id: strings.TrimSpace(row["policy_id"])}
	pol := models.Policy{
		ID:                 p.str("policy_id"),
		Type:               p.str("policy_type"),
		CoverageLimit:      p.float("coverage_limit", true),
		Deductible:         p.float("deductible", false),
		CustomerName:       p.str("customer_name"),
		StartDate:          p.date("policy_start_date", false),
		ClaimsHistoryCount: p.int("claims_history_count", false),
		Active:             p.bool("is_active", true),
	}
	if p.err != nil {
		return models.Policy{}, p.err
	}

	if err := recordValidate.Struct(pol); err != nil {
		return models.Policy{}, structError(n, pol.ID, err)
	}
	return pol, nil
}

func structError(n int, id string, err error) *ValidationError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		cause := ErrMalformed
		if fe.Tag() == "required" {
			cause = ErrMissing
		}
		return &ValidationError{
			Row:   n,
			ID:    id,
			Field: fe.Field(),
			Value: fmt.Sprint(fe.Value()),
			Err:   fmt.Errorf("%w: failed %q", cause, fe.Tag()),
		}
	}
	return &ValidationError{Row: n, ID: id, Field: "record", Err: err}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DateLayout)
}
