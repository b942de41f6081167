package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for claim and policy dates.
const DateLayout = "2006-01-02"

// ClaimType identifies the line of business a claim was filed under.
type ClaimType string

const (
	ClaimTypeAutoAccident   ClaimType = "Auto Accident"
	ClaimTypePropertyDamage ClaimType = "Property Damage"
	ClaimTypeTheft          ClaimType = "Theft"
	ClaimTypeFireDamage     ClaimType = "Fire Damage"
	ClaimTypeWaterDamage    ClaimType = "Water Damage"
	ClaimTypeLiability      ClaimType = "Liability"
	ClaimTypeMedical        ClaimType = "Medical"
	ClaimTypeStormDamage    ClaimType = "Storm Damage"
)

// ClaimTypes lists every known claim type in a stable order.
var ClaimTypes = []ClaimType{
	ClaimTypeAutoAccident,
	ClaimTypePropertyDamage,
	ClaimTypeTheft,
	ClaimTypeFireDamage,
	ClaimTypeWaterDamage,
	ClaimTypeLiability,
	ClaimTypeMedical,
	ClaimTypeStormDamage,
}

// Valid reports whether t is one of the known claim types.
func (t ClaimType) Valid() bool {
	for _, known := range ClaimTypes {
		if t == known {
			return true
		}
	}
	return false
}

// GroundTruth is the reference labelling used when scoring strategies.
type GroundTruth struct {
	Severity Severity `json:"severity"`
	Action   Action   `json:"action"`
}

// Claim is a single insurance claim. Claims are values: once ingested they
// are passed around by copy and never mutated.
type Claim struct {
	ID                string       `json:"claim_id" validate:"required"`
	PolicyID          string       `json:"policy_id" validate:"required"`
	Type              ClaimType    `json:"claim_type" validate:"required,claimtype"`
	Amount            float64      `json:"claim_amount" validate:"gte=0"`
	IncidentDate      time.Time    `json:"incident_date"`
	ReportDate        time.Time    `json:"report_date"`
	Location          string       `json:"location,omitempty"`
	ClaimantAge       int          `json:"claimant_age,omitempty" validate:"gte=0,lte=130"`
	PriorClaims       int          `json:"prior_claims" validate:"gte=0"`
	PolicyTenureYears float64      `json:"policy_tenure_years" validate:"gte=0"`
	Narrative         string       `json:"narrative,omitempty"`
	GroundTruth       *GroundTruth `json:"ground_truth,omitempty"`
}

// IncidentToReportDays is the number of whole days between the incident and
// the report, or 0 when either date is unset. Ingestion rejects reports dated
// before the incident.
func (c Claim) IncidentToReportDays() int {
	if c.IncidentDate.IsZero() || c.ReportDate.IsZero() {
		return 0
	}
	return int(c.ReportDate.Sub(c.IncidentDate).Hours() / 24)
}

// HasAge reports whether the claimant's age is known.
func (c Claim) HasAge() bool {
	return c.ClaimantAge > 0
}

func (c Claim) String() string {
	return fmt.Sprintf("%s (%s, $%.2f)", c.ID, c.Type, c.Amount)
}

// Policy is read-only reference data for the policy a claim was filed under.
type Policy struct {
	ID                 string    `json:"policy_id" validate:"required"`
	Type               string    `json:"policy_type,omitempty"`
	CustomerName       string    `json:"customer_name,omitempty"`
	StartDate          time.Time `json:"start_date"`
	CoverageLimit      float64   `json:"coverage_limit" validate:"gt=0"`
	Deductible         float64   `json:"deductible" validate:"gte=0"`
	Active             bool      `json:"active"`
	ClaimsHistoryCount int       `json:"claims_history_count" validate:"gte=0"`
}
