// Package assessment estimates how much solar capacity a parcel of land could
// host and what a lease would be worth to the landowner.
package assessment

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/solarfarm-site/pkg/finance"
	"github.com/iwvelando/solarfarm-site/pkg/mathutil"
	"github.com/iwvelando/solarfarm-site/pkg/validation"
)

// ErrInvalidRequest marks assessment requests with out-of-range or missing fields.
var ErrInvalidRequest = errors.New("invalid land assessment request")

// Accepted request ranges.
const (
	MinAreaHectares   = 0.5
	MaxAreaHectares   = 5000.0
	MaxGridDistanceKm = 100.0
	MinIrradiance     = 800.0
	MaxIrradiance     = 2500.0
)

// Score weights, summing to 100.
const (
	irradianceWeight = 40.0
	gridWeight       = 30.0
	terrainWeight    = 20.0
	sizeWeight       = 10.0
)

// Terrain classifies the slope of a parcel.
type Terrain string

const (
	TerrainFlat   Terrain = "flat"
	TerrainGentle Terrain = "gentle"
	TerrainSteep  Terrain = "steep"
)

// Rating buckets the suitability score.
type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingFair      Rating = "fair"
	RatingPoor      Rating = "poor"
)

// Request is the landowner's description of a parcel.
type Request struct {
	AreaHectares    float64  `json:"areaHectares"`
	Terrain         string   `json:"terrain"`
	GridDistanceKm  float64  `json:"gridDistanceKm"`
	IrradianceKWhM2 *float64 `json:"irradianceKWhM2,omitempty"`
	Location        string   `json:"location,omitempty"`
}

// Coefficients are the regional figures the estimator works with.
type Coefficients struct {
	HectaresPerMW       float64
	LeaseRatePerHectare float64
	GridCostPerKm       float64
	ReferenceIrradiance float64
	// GridScoreRangeKm is the distance at which the grid score reaches zero.
	GridScoreRangeKm float64
	// OptimalIrradiance earns the full irradiance score.
	OptimalIrradiance float64
	TerrainShare      map[Terrain]float64
}

// DefaultCoefficients returns the estimator defaults.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		HectaresPerMW:       2.0,
		LeaseRatePerHectare: 1500,
		GridCostPerKm:       85_000,
		ReferenceIrradiance: 1200,
		GridScoreRangeKm:    25,
		OptimalIrradiance:   2000,
		TerrainShare: map[Terrain]float64{
			TerrainFlat:   0.90,
			TerrainGentle: 0.75,
			TerrainSteep:  0.40,
		},
	}
}

// Validate checks that every coefficient is usable.
func (c Coefficients) Validate() error {
	positive := map[string]float64{
		"hectares per MW":      c.HectaresPerMW,
		"lease rate":           c.LeaseRatePerHectare,
		"grid cost per km":     c.GridCostPerKm,
		"reference irradiance": c.ReferenceIrradiance,
		"grid score range":     c.GridScoreRangeKm,
	}
	for name, value := range positive {
		if !mathutil.IsFinite(value) || value <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, value)
		}
	}
	if c.OptimalIrradiance <= MinIrradiance {
		return fmt.Errorf("optimal irradiance must exceed %v, got %v", MinIrradiance, c.OptimalIrradiance)
	}
	for _, terrain := range []Terrain{TerrainFlat, TerrainGentle, TerrainSteep} {
		share, ok := c.TerrainShare[terrain]
		if !ok || share <= 0 || share > 1 {
			return fmt.Errorf("usable share for %s terrain must be in (0, 1], got %v", terrain, share)
		}
	}
	return nil
}

// Estimate is the outcome of a land assessment.
type Estimate struct {
	AreaHectares       float64               `json:"areaHectares"`
	Terrain            Terrain               `json:"terrain"`
	Location           string                `json:"location,omitempty"`
	UsableHectares     float64               `json:"usableHectares"`
	PotentialMW        float64               `json:"potentialMW"`
	SuggestedClass     finance.CapacityClass `json:"suggestedClass,omitempty"`
	Eligible           bool                  `json:"eligible"`
	AnnualLeaseIncome  float64               `json:"annualLeaseIncome"`
	GridConnectionCost float64               `json:"gridConnectionCost"`
	IrradianceKWhM2    float64               `json:"irradianceKWhM2"`
	IrradianceFactor   float64               `json:"irradianceFactor"`
	Score              int                   `json:"score"`
	ScoreBreakdown     map[string]float64    `json:"scoreBreakdown"`
	Rating             Rating                `json:"rating"`
	Notes              []string              `json:"notes,omitempty"`
}

// Estimator computes land estimates. It is safe for concurrent use.
type Estimator struct {
	coeff Coefficients
}

// NewEstimator validates and copies the coefficients.
func NewEstimator(coeff Coefficients) (*Estimator, error) {
	if err := coeff.Validate(); err != nil {
		return nil, fmt.Errorf("invalid assessment coefficients: %w", err)
	}
	shares := make(map[Terrain]float64, len(coeff.TerrainShare))
	for terrain, share := range coeff.TerrainShare {
		shares[terrain] = share
	}
	coeff.TerrainShare = shares
	return &Estimator{coeff: coeff}, nil
}

// Estimate assesses a parcel. Invalid requests yield an error wrapping
// ErrInvalidRequest and validation.Errors.
func (e *Estimator) Estimate(req Request) (Estimate, error) {
	terrain, irradiance, err := e.validate(req)
	if err != nil {
		return Estimate{}, err
	}

	c := e.coeff
	share := c.TerrainShare[terrain]
	usable := req.AreaHectares * share
	potential := usable / c.HectaresPerMW

	est := Estimate{
		AreaHectares:       req.AreaHectares,
		Terrain:            terrain,
		Location:           strings.TrimSpace(req.Location),
		UsableHectares:     mathutil.Round(usable),
		PotentialMW:        mathutil.Round(potential),
		SuggestedClass:     suggestClass(potential),
		Eligible:           potential >= finance.Capacity1MW.MW(),
		AnnualLeaseIncome:  mathutil.Round(req.AreaHectares * c.LeaseRatePerHectare),
		GridConnectionCost: mathutil.Round(req.GridDistanceKm * c.GridCostPerKm),
		IrradianceKWhM2:    irradiance,
		IrradianceFactor:   mathutil.Round(irradiance / c.ReferenceIrradiance),
	}

	breakdown := map[string]float64{
		"irradiance": irradianceWeight * mathutil.Clamp((irradiance-MinIrradiance)/(c.OptimalIrradiance-MinIrradiance), 0, 1),
		"grid":       gridWeight * mathutil.Clamp(1-req.GridDistanceKm/c.GridScoreRangeKm, 0, 1),
		"terrain":    terrainWeight * share / c.TerrainShare[TerrainFlat],
		"size":       sizeWeight * mathutil.Clamp(potential/finance.Capacity10MW.MW(), 0, 1),
	}
	total := 0.0
	for key, value := range breakdown {
		value = mathutil.Clamp(mathutil.Round(value), 0, 100)
		breakdown[key] = value
		total += value
	}
	est.ScoreBreakdown = breakdown
	est.Score = int(math.Round(mathutil.Clamp(total, 0, 100)))
	est.Rating = rate(est.Score)
	est.Notes = e.notes(req, terrain, irradiance, potential)
	return est, nil
}

func (e *Estimator) validate(req Request) (Terrain, float64, error) {
	var errs validation.Errors

	if !mathutil.IsFinite(req.AreaHectares) || !mathutil.InRange(req.AreaHectares, MinAreaHectares, MaxAreaHectares) {
		errs.Add("areaHectares", "must be between %g and %g hectares", MinAreaHectares, MaxAreaHectares)
	}

	terrain := Terrain(strings.ToLower(strings.TrimSpace(req.Terrain)))
	if terrain == "" {
		errs.Add("terrain", "is required")
	} else {
		validation.OneOf(&errs, "terrain", string(terrain), string(TerrainFlat), string(TerrainGentle), string(TerrainSteep))
	}

	if !mathutil.IsFinite(req.GridDistanceKm) || !mathutil.InRange(req.GridDistanceKm, 0, MaxGridDistanceKm) {
		errs.Add("gridDistanceKm", "must be between 0 and %g km", MaxGridDistanceKm)
	}

	irradiance := e.coeff.ReferenceIrradiance
	if req.IrradianceKWhM2 != nil {
		irradiance = *req.IrradianceKWhM2
		if !mathutil.IsFinite(irradiance) || !mathutil.InRange(irradiance, MinIrradiance, MaxIrradiance) {
			errs.Add("irradianceKWhM2", "must be between %g and %g kWh/m²", MinIrradiance, MaxIrradiance)
		}
	}

	validation.Length(&errs, "location", strings.TrimSpace(req.Location), 0, 120)

	if err := errs.Err(); err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return terrain, irradiance, nil
}

func (e *Estimator) notes(req Request, terrain Terrain, irradiance, potential float64) []string {
	var notes []string
	if potential < finance.Capacity1MW.MW() {
		notes = append(notes, fmt.Sprintf("usable area supports %.2f MW, below the 1 MW minimum project size", potential))
	}
	if terrain == TerrainSteep {
		notes = append(notes, "steep terrain limits usable area and raises mounting costs")
	}
	if req.GridDistanceKm > e.coeff.GridScoreRangeKm {
		notes = append(notes, fmt.Sprintf("grid connection beyond %g km makes connection costs dominant", e.coeff.GridScoreRangeKm))
	}
	if irradiance < e.coeff.ReferenceIrradiance {
		notes = append(notes, "irradiance below the regional reference reduces expected yield")
	}
	return notes
}

func suggestClass(potentialMW float64) finance.CapacityClass {
	classes := finance.CapacityClasses()
	for i := len(classes) - 1; i >= 0; i-- {
		if potentialMW >= classes[i].MW() {
			return classes[i]
		}
	}
	return ""
}

func rate(score int) Rating {
	switch {
	case score >= 80:
		return RatingExcellent
	case score >= 60:
		return RatingGood
	case score >= 40:
		return RatingFair
	default:
		return RatingPoor
	}
}
