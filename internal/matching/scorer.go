package matching

import (
	"math"
	"strings"

	"github.com/meetmatch/matchcore/internal/config"
	"github.com/meetmatch/matchcore/internal/db"
)

const earthRadiusKm = 6371.0

// Weights are the relative importance of each sub-score. They sum to 1.
type Weights struct {
	Location    float64
	Interests   float64
	Preferences float64
}

// Breakdown is a score together with the sub-scores it was built from.
// Every field is within [0,1].
type Breakdown struct {
	Location    float64 `json:"location"`
	Interests   float64 `json:"interests"`
	Preferences float64 `json:"preferences"`
	Total       float64 `json:"total"`
}

// Compliant reports whether the candidate satisfied the user's preferences.
func (b Breakdown) Compliant() bool { return b.Preferences == 1 }

// Scorer maps (user, candidate) to a compatibility score. It is pure and
// safe for concurrent use.
type Scorer struct {
	weights              Weights
	threshold            float64
	hardGate             bool
	countryMatchScore    float64
	defaultMaxDistanceKm float64
}

// NewScorer builds a scorer from validated configuration.
func NewScorer(cfg config.MatchConfig) *Scorer {
	return &Scorer{
		weights: Weights{
			Location:    cfg.LocationWeight,
			Interests:   cfg.InterestsWeight,
			Preferences: cfg.PreferencesWeight,
		},
		threshold:            cfg.Threshold,
		hardGate:             cfg.PreferenceHardGate,
		countryMatchScore:    cfg.CountryMatchScore,
		defaultMaxDistanceKm: cfg.DefaultMaxDistanceKm,
	}
}

// Threshold is the minimum total a candidate needs to be shown.
func (s *Scorer) Threshold() float64 { return s.threshold }

// HardGate reports whether non-compliant candidates are dropped outright.
func (s *Scorer) HardGate() bool { return s.hardGate }

// Score computes the breakdown of candidate as seen by user.
//
// Example (default weights 0.3/0.5/0.2): both in Jakarta, interests
// {hiking, reading} vs {reading, music}, candidate within preferences:
//
//	0.3*1.0 + 0.5*(1/3) + 0.2*1.0 = 0.667
func (s *Scorer) Score(user, candidate *db.User) Breakdown {
	prefs := user.Preferences.Data()
	w := s.weightsFor(prefs)

	b := Breakdown{
		Location:    s.location(user.Location.Data(), candidate.Location.Data(), prefs),
		Interests:   jaccard(user.Interests, candidate.Interests),
		Preferences: compliance(prefs, candidate),
	}
	b.Total = clamp(w.Location*b.Location + w.Interests*b.Interests + w.Preferences*b.Preferences)
	return b
}

// Accept applies the preference gate and the threshold.
func (s *Scorer) Accept(b Breakdown) bool {
	if s.hardGate && !b.Compliant() {
		return false
	}
	return b.Total >= s.threshold
}

// weightsFor replaces the interests weight with the user's own choice, if
// any, and splits what is left between location and preferences in their
// configured ratio.
func (s *Scorer) weightsFor(p db.Preferences) Weights {
	if p.InterestWeight == nil {
		return s.weights
	}
	wi := clamp(*p.InterestWeight)
	rest := 1 - wi
	base := s.weights.Location + s.weights.Preferences
	if base == 0 {
		return Weights{Location: rest / 2, Interests: wi, Preferences: rest / 2}
	}
	return Weights{
		Location:    rest * s.weights.Location / base,
		Interests:   wi,
		Preferences: rest * s.weights.Preferences / base,
	}
}

func (s *Scorer) location(a, b db.Location, p db.Preferences) float64 {
	if a.HasCoordinates() && b.HasCoordinates() {
		maxDist := s.defaultMaxDistanceKm
		if p.MaxDistanceKm != nil && *p.MaxDistanceKm > 0 {
			maxDist = *p.MaxDistanceKm
		}
		d := Haversine(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
		return math.Max(0, 1-d/maxDist)
	}

	sameCountry := a.Country != "" && strings.EqualFold(strings.TrimSpace(a.Country), strings.TrimSpace(b.Country))
	sameCity := a.City != "" && strings.EqualFold(strings.TrimSpace(a.City), strings.TrimSpace(b.City))
	switch {
	case sameCity && sameCountry:
		return 1
	case sameCountry:
		return s.countryMatchScore
	default:
		return 0
	}
}

// Haversine returns the great-circle distance in km between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// jaccard is |a ∩ b| / |a ∪ b| over normalized interests; 0 if either is empty.
func jaccard(a, b []string) float64 {
	sa, sb := interestSet(a), interestSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	shared := 0
	for k := range sa {
		if _, ok := sb[k]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(sa)+len(sb)-shared)
}

func interestSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

// compliance is 1 when candidate's age and gender fit the preferences.
// Unset bounds and an empty gender set accept anything.
func compliance(p db.Preferences, candidate *db.User) float64 {
	if p.MinAge != nil && candidate.Age < *p.MinAge {
		return 0
	}
	if p.MaxAge != nil && candidate.Age > *p.MaxAge {
		return 0
	}
	if len(p.Genders) > 0 {
		found := false
		for _, g := range p.Genders {
			if strings.EqualFold(g, candidate.Gender) {
				found = true
				break
			}
		}
		if !found {
			return 0
		}
	}
	return 1
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
