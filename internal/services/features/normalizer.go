package features

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"CreditRisk/internal/domain/models"
	"CreditRisk/pkg/util"
)

const (
	payStatusMin = -2
	payStatusMax = 9

	educationOther = 4
	marriageOther  = 3
)

// MissingFeatureError lists the canonical feature names a request lacked,
// in canonical order.
type MissingFeatureError struct {
	Missing []string
}

func (e *MissingFeatureError) Error() string {
	return "missing required features: " + strings.Join(e.Missing, ", ")
}

// InvalidFeatureError reports a NaN or infinite input value.
type InvalidFeatureError struct {
	Name  string
	Value float64
}

func (e *InvalidFeatureError) Error() string {
	return fmt.Sprintf("feature %s has non-finite value %v", e.Name, e.Value)
}

// Normalize checks raw for every canonical key, then returns the ordered
// vector with categorical codes folded and payment-status codes clamped.
// raw is never modified; unknown keys are ignored.
func Normalize(raw map[string]float64) (models.FeatureVector, error) {
	var v models.FeatureVector

	names := models.FeatureNames()
	var missing []string
	for _, n := range names {
		if _, ok := raw[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return v, &MissingFeatureError{Missing: missing}
	}

	for i, n := range names {
		x := raw[n]
		if !util.IsFinite(x) {
			return v, &InvalidFeatureError{Name: n, Value: x}
		}
		v[i] = x
	}

	set := func(name string, x float64) {
		i, _ := models.FeatureIndex(name)
		v[i] = x
	}

	switch edu, _ := v.Get(models.FeatureEducation); edu {
	case 0, 4, 5, 6:
		set(models.FeatureEducation, educationOther)
	}
	if mar, _ := v.Get(models.FeatureMarriage); mar == 0 {
		set(models.FeatureMarriage, marriageOther)
	}
	for _, n := range models.PaymentStatusFeatures() {
		x, _ := v.Get(n)
		set(n, util.Clamp(x, payStatusMin, payStatusMax))
	}

	return v, nil
}

// UnknownKeys returns keys of raw that are not canonical feature names, sorted.
func UnknownKeys(raw map[string]float64) []string {
	var out []string
	for k := range raw {
		if _, ok := models.FeatureIndex(k); !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// DomainViolations lists codes outside their documented domain after
// normalization (SEX not in {1,2}, EDUCATION not in 1..4, MARRIAGE not in
// 1..3, non-integer payment status). They are scored as-is; callers log them.
func DomainViolations(v models.FeatureVector) []string {
	var out []string
	check := func(name string, ok func(float64) bool) {
		if x, _ := v.Get(name); !ok(x) {
			out = append(out, fmt.Sprintf("%s=%v", name, x))
		}
	}
	inRange := func(lo, hi float64) func(float64) bool {
		return func(x float64) bool { return x == math.Trunc(x) && x >= lo && x <= hi }
	}

	check(models.FeatureSex, inRange(1, 2))
	check(models.FeatureEducation, inRange(1, 4))
	check(models.FeatureMarriage, inRange(1, 3))
	for _, n := range models.PaymentStatusFeatures() {
		check(n, inRange(payStatusMin, payStatusMax))
	}
	return out
}
