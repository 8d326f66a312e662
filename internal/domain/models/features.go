package models

import (
	"fmt"
	"strconv"
)

// FeatureCount is the length of every feature vector the scoring models consume.
const FeatureCount = 41

const (
	FeatureLimitBal  = "LIMIT_BAL"
	FeatureSex       = "SEX"
	FeatureEducation = "EDUCATION"
	FeatureMarriage  = "MARRIAGE"
	FeatureAge       = "AGE"
	FeaturePay0      = "PAY_0"
)

const months = 12

// FeatureVector holds the 41 model inputs in canonical order: five personal
// attributes, twelve payment-status codes, twelve statement balances, twelve
// payment amounts. Position carries meaning; build one only through the
// normalizer or FeatureVectorFromSlice.
type FeatureVector [FeatureCount]float64

var (
	featureNames  [FeatureCount]string
	featureIndex  = make(map[string]int, FeatureCount)
	paymentStatus [months]string
)

func init() {
	names := []string{FeatureLimitBal, FeatureSex, FeatureEducation, FeatureMarriage, FeatureAge}
	// payment status months are PAY_0, PAY_2 .. PAY_12; there is no PAY_1
	paymentStatus[0] = FeaturePay0
	for m := 2; m <= months; m++ {
		paymentStatus[m-1] = "PAY_" + strconv.Itoa(m)
	}
	names = append(names, paymentStatus[:]...)
	for m := 1; m <= months; m++ {
		names = append(names, "BILL_AMT"+strconv.Itoa(m))
	}
	for m := 1; m <= months; m++ {
		names = append(names, "PAY_AMT"+strconv.Itoa(m))
	}
	if len(names) != FeatureCount {
		panic(fmt.Sprintf("feature schema has %d names, want %d", len(names), FeatureCount))
	}
	for i, n := range names {
		featureNames[i] = n
		featureIndex[n] = i
	}
}

// FeatureNames returns the canonical names in vector order.
func FeatureNames() []string {
	out := make([]string, FeatureCount)
	copy(out, featureNames[:])
	return out
}

// PaymentStatusFeatures returns the twelve payment-status names in month order.
func PaymentStatusFeatures() []string {
	out := make([]string, months)
	copy(out, paymentStatus[:])
	return out
}

func FeatureIndex(name string) (int, bool) {
	i, ok := featureIndex[name]
	return i, ok
}

func (v FeatureVector) Get(name string) (float64, bool) {
	i, ok := featureIndex[name]
	if !ok {
		return 0, false
	}
	return v[i], true
}

// Map returns a name-keyed copy of the vector.
func (v FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, FeatureCount)
	for i, n := range featureNames {
		m[n] = v[i]
	}
	return m
}

func (v FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, v[:])
	return out
}

func FeatureVectorFromSlice(xs []float64) (FeatureVector, error) {
	var v FeatureVector
	if len(xs) != FeatureCount {
		return v, fmt.Errorf("feature vector has %d values, want %d", len(xs), FeatureCount)
	}
	copy(v[:], xs)
	return v, nil
}
