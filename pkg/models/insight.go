package models

// InsightType tags the variant carried by an Insight.
type InsightType string

const (
	InsightNumericSummary          InsightType = "numeric_summary"
	InsightCategoricalDistribution InsightType = "categorical_distribution"
	InsightCorrelations            InsightType = "correlations"
	InsightOutliers                InsightType = "outliers"
	InsightDominantCategory        InsightType = "dominant_category"
	InsightTimeRange               InsightType = "time_range"
	InsightDataCompleteness        InsightType = "data_completeness"
)

// Insight is a tagged finding over the result set. Data holds the typed
// payload for the variant named by Type.
type Insight struct {
	Type   InsightType `json:"type"`
	Column string      `json:"column,omitempty"`
	Data   any         `json:"data"`
}

// NumericSummary holds descriptive statistics for one numeric column.
type NumericSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Sum    float64 `json:"sum"`
	Count  int     `json:"count"`
	StdDev float64 `json:"stdDev"`
	Q1     float64 `json:"q1,omitempty"`
	Q3     float64 `json:"q3,omitempty"`
	IQR    float64 `json:"iqr,omitempty"`
	Mode   float64 `json:"mode,omitempty"`
}

// CategoricalDistribution summarizes value frequencies for a categorical column.
type CategoricalDistribution struct {
	Counts        map[string]int `json:"counts"`
	DistinctCount int            `json:"distinctCount"`
	TopValue      string         `json:"topValue"`
	TopCount      int            `json:"topCount"`
}

// CorrelationPair is the Pearson correlation between two numeric columns.
// The relation is symmetric: swapping ColumnA and ColumnB yields the same R.
type CorrelationPair struct {
	ColumnA  string  `json:"columnA"`
	ColumnB  string  `json:"columnB"`
	R        float64 `json:"r"`
	Strength string  `json:"strength"`
	Pairs    int     `json:"pairs"`
}

// Outlier flags one value of one column as anomalous.
type Outlier struct {
	RowIndex int     `json:"rowIndex"`
	Value    float64 `json:"value"`
	Score    float64 `json:"score"`
}

// OutlierReport carries the outcome of outlier detection for one column.
type OutlierReport struct {
	Method   string    `json:"method"`
	Outliers []Outlier `json:"outliers"`
	Normal   []float64 `json:"normal"`
}

// TrendDirection classifies the slope of a fitted time series.
type TrendDirection string

const (
	TrendStable         TrendDirection = "stable"
	TrendSlightIncrease TrendDirection = "slight_increase"
	TrendStrongIncrease TrendDirection = "strong_increase"
	TrendSlightDecrease TrendDirection = "slight_decrease"
	TrendStrongDecrease TrendDirection = "strong_decrease"
)

// TrendReport is the result of fitting a linear trend over a time-sorted column.
type TrendReport struct {
	TimeColumn    string         `json:"timeColumn"`
	ValueColumn   string         `json:"valueColumn"`
	Slope         float64        `json:"slope"`
	Direction     TrendDirection `json:"direction"`
	PercentChange float64        `json:"percentChange"`
	Points        int            `json:"points"`
}

// Statistics bundles everything the analytics engine computes for a result set.
type Statistics struct {
	Aggregates   map[string]NumericSummary `json:"aggregates"`
	Correlations []CorrelationPair         `json:"correlations"`
	TimeSeries   *TrendReport              `json:"timeSeries,omitempty"`
}
