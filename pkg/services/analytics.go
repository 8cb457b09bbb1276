package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

const (
	// ZScoreThreshold flags values whose |z| exceeds it.
	ZScoreThreshold = 2.5
	// MADThreshold flags values whose |x-median|/MAD exceeds it.
	MADThreshold = 3.5

	minOutlierSamples = 4
)

// correlationStrength labels |r| per the conventional bands.
func correlationStrength(r float64) string {
	abs := math.Abs(r)
	switch {
	case abs >= 0.9:
		return "very strong"
	case abs >= 0.7:
		return "strong"
	case abs >= 0.5:
		return "moderate"
	case abs >= 0.3:
		return "weak"
	default:
		return "very weak"
	}
}

// AnalyticsService computes descriptive statistics, correlations, outliers,
// and trend signals over a result set. All methods are pure over their row
// input; nothing here touches the database or the LLM.
type AnalyticsService struct {
	logger *zap.Logger
}

// NewAnalyticsService creates an analytics service.
func NewAnalyticsService(logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{logger: logger.Named("analytics")}
}

// ComputeStatistics derives aggregates for every numeric column, pairwise
// correlations, and a trend report when a time column is present.
func (s *AnalyticsService) ComputeStatistics(rows []models.Row) models.Statistics {
	stats := models.Statistics{Aggregates: make(map[string]models.NumericSummary)}
	if len(rows) == 0 {
		return stats
	}

	numericCols := numericColumns(rows)
	for _, col := range numericCols {
		values := numericValues(rows, col)
		if len(values) == 0 {
			continue
		}
		stats.Aggregates[col] = summarize(values)
	}

	stats.Correlations = s.correlations(rows, numericCols)

	if timeCol, ok := timeColumn(rows); ok && len(numericCols) > 0 {
		if trend := s.DetectTrend(rows, timeCol, numericCols[0]); trend != nil {
			stats.TimeSeries = trend
		}
	}

	return stats
}

// Insights converts statistics and distributions into the tagged findings
// embedded in the report prompt and the final payload.
func (s *AnalyticsService) Insights(rows []models.Row, stats models.Statistics) []models.Insight {
	var insights []models.Insight

	cols := make([]string, 0, len(stats.Aggregates))
	for col := range stats.Aggregates {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		insights = append(insights, models.Insight{
			Type:   models.InsightNumericSummary,
			Column: col,
			Data:   stats.Aggregates[col],
		})
		report := s.DetectOutliersZScore(numericValues(rows, col), ZScoreThreshold)
		if len(report.Outliers) > 0 {
			insights = append(insights, models.Insight{
				Type:   models.InsightOutliers,
				Column: col,
				Data:   report,
			})
		}
	}

	if len(stats.Correlations) > 0 {
		insights = append(insights, models.Insight{
			Type: models.InsightCorrelations,
			Data: stats.Correlations,
		})
	}

	for _, col := range categoricalColumns(rows) {
		dist := distribution(rows, col)
		if dist.DistinctCount == 0 {
			continue
		}
		insights = append(insights, models.Insight{
			Type:   models.InsightCategoricalDistribution,
			Column: col,
			Data:   dist,
		})
		if float64(dist.TopCount) > 0.5*float64(len(rows)) {
			insights = append(insights, models.Insight{
				Type:   models.InsightDominantCategory,
				Column: col,
				Data:   dist.TopValue,
			})
		}
	}

	if timeCol, ok := timeColumn(rows); ok {
		if first, last, found := timeRange(rows, timeCol); found {
			insights = append(insights, models.Insight{
				Type:   models.InsightTimeRange,
				Column: timeCol,
				Data:   map[string]string{"from": first, "to": last},
			})
		}
	}

	insights = append(insights, models.Insight{
		Type: models.InsightDataCompleteness,
		Data: completeness(rows),
	})

	return insights
}

func summarize(values []float64) models.NumericSummary {
	n := len(values)
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	summary := models.NumericSummary{
		Mean:   mean,
		Median: percentile(sorted, 0.5),
		Min:    sorted[0],
		Max:    sorted[n-1],
		Sum:    sum,
		Count:  n,
	}

	// Population standard deviation, defined only for two or more samples.
	if n >= 2 {
		variance := 0.0
		for _, v := range sorted {
			variance += (v - mean) * (v - mean)
		}
		summary.StdDev = math.Sqrt(variance / float64(n))
	}

	if n >= 3 {
		summary.Q1 = percentile(sorted, 0.25)
		summary.Q3 = percentile(sorted, 0.75)
		summary.IQR = summary.Q3 - summary.Q1
		summary.Mode = mode(sorted)
	}

	return summary
}

func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func mode(sorted []float64) float64 {
	best := sorted[0]
	bestCount, runCount := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			runCount++
		} else {
			runCount = 1
		}
		if runCount > bestCount {
			bestCount = runCount
			best = sorted[i]
		}
	}
	return best
}

// correlations computes Pearson r for every numeric column pair over rows
// where both values are numeric, requiring more than two such pairs.
func (s *AnalyticsService) correlations(rows []models.Row, numericCols []string) []models.CorrelationPair {
	var pairs []models.CorrelationPair
	for i := 0; i < len(numericCols); i++ {
		for j := i + 1; j < len(numericCols); j++ {
			r, n, ok := Correlation(rows, numericCols[i], numericCols[j])
			if !ok {
				continue
			}
			pairs = append(pairs, models.CorrelationPair{
				ColumnA:  numericCols[i],
				ColumnB:  numericCols[j],
				R:        r,
				Strength: correlationStrength(r),
				Pairs:    n,
			})
		}
	}
	return pairs
}

// Correlation computes the Pearson sample correlation between two columns
// over rows where both values are numeric. It is symmetric in its column
// arguments. ok is false when fewer than three pairs exist or either column
// has zero variance.
func Correlation(rows []models.Row, colA, colB string) (r float64, n int, ok bool) {
	var xs, ys []float64
	for _, row := range rows {
		x, okX := numericValue(row[colA])
		y, okY := numericValue(row[colB])
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}

	n = len(xs)
	if n <= 2 {
		return 0, n, false
	}

	meanX, meanY := 0.0, 0.0
	for i := 0; i < n; i++ {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, n, false
	}
	return cov / math.Sqrt(varX*varY), n, true
}

// DetectOutliersZScore flags values whose z-score magnitude exceeds the
// threshold. Each value is scored against the mean and spread of the OTHER
// values, so a single extreme point cannot hide by inflating the deviation
// it is measured with. Fewer than four samples, or zero spread, yields no
// outliers with every value reported as normal.
func (s *AnalyticsService) DetectOutliersZScore(values []float64, threshold float64) models.OutlierReport {
	report := models.OutlierReport{Method: "zscore", Outliers: []models.Outlier{}, Normal: values}
	if len(values) < minOutlierSamples {
		return report
	}

	var outliers []models.Outlier
	var normal []float64
	for i, v := range values {
		mean, stdDev := meanStdExcluding(values, i)
		if stdDev == 0 {
			normal = append(normal, v)
			continue
		}
		z := (v - mean) / stdDev
		if math.Abs(z) > threshold {
			outliers = append(outliers, models.Outlier{RowIndex: i, Value: v, Score: z})
		} else {
			normal = append(normal, v)
		}
	}
	if len(outliers) == 0 {
		return report
	}
	report.Outliers = outliers
	report.Normal = normal
	return report
}

// meanStdExcluding computes the mean and population standard deviation of
// values with the element at index skip left out.
func meanStdExcluding(values []float64, skip int) (float64, float64) {
	n := len(values) - 1
	if n < 1 {
		return 0, 0
	}

	mean := 0.0
	for i, v := range values {
		if i != skip {
			mean += v
		}
	}
	mean /= float64(n)

	variance := 0.0
	for i, v := range values {
		if i != skip {
			variance += (v - mean) * (v - mean)
		}
	}
	return mean, math.Sqrt(variance / float64(n))
}

// DetectOutliersMAD flags values by median absolute deviation. A zero MAD,
// or fewer than four samples, yields no outliers.
func (s *AnalyticsService) DetectOutliersMAD(values []float64, threshold float64) models.OutlierReport {
	report := models.OutlierReport{Method: "mad", Outliers: []models.Outlier{}, Normal: values}
	if len(values) < minOutlierSamples {
		return report
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	median := percentile(sorted, 0.5)

	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - median)
	}
	sort.Float64s(deviations)
	mad := percentile(deviations, 0.5)
	if mad == 0 {
		return report
	}

	var outliers []models.Outlier
	var normal []float64
	for i, v := range values {
		score := math.Abs(v-median) / mad
		if score > threshold {
			outliers = append(outliers, models.Outlier{RowIndex: i, Value: v, Score: score})
		} else {
			normal = append(normal, v)
		}
	}
	if len(outliers) == 0 {
		return report
	}
	report.Outliers = outliers
	report.Normal = normal
	return report
}

// DetectTrend sorts rows by the time column, fits value-vs-index linear
// regression, and classifies the slope. Nil when fewer than three points
// carry both a time and a numeric value.
func (s *AnalyticsService) DetectTrend(rows []models.Row, timeCol, valueCol string) *models.TrendReport {
	type point struct {
		t time.Time
		v float64
	}
	var points []point
	for _, row := range rows {
		t, okT := timeValue(row[timeCol])
		v, okV := numericValue(row[valueCol])
		if okT && okV {
			points = append(points, point{t: t, v: v})
		}
	}
	if len(points) < 3 {
		return nil
	}

	sort.Slice(points, func(i, j int) bool { return points[i].t.Before(points[j].t) })

	n := float64(len(points))
	var sumX, sumY, sumXY, sumXX float64
	for i, p := range points {
		x := float64(i)
		sumX += x
		sumY += p.v
		sumXY += x * p.v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return nil
	}
	slope := (n*sumXY - sumX*sumY) / denom

	first, last := points[0].v, points[len(points)-1].v
	var percentChange float64
	switch {
	case first != 0:
		percentChange = (last - first) / math.Abs(first) * 100
	case last != 0:
		percentChange = 100
	}

	return &models.TrendReport{
		TimeColumn:    timeCol,
		ValueColumn:   valueCol,
		Slope:         slope,
		Direction:     classifySlope(slope, percentChange),
		PercentChange: percentChange,
		Points:        len(points),
	}
}

func classifySlope(slope, percentChange float64) models.TrendDirection {
	if math.Abs(slope) < 0.01 {
		return models.TrendStable
	}
	strong := math.Abs(percentChange) >= 50
	if slope > 0 {
		if strong {
			return models.TrendStrongIncrease
		}
		return models.TrendSlightIncrease
	}
	if strong {
		return models.TrendStrongDecrease
	}
	return models.TrendSlightDecrease
}

// numericColumns finds columns where the majority of sampled non-null values
// are numbers or numeric strings.
func numericColumns(rows []models.Row) []string {
	var cols []string
	for _, col := range columnNames(rows) {
		numeric, total := 0, 0
		for _, row := range rows {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			total++
			if _, isNum := numericValue(v); isNum {
				numeric++
			}
		}
		if total > 0 && numeric*2 > total {
			cols = append(cols, col)
		}
	}
	return cols
}

func categoricalColumns(rows []models.Row) []string {
	numeric := make(map[string]bool)
	for _, col := range numericColumns(rows) {
		numeric[col] = true
	}

	var cols []string
	for _, col := range columnNames(rows) {
		if numeric[col] {
			continue
		}
		lower := strings.ToLower(col)
		if lower == "id" || strings.HasSuffix(lower, "_id") {
			continue
		}
		if isLowCardinality(rows, col) {
			cols = append(cols, col)
		}
	}
	return cols
}

func distribution(rows []models.Row, column string) models.CategoricalDistribution {
	counts := make(map[string]int)
	for _, row := range rows {
		v := row[column]
		if v == nil {
			continue
		}
		counts[fmt.Sprint(v)]++
	}

	dist := models.CategoricalDistribution{Counts: counts, DistinctCount: len(counts)}
	for value, count := range counts {
		if count > dist.TopCount || (count == dist.TopCount && value < dist.TopValue) {
			dist.TopValue = value
			dist.TopCount = count
		}
	}
	return dist
}

func completeness(rows []models.Row) map[string]float64 {
	result := make(map[string]float64)
	if len(rows) == 0 {
		return result
	}
	for _, col := range columnNames(rows) {
		present := 0
		for _, row := range rows {
			if v, ok := row[col]; ok && v != nil {
				present++
			}
		}
		result[col] = float64(present) / float64(len(rows))
	}
	return result
}

func timeColumn(rows []models.Row) (string, bool) {
	for _, col := range columnNames(rows) {
		lower := strings.ToLower(col)
		if strings.Contains(lower, "date") || strings.Contains(lower, "time") ||
			strings.HasSuffix(lower, "_at") || lower == "created" || lower == "updated" {
			for _, row := range rows {
				if _, ok := timeValue(row[col]); ok {
					return col, true
				}
			}
		}
	}
	return "", false
}

func timeRange(rows []models.Row, column string) (first, last string, ok bool) {
	var min, max time.Time
	for _, row := range rows {
		t, valid := timeValue(row[column])
		if !valid {
			continue
		}
		if min.IsZero() || t.Before(min) {
			min = t
		}
		if max.IsZero() || t.After(max) {
			max = t
		}
	}
	if min.IsZero() {
		return "", "", false
	}
	return min.Format(time.RFC3339), max.Format(time.RFC3339), true
}

func numericValue(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case string:
		return ParseNumeric(val)
	default:
		return 0, false
	}
}

// numericValues extracts every numeric value of a column, preserving row order.
func numericValues(rows []models.Row, column string) []float64 {
	var values []float64
	for _, row := range rows {
		if f, ok := numericValue(row[column]); ok {
			values = append(values, f)
		}
	}
	return values
}

func timeValue(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
