package provider

// defaultThresholds are the verification thresholds DeepFace ships for each
// model and metric.
var defaultThresholds = map[string]map[Metric]float64{
	"VGG-Face":   {MetricCosine: 0.68, MetricEuclidean: 1.17, MetricEuclideanL2: 1.17},
	"Facenet":    {MetricCosine: 0.40, MetricEuclidean: 10, MetricEuclideanL2: 0.80},
	"Facenet512": {MetricCosine: 0.30, MetricEuclidean: 23.56, MetricEuclideanL2: 1.04},
	"ArcFace":    {MetricCosine: 0.68, MetricEuclidean: 4.15, MetricEuclideanL2: 1.13},
	"Dlib":       {MetricCosine: 0.07, MetricEuclidean: 0.6, MetricEuclideanL2: 0.4},
	"SFace":      {MetricCosine: 0.593, MetricEuclidean: 10.734, MetricEuclideanL2: 1.055},
	"OpenFace":   {MetricCosine: 0.10, MetricEuclidean: 0.55, MetricEuclideanL2: 0.55},
	"DeepFace":   {MetricCosine: 0.23, MetricEuclidean: 64, MetricEuclideanL2: 0.64},
	"DeepID":     {MetricCosine: 0.015, MetricEuclidean: 45, MetricEuclideanL2: 0.17},
}

// DefaultThreshold returns the default threshold for a model and metric.
func DefaultThreshold(model string, m Metric) (float64, bool) {
	byMetric, ok := defaultThresholds[model]
	if !ok {
		return 0, false
	}
	t, ok := byMetric[m]
	return t, ok
}

// ResolveThreshold returns override when positive, else the model default.
func ResolveThreshold(model string, m Metric, override float64) (float64, bool) {
	if override > 0 {
		return override, true
	}
	return DefaultThreshold(model, m)
}
