package types

// Metric names of the fixed comparison set.
const (
	MetricCallsTime      = "calls_time"
	MetricCallVolume     = "call_volume"
	MetricEmailsSent     = "emails_sent"
	MetricEmailsReceived = "emails_received"
	MetricBusinessCards  = "business_cards"
	MetricFlyers         = "flyers"
	MetricB2BEmails      = "b2b_emails"
)

// AllMetrics lists the comparison metrics in display order.
var AllMetrics = []string{
	MetricCallsTime,
	MetricCallVolume,
	MetricEmailsSent,
	MetricEmailsReceived,
	MetricBusinessCards,
	MetricFlyers,
	MetricB2BEmails,
}

// AverageRep is the cross-rep daily mean of every tracked metric.
// Derived data: recomputable at any time from the per-rep stat rows.
type AverageRep struct {
	ReportDate     string  `json:"reportDate"`
	CallsTime      float64 `json:"calls_time"`
	CallVolume     float64 `json:"call_volume"`
	EmailsSent     float64 `json:"emails_sent"`
	EmailsReceived float64 `json:"emails_received"`
	BusinessCards  float64 `json:"business_cards"`
	Flyers         float64 `json:"flyers"`
	B2BEmails      float64 `json:"b2b_emails"`
}

// Metrics returns the row as a metric-name map for comparison payloads.
func (a AverageRep) Metrics() map[string]float64 {
	return map[string]float64{
		MetricCallsTime:      a.CallsTime,
		MetricCallVolume:     a.CallVolume,
		MetricEmailsSent:     a.EmailsSent,
		MetricEmailsReceived: a.EmailsReceived,
		MetricBusinessCards:  a.BusinessCards,
		MetricFlyers:         a.Flyers,
		MetricB2BEmails:      a.B2BEmails,
	}
}

// ZeroMetrics returns a metric map with every comparison metric set to 0.
func ZeroMetrics() map[string]float64 {
	m := make(map[string]float64, len(AllMetrics))
	for _, name := range AllMetrics {
		m[name] = 0
	}
	return m
}

// ComparisonData is the "this rep vs the average rep" payload.
type ComparisonData struct {
	User    map[string]float64 `json:"user"`
	Average map[string]float64 `json:"average"`
}
