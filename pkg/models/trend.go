package models

// TrendDirection classifies how the overall score is moving.
type TrendDirection string

const (
	TrendImproving TrendDirection = "IMPROVING"
	TrendDeclining TrendDirection = "DECLINING"
	TrendStable    TrendDirection = "STABLE"
)

// TrendReport compares the newest score against the average of the records
// that preceded it. It is advisory output for dashboards and notifications;
// nothing in the scoring pipeline acts on it.
type TrendReport struct {
	// Direction is IMPROVING when the latest score sits more than the
	// stability threshold above the previous average, DECLINING when it
	// sits more than the threshold below, STABLE otherwise.
	Direction TrendDirection `json:"direction"`

	// Delta is latest score minus previous average. Zero when history is
	// too short to compare.
	Delta float64 `json:"delta"`

	// LatestScore is the overall value of the newest record, 0 with no
	// history at all.
	LatestScore int `json:"latest_score"`

	// PreviousAverage is the mean overall of the compared prior records.
	PreviousAverage float64 `json:"previous_average"`

	// SampleSize is how many prior records went into the average. A report
	// with SampleSize 0 carries no comparison, only the latest score.
	SampleSize int `json:"sample_size"`
}
