package domain

// MarkerStyle is the fill/stroke and size of a map marker.
type MarkerStyle struct {
	Color  string  `json:"color"`
	Stroke string  `json:"stroke"`
	Radius float64 `json:"radius"`
}

// Popup is the payload attached to a marker.
type Popup struct {
	Title    string        `json:"title"`
	Ratings  []RatingLabel `json:"ratings"`
	AgeGroup string        `json:"age_group,omitempty"`
	Gender   string        `json:"gender,omitempty"`
	Comment  string        `json:"comment,omitempty"`
	When     string        `json:"when"`
}

// RatingLabel is one rating axis as shown to the user.
type RatingLabel struct {
	Axis  string `json:"axis"`
	Label string `json:"label"`
	Value int    `json:"value"`
	Max   int    `json:"max"`
}

// Marker is a styled point ready for the map widget.
type Marker struct {
	FeatureID string      `json:"feature_id"`
	Point     GeoPoint    `json:"point"`
	Style     MarkerStyle `json:"style"`
	Popup     Popup       `json:"popup"`
}

// LocateAction recenters the map on a feature.
type LocateAction struct {
	Center GeoPoint `json:"center"`
	Zoom   int      `json:"zoom"`
}

// Card is one row of the list view.
type Card struct {
	FeatureID  string        `json:"feature_id"`
	Title      string        `json:"title"`
	Coords     string        `json:"coords"`
	When       string        `json:"when"`
	Ratings    []RatingLabel `json:"ratings"`
	Comment    string        `json:"comment,omitempty"`
	Locate     *LocateAction `json:"locate,omitempty"`
	DeleteID   string        `json:"delete_id"`
	Renderable bool          `json:"renderable"`
}

// AxisStat is the formatted mean of one rating axis.
type AxisStat struct {
	Axis    string `json:"axis"`
	Label   string `json:"label"`
	Average string `json:"average"`
	Samples int    `json:"samples"`
}

// Stats is the aggregate view of a snapshot.
type Stats struct {
	Count int        `json:"count"`
	Axes  []AxisStat `json:"axes"`
}
