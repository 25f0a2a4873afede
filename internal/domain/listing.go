package domain

// CandidateListing is one raw product record from the shopping-data provider.
// Ephemeral, per-request.
type CandidateListing struct {
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	SourceStore string  `json:"sourceStore"`
	ProductURL  string  `json:"productUrl,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

// MatchReason records how a listing was selected for an (item, store) pair
type MatchReason string

const (
	MatchReasonExact    MatchReason = "exact"
	MatchReasonFuzzy    MatchReason = "fuzzy"
	MatchReasonFallback MatchReason = "fallback"
	MatchReasonNone     MatchReason = "none"
)

// MatchResult is the outcome of match resolution for one (item, store) pair
type MatchResult struct {
	Item         string            `json:"item"`
	StoreName    string            `json:"storeName"`
	Selected     *CandidateListing `json:"selected,omitempty"`
	Score        float64           `json:"score"`
	ConfidenceOK bool              `json:"confidenceOk"`
	Reason       MatchReason       `json:"reason"`
	ExactMatch   bool              `json:"exactMatch"`
}

// MatchRequest is the request contract of the matcher subservice. The
// subservice's internal weighting is opaque; only this shape is depended on.
type MatchRequest struct {
	Query         string             `json:"query"`
	Candidates    []CandidateListing `json:"candidates"`
	Weights       map[string]float64 `json:"weights,omitempty"`
	ConfThreshold float64            `json:"conf_threshold"`
	TieDelta      float64            `json:"tie_delta"`
}

// MatchResponse is the response contract of the matcher subservice
type MatchResponse struct {
	Selected      *CandidateListing  `json:"selected"`
	Score         float64            `json:"score"`
	ConfidenceOK  bool               `json:"confidenceOk"`
	Reason        string             `json:"reason"`
	ExactMatch    bool               `json:"exactMatch"`
	AllCandidates []CandidateListing `json:"allCandidates,omitempty"`
}

// StoreEstimate is a generated per-store price sheet used when no confident
// match exists. All prices carried here are fabricated and must surface as
// estimated downstream.
type StoreEstimate struct {
	Store      string          `json:"store"`
	Address    string          `json:"address,omitempty"`
	Distance   string          `json:"distance,omitempty"`
	Items      []EstimatedItem `json:"items"`
	TotalPrice float64         `json:"totalPrice"`
}

// EstimatedItem is one fabricated item price inside a StoreEstimate
type EstimatedItem struct {
	Item  string  `json:"item"`
	Price float64 `json:"price"`
}
