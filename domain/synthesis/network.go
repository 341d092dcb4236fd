package synthesis

// Contrast groups the study-level effects that directly compare two treatments.
// Effects are oriented Treatment vs Comparator.
type Contrast struct {
	Treatment  string       `json:"treatment"`
	Comparator string       `json:"comparator"`
	Effects    []EffectSize `json:"effects"`
}

// TreatmentNode is one treatment in the comparison network
type TreatmentNode struct {
	Treatment    string `json:"treatment"`
	Comparisons  int    `json:"comparisons"` // number of distinct edges touching the node
	Studies      int    `json:"studies"`     // total studies contributing to those edges
	Disconnected bool   `json:"disconnected,omitempty"`
}

// ComparisonEdge is one direct comparison, weighted by contributing studies.
// Estimate/SE are the pooled direct contrast on the analysis scale.
type ComparisonEdge struct {
	Treatment  string  `json:"treatment"`
	Comparator string  `json:"comparator"`
	Studies    int     `json:"studies"`
	Estimate   float64 `json:"estimate"`
	SE         float64 `json:"se"`
}

// NetworkShape classifies the comparison topology
type NetworkShape string

const (
	ShapeStar          NetworkShape = "star"           // all comparisons share one hub
	ShapeWellConnected NetworkShape = "well_connected" // at least one closed loop
	ShapeSparse        NetworkShape = "sparse"         // connected tree, no hub, no loops
)

// NetworkGeometry describes the comparison graph for a set of contrasts
type NetworkGeometry struct {
	Nodes     []TreatmentNode  `json:"nodes"`
	Edges     []ComparisonEdge `json:"edges"`
	Shape     NetworkShape     `json:"shape"`
	Hub       string           `json:"hub,omitempty"` // set when Shape == star
	Connected bool             `json:"connected"`
}

// LoopInconsistency is the direct-vs-indirect divergence around one closed loop
type LoopInconsistency struct {
	Treatments []string `json:"treatments"` // loop members in traversal order
	Factor     float64  `json:"factor"`     // direct minus loop-derived indirect, analysis scale
	Variance   float64  `json:"variance"`   // sum of variances along the loop
	Z          float64  `json:"z"`
	PValue     float64  `json:"p_value"`
}

// NodeSplitResult re-estimates one contrast from direct and indirect evidence
type NodeSplitResult struct {
	Treatment  string  `json:"treatment"`
	Comparator string  `json:"comparator"`
	Direct     float64 `json:"direct"`      // analysis scale
	DirectSE   float64 `json:"direct_se"`
	Indirect   float64 `json:"indirect"`
	IndirectSE float64 `json:"indirect_se"`
	Difference float64 `json:"difference"`
	PValue     float64 `json:"p_value"`
}

// ConsistencyResult aggregates loop and node-split inconsistency checks
type ConsistencyResult struct {
	Loops        []LoopInconsistency `json:"loops"`
	NodeSplits   []NodeSplitResult   `json:"node_splits"`
	GlobalQ      float64             `json:"global_q"`
	GlobalDF     int                 `json:"global_df"`
	GlobalPValue float64             `json:"global_p_value"`
	Consistent   bool                `json:"consistent"` // global p >= 0.05
}

// RankDirection states whether larger effects are preferable
type RankDirection string

const (
	HigherIsBetter RankDirection = "higher_better"
	LowerIsBetter  RankDirection = "lower_better"
)

// TreatmentRanking holds one treatment's simulated rank profile
type TreatmentRanking struct {
	Treatment string    `json:"treatment"`
	SUCRA     float64   `json:"sucra"`   // percent, in [0, 100]
	PScore    float64   `json:"p_score"` // percent, analytic analog of SUCRA
	MeanRank  float64   `json:"mean_rank"`
	RankProbs []float64 `json:"rank_probs"` // probability of occupying rank r+1
}

// RankingResult is the full treatment ranking for a network
type RankingResult struct {
	Rankings  []TreatmentRanking `json:"rankings"` // best first
	Reference string             `json:"reference"`
	Direction RankDirection      `json:"direction"`
	Draws     int                `json:"draws"`
	Seed      int64              `json:"seed"`
}
