package models

// GeopoliticalEntities groups the entities the model extracted from an
// article. All four lists are always present in a response, possibly empty.
type GeopoliticalEntities struct {
	Countries     []string `json:"countries"`
	Nationalities []string `json:"nationalities"`
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
}

// AnalysisResponse is the structure for the response of POST /analyze.
type AnalysisResponse struct {
	Summary              string               `json:"summary"`
	GeopoliticalEntities GeopoliticalEntities `json:"geopolitical_entities"`
}

// ErrorResponse is the body returned for every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
