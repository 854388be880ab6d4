package models

// AnalysisRequest is the JSON body accepted by POST /analyze when the
// article is sent as raw text instead of an uploaded file.
type AnalysisRequest struct {
	Text string `json:"text"`
}
