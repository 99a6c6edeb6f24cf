package domain

import "encoding/json"

// PredictionRequest is forwarded to the role-prediction service.
type PredictionRequest struct {
	NeedStatement string `json:"need_statement"`
	TopN          int    `json:"top_n"`
}

// PredictionResult is returned by the role-prediction service.
// The role list shape belongs to the upstream model and is passed through untouched.
type PredictionResult struct {
	NeedStatement  string          `json:"need_statement"`
	PredictedRoles json.RawMessage `json:"predicted_roles"`
}

// PredictionEntry is one element of the prediction side log.
type PredictionEntry struct {
	ID            string          `json:"id"`
	Timestamp     string          `json:"timestamp"`
	NeedStatement string          `json:"need_statement"`
	Roles         json.RawMessage `json:"roles"`
}
