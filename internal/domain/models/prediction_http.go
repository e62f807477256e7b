package models

// Requests and responses of the prediction HTTP endpoints.

// PredictionRequest carries raw feature values as decoded from JSON. Values
// may be numbers or numeric strings; conversion happens in the predictor.
type PredictionRequest struct {
	Asset     string      `json:"asset"`
	Open      interface{} `json:"open"`
	High      interface{} `json:"high"`
	Low       interface{} `json:"low"`
	Volume    interface{} `json:"volume"`
	MarketCap interface{} `json:"marketCap"`
}

type PredictResponse struct {
	PredictedClosingPrice float64 `json:"predicted_closing_price"`
}

type AssetsRequest struct {
	Sort string `query:"sort" json:"sort" default:"asset" validate:"oneof=asset r2 rmse mae"`
}

type AssetRequest struct {
	Asset string `param:"asset" json:"asset" validate:"required,max=64,asset"`
}
