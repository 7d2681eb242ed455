package models

type CameraParams struct {
	Id string `json:"id"`
}

type HistoryParams struct {
	MaxResults *int `json:"maxResults"`
}
