package models

import (
	"time"

	"github.com/google/uuid"
)

type CameraResponse struct {
	Id       string `json:"id"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

type CamerasResponse struct {
	Cameras []CameraResponse `json:"cameras"`
}

type ScanResultResponse struct {
	Text     string    `json:"text"`
	Device   string    `json:"device"`
	ScanTime time.Time `json:"scanTime"`
	Accepted bool      `json:"accepted"`
}

type StatusResponse struct {
	State          string              `json:"state"`
	Mode           string              `json:"mode"`
	IsScanning     bool                `json:"isScanning"`
	Switching      bool                `json:"switching"`
	Error          *string             `json:"error"`
	SelectedCamera *string             `json:"selectedCamera"`
	Cameras        []CameraResponse    `json:"cameras"`
	LastResult     *ScanResultResponse `json:"lastResult,omitempty"`
}

type HistoryResponseEntry struct {
	Id       uuid.UUID `json:"id" csv:"id"`
	Time     time.Time `json:"time" csv:"time"`
	Device   string    `json:"device" csv:"device"`
	Text     string    `json:"text" csv:"text"`
	Accepted bool      `json:"accepted" csv:"accepted"`
}

type HistoryResponse struct {
	Entries []HistoryResponseEntry `json:"entries"`
}

type VersionResponse struct {
	Version string `json:"version"`
}
