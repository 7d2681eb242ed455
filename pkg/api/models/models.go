package models

import "github.com/google/uuid"

const (
	ScannerState         = "scanner.state"
	ScannerResult        = "scanner.result"
	ScannerError         = "scanner.error"
	ScannerCameras       = "scanner.cameras"
	MethodScannerStatus  = "scanner.status"
	MethodScannerCameras = "scanner.cameras"
	MethodScannerStart   = "scanner.start"
	MethodScannerStop    = "scanner.stop"
	MethodScannerSwitch  = "scanner.switch"
	MethodScannerSelect  = "scanner.select"
	MethodHistory        = "history"
	MethodHistoryClear   = "history.clear"
	MethodVersion        = "version"
)

type Notification struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type RequestObject struct {
	JsonRpc string     `json:"jsonrpc"`
	Id      *uuid.UUID `json:"id,omitempty"`
	Method  string     `json:"method"`
	Params  any        `json:"params,omitempty"`
}

type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ResponseObject struct {
	JsonRpc string       `json:"jsonrpc"`
	Id      uuid.UUID    `json:"id"`
	Result  any          `json:"result,omitempty"`
	Error   *ErrorObject `json:"error,omitempty"`
}
