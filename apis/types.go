package apis

import (
	"github.com/RobertPKyle/proofqr/journal"
)

type GenerateRequest struct {
	// Data is a pointer so an absent field can be told apart from "".
	Data *string `json:"data"`
}

type GenerateResponse struct {
	QR          string `json:"qr"`
	SVG         string `json:"svg"`
	TxHash      string `json:"txHash"`
	Token       string `json:"token"`
	ExplorerURL string `json:"explorerURL"`
}

type TrackScanRequest struct {
	TxHash string `json:"txHash"`
}

type ScanCountResponse struct {
	ScanCount int64 `json:"scanCount"`
}

type VerifyResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	TxHash      string `json:"txHash"`
	ScanCount   int64  `json:"scanCount"`
	ExplorerURL string `json:"explorerURL,omitempty"`
}

type AnchorsResponse struct {
	Anchors []journal.Entry `json:"anchors"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
