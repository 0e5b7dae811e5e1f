package apis

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RobertPKyle/proofqr/qr"
	"github.com/RobertPKyle/proofqr/verifier"
)

const maxImageSize = 10 << 20

func verifyResponse(v verifier.Verdict, explorer string) VerifyResponse {
	return VerifyResponse{
		Status:      v.Status.String(),
		Message:     v.PublicMessage(),
		TxHash:      v.TxHash,
		ScanCount:   v.ScanCount,
		ExplorerURL: ExplorerLink(explorer, v.TxHash),
	}
}

// Verify checks a transaction hash supplied up front, skipping the scan.
func Verify(c *gin.Context, service *verifier.Service, explorer string) {
	txHash, err := requireQuery(c, "txHash")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Transaction hash required")
		return
	}

	verdict := service.Verify(c.Request.Context(), txHash)
	log.Printf("[%s] verify %s: %s (%s)", requestID(c), txHash, verdict.Status, verdict.Reason())
	c.JSON(http.StatusOK, verifyResponse(verdict, explorer))
}

// VerifyImage reads the code out of an uploaded picture and verifies it.
func VerifyImage(c *gin.Context, service *verifier.Service, explorer string) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Image required")
		return
	}
	if fileHeader.Size > maxImageSize {
		abortWithError(c, http.StatusRequestEntityTooLarge, "Image too large")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to read image")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to read image")
		return
	}

	txHash, err := qr.DecodeBytes(data)
	if errors.Is(err, qr.ErrNoCode) {
		abortWithError(c, http.StatusUnprocessableEntity, "No QR code found in image")
		return
	}
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Unsupported image")
		return
	}

	verdict := service.Verify(c.Request.Context(), txHash)
	log.Printf("[%s] verify image %s: %s (%s)", requestID(c), txHash, verdict.Status, verdict.Reason())
	c.JSON(http.StatusOK, verifyResponse(verdict, explorer))
}
