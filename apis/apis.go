package apis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	"github.com/RobertPKyle/proofqr/internal/metrics"
	"github.com/RobertPKyle/proofqr/journal"
	"github.com/RobertPKyle/proofqr/proof"
	"github.com/RobertPKyle/proofqr/qr"
	"github.com/RobertPKyle/proofqr/scans"
	"github.com/RobertPKyle/proofqr/verifier"
)

const defaultAnchorsLimit = 50

// Deps are the services the handlers are wired to. Journal may be nil.
type Deps struct {
	Generator   *proof.Generator
	Verifier    *verifier.Service
	Counter     *scans.Counter
	Renderer    *qr.Renderer
	Journal     journal.Journal
	ExplorerURL string
}

type Options struct {
	Addr         string
	AllowOrigins []string
	EnableDebug  bool
	EnablePprof  bool
}

func Generate(c *gin.Context, generator *proof.Generator, explorer string) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Data == nil {
		abortWithError(c, http.StatusBadRequest, "Data required")
		return
	}

	result, err := generator.Generate(c.Request.Context(), *req.Data)
	if err != nil {
		log.Printf("[%s] Failed to generate QR code: %v", requestID(c), err)
		abortWithError(c, anchorStatus(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		QR:          result.Code.DataURL(),
		SVG:         result.Code.SVG,
		TxHash:      result.TxHash,
		Token:       result.Token.Hex(),
		ExplorerURL: ExplorerLink(explorer, result.TxHash),
	})
}

// TrackScan records a scan the client verified on its own.
func TrackScan(c *gin.Context, counter *scans.Counter) {
	body, err := c.GetRawData()
	if err != nil {
		log.Printf("[%s] Error tracking scan: %v", requestID(c), err)
		abortWithError(c, http.StatusInternalServerError, "Failed to track scan")
		return
	}
	var req TrackScanRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Printf("[%s] Error tracking scan: %v", requestID(c), err)
		abortWithError(c, http.StatusInternalServerError, "Failed to track scan")
		return
	}
	if req.TxHash == "" {
		abortWithError(c, http.StatusBadRequest, "Transaction hash required")
		return
	}

	count := counter.RecordScan(req.TxHash)
	metrics.TrackedCodes.Set(float64(counter.Len()))
	c.JSON(http.StatusOK, ScanCountResponse{ScanCount: count})
}

func GetScanCount(c *gin.Context, counter *scans.Counter) {
	txHash, err := requireQuery(c, "txHash")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Transaction hash required")
		return
	}
	c.JSON(http.StatusOK, ScanCountResponse{ScanCount: counter.Count(txHash)})
}

// DownloadQR renders the code of a transaction hash as a PNG or SVG file.
func DownloadQR(c *gin.Context, renderer *qr.Renderer) {
	txHash := c.Param("txHash")
	code, err := renderer.Render(txHash)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	switch format := c.DefaultQuery("format", "png"); format {
	case "png":
		c.Header("Content-Disposition", `attachment; filename="`+qr.FileName(txHash, "png")+`"`)
		c.Data(http.StatusOK, "image/png", code.PNG)
	case "svg":
		c.Header("Content-Disposition", `attachment; filename="`+qr.FileName(txHash, "svg")+`"`)
		c.Data(http.StatusOK, "image/svg+xml", []byte(code.SVG))
	default:
		abortWithError(c, http.StatusBadRequest, "Unknown format: "+format)
	}
}

func ListAnchors(c *gin.Context, j journal.Journal) {
	if j == nil {
		abortWithError(c, http.StatusNotFound, "Anchor journal disabled")
		return
	}
	limit := defaultAnchorsLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			abortWithError(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	entries, err := j.List(c.Request.Context(), limit)
	if err != nil {
		log.Printf("[%s] Failed to list anchors: %v", requestID(c), err)
		abortWithError(c, http.StatusInternalServerError, "Failed to list anchors")
		return
	}
	c.JSON(http.StatusOK, AnchorsResponse{Anchors: entries})
}

func GetAnchor(c *gin.Context, j journal.Journal) {
	if j == nil {
		abortWithError(c, http.StatusNotFound, "Anchor journal disabled")
		return
	}
	entry, err := j.Get(c.Request.Context(), c.Param("txHash"))
	if errors.Is(err, journal.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, "Anchor not found")
		return
	}
	if err != nil {
		log.Printf("[%s] Failed to read anchor: %v", requestID(c), err)
		abortWithError(c, http.StatusInternalServerError, "Failed to read anchor")
		return
	}
	c.JSON(http.StatusOK, entry)
}

func NewRouter(deps Deps, opts Options) *gin.Engine {
	if !opts.EnableDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(RequestID, metrics.HTTP)

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.AllowOrigins
	}
	corsConfig.ExposeHeaders = []string{RequestIDHeader, "Content-Disposition"}
	r.Use(cors.New(corsConfig))

	if opts.EnablePprof {
		pprof.Register(r)
	}

	r.POST("/generate", func(c *gin.Context) {
		Generate(c, deps.Generator, deps.ExplorerURL)
	})

	r.POST("/track-scan", func(c *gin.Context) {
		TrackScan(c, deps.Counter)
	})

	r.GET("/track-scan", func(c *gin.Context) {
		GetScanCount(c, deps.Counter)
	})

	r.GET("/verify", func(c *gin.Context) {
		Verify(c, deps.Verifier, deps.ExplorerURL)
	})

	r.POST("/verify/image", func(c *gin.Context) {
		VerifyImage(c, deps.Verifier, deps.ExplorerURL)
	})

	r.GET("/qr/:txHash", func(c *gin.Context) {
		DownloadQR(c, deps.Renderer)
	})

	r.GET("/anchors", func(c *gin.Context) {
		ListAnchors(c, deps.Journal)
	})

	r.GET("/anchors/:txHash", func(c *gin.Context) {
		GetAnchor(c, deps.Journal)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
		})
	})

	return r
}

// StartService serves the API until ctx is cancelled, then drains in-flight
// requests for at most shutdownTimeout.
func StartService(ctx context.Context, deps Deps, opts Options, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: NewRouter(deps, opts),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Serving API on %s", opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
