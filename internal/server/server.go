package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/ironsheep/product-vision/internal/detection"
)

// Catalog is the slice of product persistence the HTTP API needs beyond
// the detection services.
type Catalog interface {
	CreateProduct(ctx context.Context, p *detection.ProductSummary) error
	Products(ctx context.Context) ([]detection.ProductSummary, error)
}

// Server routes HTTP requests to the detection and training services.
type Server struct {
	detector       *detection.Detector
	trainer        *detection.Trainer
	catalog        Catalog
	maxUploadBytes int64
	mux            *http.ServeMux
}

// New wires a Server over its collaborators. maxUploadBytes caps the
// in-memory portion of multipart parsing; zero selects 50 MiB.
func New(detector *detection.Detector, trainer *detection.Trainer, catalog Catalog, maxUploadBytes int64) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 << 20
	}

	s := &Server{
		detector:       detector,
		trainer:        trainer,
		catalog:        catalog,
		maxUploadBytes: maxUploadBytes,
		mux:            http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/detect", s.handleDetect)
	s.mux.HandleFunc("POST /api/training/upload", s.handleTrainingUpload)
	s.mux.HandleFunc("POST /api/training/train/{productID}", s.handleTrain)
	s.mux.HandleFunc("POST /api/products", s.handleCreateProduct)
	s.mux.HandleFunc("GET /api/products", s.handleListProducts)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  "ok",
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
