package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/ironsheep/product-vision/internal/detection"
	"github.com/ironsheep/product-vision/internal/features"
	"github.com/ironsheep/product-vision/internal/store"
)

// handleDetect runs product matching for a single uploaded query image.
// The query bytes are held in memory only; nothing is persisted.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer cleanupMultipart(r)

	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no image file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image file")
		return
	}

	result, err := s.detector.Detect(r.Context(), data)
	if err != nil {
		var extractErr *features.ExtractionError
		if errors.As(err, &extractErr) {
			respondError(w, http.StatusInternalServerError, extractErr.Error())
			return
		}
		log.Printf("[HTTP] detect failed: %v", err)
		respondError(w, http.StatusInternalServerError, "detection failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"matches":        result.Matches,
		"query_features": result.Query,
	})
}

// handleTrainingUpload files one or more training images under a
// product.
func (s *Server) handleTrainingUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer cleanupMultipart(r)

	productID, err := strconv.ParseInt(r.FormValue("product_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing or invalid product_id")
		return
	}

	fileHeaders := r.MultipartForm.File["images"]
	if len(fileHeaders) == 0 {
		respondError(w, http.StatusBadRequest, "no image files uploaded")
		return
	}

	uploads := make([]detection.Upload, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		data, err := readUpload(header)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to read %s", header.Filename))
			return
		}
		uploads = append(uploads, detection.Upload{Filename: header.Filename, Data: data})
	}

	report, err := s.trainer.AddTrainingImages(r.Context(), productID, uploads)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("product %d not found", productID))
			return
		}
		log.Printf("[HTTP] training upload failed: %v", err)
		respondError(w, http.StatusInternalServerError, "training upload failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"product_id":  report.ProductID,
		"results":     report.Results,
		"accepted":    report.Accepted,
		"image_count": report.ImageCount,
	})
}

// handleTrain aggregates a product's model from its stored records.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	model, err := s.trainer.Train(r.Context(), productID)
	if err != nil {
		var insufficient *detection.InsufficientDataError
		switch {
		case errors.As(err, &insufficient):
			respondError(w, http.StatusBadRequest, insufficient.Error())
		case errors.Is(err, store.ErrNotFound):
			respondError(w, http.StatusBadRequest, fmt.Sprintf("product %d not found", productID))
		default:
			log.Printf("[HTTP] training failed for product %d: %v", productID, err)
			respondError(w, http.StatusInternalServerError, "training failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":               true,
		"product_id":            model.ProductID,
		"status":                model.Status,
		"accuracy":              model.Accuracy,
		"training_images_count": model.Model.TrainingImagesCount,
		"trained_at":            model.TrainedAt,
	})
}

// handleCreateProduct adds a catalog product.
func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name      string  `json:"name"`
		Stock     int     `json:"stock"`
		Price     float64 `json:"price"`
		ImagePath string  `json:"image_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	product := &detection.ProductSummary{
		Name:      payload.Name,
		Stock:     payload.Stock,
		Price:     payload.Price,
		ImagePath: payload.ImagePath,
	}
	if err := s.catalog.CreateProduct(r.Context(), product); err != nil {
		log.Printf("[HTTP] creating product failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"product": product,
	})
}

// handleListProducts lists catalog products.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.Products(r.Context())
	if err != nil {
		log.Printf("[HTTP] listing products failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []detection.ProductSummary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"products": products,
	})
}

// readUpload reads one multipart file fully, closing it on every path.
func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// cleanupMultipart removes any temp files the multipart parser spilled
// to disk.
func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Printf("Warning: cleaning up multipart temp files: %v", err)
		}
	}
}
