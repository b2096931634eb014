// Package server exposes the detection and training services over HTTP.
//
// Endpoints:
//
//	POST /api/detect              multipart "image" field; returns ranked matches
//	POST /api/training/upload     multipart "product_id" + "images" files
//	POST /api/training/train/{id} aggregates a product's model
//	POST /api/products            create a catalog product
//	GET  /api/products            list catalog products
//	GET  /health                  liveness check
//
// Every response is a JSON object with a "success" flag; failures carry
// an "error" message. Client mistakes (missing file, unknown product,
// too few training images) map to 400, processing failures to 500.
// Detection with zero confident candidates is not a failure: it returns
// success with an empty match list.
package server
