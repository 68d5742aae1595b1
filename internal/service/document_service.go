package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/finboard/backend/internal/auth"
	"github.com/finboard/backend/internal/model"
	"github.com/finboard/backend/internal/store"
)

// maxUploadBytes bounds a single document upload.
const maxUploadBytes = 20 << 20

func (s *FinanceService) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	docs, err := s.store.ListDocuments(r.Context(), claims.UID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list documents: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// handleUploadDocument stores the file bytes first, then the metadata record.
// If the metadata write fails the stored object is removed, so a document
// record never exists without its file.
func (s *FinanceService) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if s.storageBucket == nil {
		writeError(w, http.StatusServiceUnavailable, "storage service is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}
	category := model.Category(r.FormValue("category"))
	if category == "" {
		category = model.CategoryDocuments
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	if ext == "" {
		ext = "bin"
	}

	docID := uuid.New().String()
	objectPath := fmt.Sprintf("documents/%s/%s.%s", claims.UID, docID, ext)

	writer := s.storageBucket.Object(objectPath).NewWriter(r.Context())
	writer.ContentType = header.Header.Get("Content-Type")
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store file: %v", err))
		return
	}
	// Durability is only guaranteed once Close returns.
	if err := writer.Close(); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store file: %v", err))
		return
	}

	doc := &model.Document{
		ID:          docID,
		UserID:      claims.UID,
		Name:        name,
		Type:        strings.ToUpper(ext),
		Category:    category,
		UploadDate:  s.now().Format(dateLayout),
		Size:        sizeLabel(len(data)),
		FileURL:     fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, objectPath),
		StoragePath: objectPath,
	}
	if ext == "pdf" {
		doc.PageCount = countPDFPages(data)
	}

	if err := s.store.CreateDocument(r.Context(), doc); err != nil {
		// Roll the object back so no orphaned file survives a failed
		// metadata write.
		if delErr := s.storageBucket.Object(objectPath).Delete(r.Context()); delErr != nil {
			log.Printf("[Documents] Failed to clean up object %s after metadata failure: %v", objectPath, delErr)
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save document: %v", err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"document": doc})
}

func (s *FinanceService) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	doc, err := s.store.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load document: %v", err))
		return
	}
	if doc.UserID != claims.UID {
		writeError(w, http.StatusForbidden, "cannot delete another user's document")
		return
	}

	if err := s.store.DeleteDocument(r.Context(), doc.ID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete document: %v", err))
		return
	}

	// File removal comes after the metadata delete. A leftover object is an
	// orphan to be swept later, not a dangling record.
	s.deleteObject(r.Context(), doc.StoragePath)

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *FinanceService) deleteObject(ctx context.Context, objectPath string) {
	if s.storageBucket == nil || objectPath == "" {
		return
	}
	if err := s.storageBucket.Object(objectPath).Delete(ctx); err != nil {
		log.Printf("[Documents] Failed to delete object %s: %v", objectPath, err)
	}
}

// countPDFPages reads the page count, returning at least 1. Wrapped in
// recover because the pdf library panics on some malformed files.
func countPDFPages(data []byte) (n int) {
	n = 1
	defer func() {
		recover()
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 1
	}
	if pages := reader.NumPage(); pages > 1 {
		n = pages
	}
	return n
}

// sizeLabel renders a byte count the way the dashboard displays it.
func sizeLabel(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
