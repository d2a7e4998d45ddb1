package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/jonathan/lightapp/internal/render"
	"github.com/jonathan/lightapp/internal/store"
	"github.com/jonathan/lightapp/internal/types"
)

// excerptRunes caps the listing description derived from app markup.
const excerptRunes = 160

// handleSaveApp persists a finished artifact as a shareable app. The app is
// written to the database and the local backup; losing the backup write is
// tolerated, losing both is an error.
func (s *Server) handleSaveApp(w http.ResponseWriter, r *http.Request) {
	var req types.SaveAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil || req.Code.Empty() {
		s.errorResponse(w, http.StatusBadRequest, "code with at least one payload is required")
		return
	}

	name := req.Name
	if name == "" {
		name = req.Code.DisplayName
	}
	if name == "" {
		name = types.DefaultAppName
	}
	description := req.Description
	if description == "" {
		description = req.Code.Description
	}
	if description == "" {
		description = render.Excerpt(req.Code.Markup, excerptRunes)
	}

	app := &store.App{
		ID:          store.NewAppID(),
		Name:        name,
		Description: description,
		Code:        req.Code,
		Requirement: req.Requirement,
	}

	saved := false
	if s.db != nil {
		if err := s.db.SaveApp(r.Context(), app); err != nil {
			log.Printf("Database save failed for app %s: %v", app.ID, err)
		} else {
			saved = true
		}
	}
	if s.backup != nil {
		if err := s.backup.SaveApp(app); err != nil {
			log.Printf("Local backup save failed for app %s: %v", app.ID, err)
		} else {
			saved = true
		}
	}
	if !saved {
		s.errorResponse(w, http.StatusInternalServerError, "failed to save app")
		return
	}

	s.jsonResponse(w, http.StatusCreated, map[string]string{
		"id":  app.ID,
		"url": "/app/" + app.ID,
	})
}

// handleListApps lists saved apps, newest first.
func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.jsonResponse(w, http.StatusOK, map[string]any{"apps": []store.AppSummary{}})
		return
	}

	apps, err := s.db.ListApps(r.Context(), 0)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"apps": apps})
}

// loadApp fetches an app from the database, falling back to the local
// backup. A backup hit is written back to the database so the next read
// does not need the fallback.
func (s *Server) loadApp(r *http.Request, id string) *store.App {
	if s.db != nil {
		app, err := s.db.GetApp(r.Context(), id)
		if err != nil {
			log.Printf("Database read failed for app %s: %v", id, err)
		} else if app != nil {
			return app
		}
	}

	if s.backup == nil {
		return nil
	}
	app, err := s.backup.LoadApp(id)
	if err != nil || app == nil {
		return nil
	}
	if s.db != nil {
		if err := s.db.SaveApp(r.Context(), app); err != nil {
			log.Printf("Re-sync of app %s from backup failed: %v", id, err)
		}
	}
	return app
}

// handleGetApp returns one saved app with its full code payloads.
func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	app := s.loadApp(r, r.PathValue("id"))
	if app == nil {
		s.errorResponse(w, http.StatusNotFound, "App not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, app)
}

// handleDeleteApp removes a saved app from the database.
func (s *Server) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Database not configured")
		return
	}
	if err := s.db.DeleteApp(r.Context(), r.PathValue("id")); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleListFeatured lists apps promoted to the featured gallery.
func (s *Server) handleListFeatured(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.jsonResponse(w, http.StatusOK, map[string]any{"apps": []store.FeaturedApp{}})
		return
	}

	apps, err := s.db.ListFeatured(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"apps": apps})
}

// handleFeatureApp promotes a saved app into the featured gallery.
func (s *Server) handleFeatureApp(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Database not configured")
		return
	}

	var req types.FeatureAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := s.db.FeatureApp(r.Context(), req.ID, req.Category, req.Tags, req.Order); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "featured"})
}

// handleUnfeatureApp removes an app from the featured gallery.
func (s *Server) handleUnfeatureApp(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Database not configured")
		return
	}

	var req types.FeatureAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := s.db.UnfeatureApp(r.Context(), req.ID); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "unfeatured"})
}

// handleGetImage serves a stored generated image. Images are immutable once
// written, so the cache header is long-lived.
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorResponse(w, http.StatusNotFound, "Image not found")
		return
	}

	img, err := s.db.GetImage(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if img == nil {
		s.errorResponse(w, http.StatusNotFound, "Image not found")
		return
	}

	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img.Data); err != nil {
		log.Printf("Error writing image %s: %v", img.ID, err)
	}
}

// handleAppPage serves the standalone PWA page for a saved app.
func (s *Server) handleAppPage(w http.ResponseWriter, r *http.Request) {
	app := s.loadApp(r, r.PathValue("id"))
	if app == nil {
		http.NotFound(w, r)
		return
	}

	data := render.NewPageData(app.ID, app.Name, app.Description, app.Code)
	data.IncludePhaser = app.Requirement.IsGame()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.WritePage(w, data); err != nil {
		log.Printf("Error rendering page for app %s: %v", app.ID, err)
	}
}

// handleAppManifest serves the PWA manifest for a saved app.
func (s *Server) handleAppManifest(w http.ResponseWriter, r *http.Request) {
	app := s.loadApp(r, r.PathValue("id"))
	if app == nil {
		s.errorResponse(w, http.StatusNotFound, "App not found")
		return
	}

	w.Header().Set("Content-Type", "application/manifest+json")
	s.jsonResponse(w, http.StatusOK, render.NewManifest(app.ID, app.Name, app.Description))
}
