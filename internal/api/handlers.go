// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/ffutop/savestate/internal/slots"
	"github.com/ffutop/savestate/save"
)

const maxLabelBody = 4 << 10

type labelRequest struct {
	Label string `json:"label"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// slotKey reads the route variables; the route patterns only admit digits.
func slotKey(r *http.Request) (save.SlotKey, error) {
	vars := mux.Vars(r)
	profile, err := strconv.Atoi(vars["profile"])
	if err != nil {
		return save.SlotKey{}, err
	}
	key := save.SlotKey{ProfileID: profile}
	if v, ok := vars["slot"]; ok {
		if key.SlotID, err = strconv.Atoi(v); err != nil {
			return save.SlotKey{}, err
		}
	}
	return key, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	key, err := slotKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	refs, err := s.directory.Refresh(r.Context(), key.ProfileID)
	if err != nil {
		s.logger.Error("Failed to list slots", "profile", key.ProfileID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list slots")
		return
	}
	if refs == nil {
		refs = []save.SlotRef{}
	}
	writeJSON(w, http.StatusOK, refs)
}

func (s *Server) handleHeader(w http.ResponseWriter, r *http.Request) {
	key, err := slotKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	raw, ok, err := s.backend.Read(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read slot")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "slot not found")
		return
	}
	s.metrics.ObservePayload(len(raw))
	h, err := s.codec.ExtractMainData(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	key, err := slotKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	img, ok, err := s.directory.Screenshot(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read screenshot")
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(img)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	key, err := slotKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLabelBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed or too large")
		return
	}
	var req labelRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Label == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"label\": \"...\"}")
		return
	}

	err = s.directory.Rename(r.Context(), key, req.Label)
	switch {
	case errors.Is(err, slots.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot not found")
		return
	case err != nil:
		s.logger.Error("Failed to rename slot", "slot", key.SlotID, "profile", key.ProfileID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to rename slot")
		return
	}
	ref, _, err := s.directory.Lookup(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read slot")
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key, err := slotKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.directory.Delete(r.Context(), key); err != nil {
		s.logger.Error("Failed to delete slot", "slot", key.SlotID, "profile", key.ProfileID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to delete slot")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
