package api

import (
	"net/http"

	"github.com/chambrid/xtream-desk/pkg/profile"
	"github.com/chambrid/xtream-desk/pkg/xtream"
)

// handleListProfiles handles profile listing requests
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backend.GetProfileAccounts(r.Context()))
}

// handleSaveProfile creates or replaces a profile. A body without an id gets
// a generated one and a createdAt stamp; the stored profile is echoed back so
// the caller learns the id.
func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var p xtream.ProfileAccount
	if !s.decodeBody(w, r, &p) {
		return
	}

	if p.ID == "" {
		generated := profile.NewProfile(p.Name, p.Config, s.now())
		p.ID = generated.ID
		if p.CreatedAt == "" {
			p.CreatedAt = generated.CreatedAt
		}
	}

	resp := s.backend.SaveProfileAccount(r.Context(), p)
	if !resp.Success {
		s.writeJSON(w, http.StatusOK, xtream.Fail[xtream.ProfileAccount](resp.ErrorMessage()))
		return
	}
	s.writeJSON(w, http.StatusOK, xtream.Ok(p))
}

// handleGetProfile handles individual profile retrieval requests
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.backend.Profiles().Get(r.Context(), r.PathValue("id"))
	if err != nil {
		status := http.StatusOK
		if profile.IsNotFound(err) {
			status = http.StatusNotFound
		}
		s.writeJSON(w, status, xtream.Fail[xtream.ProfileAccount](profile.Message(err)))
		return
	}
	s.writeJSON(w, http.StatusOK, xtream.Ok(p))
}

// handleDeleteProfile handles profile deletion requests. Unknown ids succeed.
func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backend.DeleteProfileAccount(r.Context(), r.PathValue("id")))
}

func (s *Server) handleActivateProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Profiles().Activate(r.Context(), r.PathValue("id"), s.now()); err != nil {
		status := http.StatusOK
		if profile.IsNotFound(err) {
			status = http.StatusNotFound
		}
		s.writeJSON(w, status, xtream.Fail[xtream.Unit](profile.Message(err)))
		return
	}
	s.writeJSON(w, http.StatusOK, xtream.OkUnit())
}

func (s *Server) handleTestProfile(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backend.TestProfileConnection(r.Context(), r.PathValue("id")))
}
