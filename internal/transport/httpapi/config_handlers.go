package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/usecase"
)

func (s *Server) configStatus(c *gin.Context) {
	status, err := s.svc.Configuration.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, status, "")
}

func (s *Server) getLLM(c *gin.Context) {
	settings, err := s.svc.Configuration.LLM(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, settings, "")
}

func (s *Server) updateLLM(c *gin.Context) {
	var req usecase.LLMUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	settings, err := s.svc.Configuration.UpdateLLM(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, settings, "llm settings saved")
}

func (s *Server) testLLM(c *gin.Context) {
	connected := s.svc.Configuration.TestLLM(c.Request.Context())
	message := "connection succeeded"
	if !connected {
		message = "connection failed"
	}
	respond(c, http.StatusOK, gin.H{"connected": connected}, message)
}

func (s *Server) getInterests(c *gin.Context) {
	interests, err := s.svc.Configuration.Interests(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, interests, "")
}

type interestsRequest struct {
	Interests string `json:"interests"`
}

func (s *Server) updateInterests(c *gin.Context) {
	var req interestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	interests, err := s.svc.Configuration.UpdateInterests(c.Request.Context(), req.Interests)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, interests, "interests saved")
}

func (s *Server) getCategories(c *gin.Context) {
	selected, err := s.svc.Configuration.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"catalog":  domain.Catalog(),
		"selected": selected,
	}, "")
}

type categoriesRequest struct {
	Categories []string `json:"categories"`
}

func (s *Server) updateCategories(c *gin.Context) {
	var req categoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	selected, err := s.svc.Configuration.UpdateCategories(c.Request.Context(), req.Categories)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"selected": selected}, "categories saved")
}

func (s *Server) getFavoriteSummary(c *gin.Context) {
	summary, err := s.svc.Configuration.FavoriteSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"summary": summary}, "")
}

type summaryRequest struct {
	Summary string `json:"summary"`
}

func (s *Server) updateFavoriteSummary(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := s.svc.Configuration.UpdateFavoriteSummary(c.Request.Context(), req.Summary); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "summary saved")
}

func (s *Server) refreshFavoriteSummary(c *gin.Context) {
	result, err := s.svc.Aggregator.Fold(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result, "")
}
