package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clinical-interview-sim/internal/domain"
	"github.com/clinical-interview-sim/internal/service"
)

type startCaseBody struct {
	PatientAge    int      `json:"patient_age"`
	PatientGender string   `json:"patient_gender"`
	Differential  []string `json:"differential"`
	Seed          *uint64  `json:"seed"`
}

type askBody struct {
	Question string `json:"question"`
}

func (s *Server) handleStartCase(c *gin.Context) {
	var body startCaseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, domain.NewValidationError("body", err.Error(), nil))
		return
	}
	if body.PatientGender != "" && domain.ParseGender(body.PatientGender) == domain.GenderUnknown {
		s.writeError(c, domain.NewValidationError("patient_gender", "must be M or F", body.PatientGender))
		return
	}

	result, err := s.interview.StartCase(c.Request.Context(), service.StartCaseRequest{
		PatientAge:    body.PatientAge,
		PatientGender: domain.ParseGender(body.PatientGender),
		Differential:  body.Differential,
		Seed:          body.Seed,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleFamilyTree(c *gin.Context) {
	graph, err := s.interview.FamilyTree(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

func (s *Server) handleAsk(c *gin.Context) {
	var body askBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, domain.NewValidationError("question", err.Error(), nil))
		return
	}
	result, err := s.interview.Ask(c.Request.Context(), c.Param("id"), body.Question)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleReset(c *gin.Context) {
	if err := s.interview.Reset(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": c.Param("id"), "stage": domain.StageFresh})
}

func (s *Server) handleScore(c *gin.Context) {
	report, err := s.interview.Score(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleEndCase(c *gin.Context) {
	report, err := s.interview.EndCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleListConditions(c *gin.Context) {
	conditions := s.interview.Catalogs().Conditions.All()
	c.JSON(http.StatusOK, gin.H{"count": len(conditions), "conditions": conditions})
}

func (s *Server) handleListQuestions(c *gin.Context) {
	questions := s.interview.Catalogs().Questions
	if dx := strings.TrimSpace(c.Query("diagnosis")); dx != "" {
		resolved := questions.ForDiagnosis(dx)
		c.JSON(http.StatusOK, gin.H{"diagnosis": dx, "count": len(resolved), "questions": resolved})
		return
	}
	all := questions.All()
	c.JSON(http.StatusOK, gin.H{"count": len(all), "questions": all})
}

func (s *Server) handleGetTranscript(c *gin.Context) {
	t, err := s.interview.Transcript(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
