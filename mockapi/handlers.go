package mockapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kelmah/sessionkit/logger"
)

const (
	pathHealth  = "/api/health"
	pathLogin   = "/api/auth/login"
	pathRefresh = "/api/auth/refresh"
	pathMe      = "/api/auth/me"
	pathJobs    = "/api/jobs"
)

func (s *Server) routes() {
	s.engine.GET(pathHealth, s.health)
	s.engine.POST(pathLogin, s.login)
	s.engine.POST(pathRefresh, s.refresh)

	authed := s.engine.Group("/api", s.requireAuth())
	authed.GET("/auth/me", s.me)
	authed.GET("/jobs", s.listJobs)
	authed.GET("/jobs/:id", s.getJob)
	authed.POST("/jobs/:id/apply", s.applyToJob)
}

func (s *Server) health(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "kelmah-mockapi"})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "Email and password are required")
		return
	}
	u, ok := s.userByEmail(req.Email)
	if !ok || u.Password != req.Password {
		abortMessage(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	token, err := s.tokens.issue(u, s.generation.Load())
	if err != nil {
		s.log.Error("issue token failed", logger.ErrorFields("login", err))
		abortMessage(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"token": token, "user": u},
	})
}

// refresh exchanges any token signed by this server, expired or revoked,
// for a current one.
func (s *Server) refresh(c *gin.Context) {
	s.refreshCalls.Add(1)
	if s.refreshFailing.Load() {
		abortMessage(c, http.StatusUnauthorized, "Refresh token expired")
		return
	}
	claims, err := s.tokens.verifySignature(bearerToken(c))
	if err != nil {
		abortMessage(c, http.StatusUnauthorized, "Invalid token")
		return
	}
	u, ok := s.userByID(claims.Subject)
	if !ok {
		abortMessage(c, http.StatusUnauthorized, "Invalid token")
		return
	}
	token, err := s.tokens.issue(u, s.generation.Load())
	if err != nil {
		s.log.Error("issue token failed", logger.ErrorFields("refresh", err))
		abortMessage(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"token": token}})
}

func (s *Server) me(c *gin.Context) {
	u, ok := s.userByID(claimsOf(c).Subject)
	if !ok {
		abortMessage(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (s *Server) listJobs(c *gin.Context) {
	category := c.Query("category")
	s.mu.RLock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if category == "" || j.Category == category {
			jobs = append(jobs, j)
		}
	}
	s.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "total": len(jobs)})
}

func (s *Server) getJob(c *gin.Context) {
	job, ok := s.jobByID(c.Param("id"))
	if !ok {
		abortMessage(c, http.StatusNotFound, "Job not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job})
}

type applyRequest struct {
	CoverLetter  string  `json:"coverLetter" binding:"required,min=10"`
	ProposedRate float64 `json:"proposedRate" binding:"required,gt=0"`
}

func (s *Server) applyToJob(c *gin.Context) {
	claims := claimsOf(c)
	if claims.Role != RoleWorker {
		abortMessage(c, http.StatusForbidden, "Only workers can apply to jobs")
		return
	}
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "A cover letter of at least 10 characters and a positive rate are required")
		return
	}

	jobID := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasJobLocked(jobID) {
		abortMessage(c, http.StatusNotFound, "Job not found")
		return
	}
	for _, a := range s.applications[jobID] {
		if a.ApplicantID == claims.Subject {
			abortMessage(c, http.StatusConflict, "You have already applied to this job")
			return
		}
	}
	app := Application{
		ID:           uuid.NewString(),
		JobID:        jobID,
		ApplicantID:  claims.Subject,
		CoverLetter:  req.CoverLetter,
		ProposedRate: req.ProposedRate,
		Status:       "pending",
		CreatedAt:    s.clock.Now().UTC(),
	}
	s.applications[jobID] = append(s.applications[jobID], app)
	c.JSON(http.StatusCreated, gin.H{"application": app})
}

func (s *Server) jobByID(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.jobs {
		if j.ID == id {
			return j, true
		}
	}
	return Job{}, false
}

func (s *Server) hasJobLocked(id string) bool {
	for _, j := range s.jobs {
		if j.ID == id {
			return true
		}
	}
	return false
}
