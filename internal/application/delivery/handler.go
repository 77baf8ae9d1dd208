package delivery

import (
	"io"
	"net/http"
	"net/url"

	"jobtrail-backend/internal/application/repository"
	"jobtrail-backend/internal/application/usecase"

	"github.com/gin-gonic/gin"
)

// Handler exposes the ingestion trigger and the query surface over HTTP.
type Handler struct {
	ingest    *usecase.IngestUsecase
	query     *usecase.QueryUsecase
	companies repository.CompanyRepository
}

func NewHandler(ingest *usecase.IngestUsecase, query *usecase.QueryUsecase, companies repository.CompanyRepository) *Handler {
	return &Handler{
		ingest:    ingest,
		query:     query,
		companies: companies,
	}
}

// Ingest runs one ingestion pass and reports counts.
func (h *Handler) Ingest(c *gin.Context) {
	summary, err := h.ingest.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

type queryRequest struct {
	Query string `json:"query" binding:"required"`
}

// Query answers a natural-language question. The vector-search and invalid
// paths stream plain text; the text-to-sql path returns a JSON table plus a
// chart-type hint.
func (h *Handler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	result := h.query.Answer(c.Request.Context(), req.Query)

	switch result.Kind {
	case usecase.ResultStream:
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(http.StatusOK)
		c.Stream(func(w io.Writer) bool {
			chunk, ok := <-result.Stream
			if !ok {
				return false
			}
			_, _ = io.WriteString(w, chunk)
			return true
		})
	case usecase.ResultTable:
		c.JSON(http.StatusOK, result.Table)
	default:
		c.String(http.StatusOK, result.Message)
	}
}

type checkURLRequest struct {
	URL string `json:"url" binding:"required"`
}

// CheckURL reports whether any applications exist for a company website.
func (h *Handler) CheckURL(c *gin.Context) {
	var req checkURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	cleaned, applications, err := usecase.LookupByWebsite(h.companies, req.URL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching data"})
		return
	}

	domainName := cleaned
	if parsed, err := url.Parse(cleaned); err == nil && parsed.Host != "" {
		domainName = parsed.Host
	}

	if len(applications) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"message":         "Not yet applied to " + domainName,
			"company_website": domainName,
		})
		return
	}

	items := make([]gin.H, 0, len(applications))
	for _, app := range applications {
		items = append(items, gin.H{
			"job_position": app.JobPosition,
			"applied_date": app.AppliedDate.Format("January 02, 2006, 03:04 PM"),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Applied for the following positions:",
		"company_website": domainName,
		"applications":    items,
	})
}
