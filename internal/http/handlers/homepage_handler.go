package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HomepageData godoc
// @ID          homepageData
// @Summary     Public landing-page statistics
// @Description Headline counts, average satisfaction, typical first-response time, recent and top-rated complaints (without owner or thread), per-category and per-status counts.
// @Tags        Homepage
// @Produce     json
// @Success     200  {object}  services.HomepageData
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /homepage/data [get]
func (h *Handlers) HomepageData(c *gin.Context) {
	data, err := h.homepage.Data(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, data)
}
