package http

import (
	"fmt"
	"net/http"
	"time"

	statService "anoa.com/blooddonation/internal/modules/stat/service"
	"anoa.com/blooddonation/pkg/response"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StatHandler struct {
	statService statService.StatService
}

func NewStatHandler(statService statService.StatService) *StatHandler {
	return &StatHandler{statService: statService}
}

func (h *StatHandler) GetStats(c *gin.Context) {
	stats, err := h.statService.ComputeStats(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *StatHandler) ExportDonors(c *gin.Context) {
	data, err := h.statService.ExportDonors(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	filename := fmt.Sprintf("donors-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, data)
}
