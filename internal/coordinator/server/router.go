// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/innovationmech/lracoord/internal/coordinator/handler"
	"github.com/innovationmech/lracoord/pkg/lra"
	"github.com/innovationmech/lracoord/pkg/lra/monitoring"
)

// RegisterRoutes builds the gin engine for the coordinator API. The exporter
// may be nil, in which case no /metrics endpoint is mounted.
func RegisterRoutes(h *handler.CoordinatorHandler, exporter *monitoring.MetricsExporter) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", lra.ContextHeader},
		ExposeHeaders: []string{"Location", lra.ContextHeader, "Long-Running-Action-Recovery"},
		MaxAge:        12 * time.Hour,
	}))

	api := r.Group("/lra-coordinator")
	{
		api.POST("/start", h.Start)
		api.GET("", h.List)

		api.GET("/recovery", h.ListRecovering)
		api.POST("/recovery/scan", h.TriggerRecovery)
		api.GET("/recovery/:recoveryID", h.GetParticipant)
		api.PUT("/recovery/:recoveryID", h.ReplaceParticipant)

		api.PUT("/nested/:nestedID/complete", h.NestedComplete)
		api.PUT("/nested/:nestedID/compensate", h.NestedCompensate)
		api.GET("/nested/:nestedID/status", h.NestedStatus)
		api.PUT("/nested/:nestedID/forget", h.NestedForget)

		api.GET("/:lraID", h.Info)
		api.GET("/:lraID/status", h.Status)
		api.PUT("/:lraID", h.Join)
		api.PUT("/:lraID/remove", h.Leave)
		api.PUT("/:lraID/renew", h.Renew)
		api.PUT("/:lraID/close", h.Close)
		api.PUT("/:lraID/cancel", h.Cancel)
	}

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if exporter != nil {
		r.GET("/metrics", gin.WrapH(exporter.HTTPHandler()))
	}

	return r
}
