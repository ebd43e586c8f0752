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

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/innovationmech/lracoord/pkg/lra"
)

// ListRecovering returns every participant still awaiting a termination
// callback, forget or after-notification.
func (h *CoordinatorHandler) ListRecovering(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.coordinator.ListRecovering(ctx.Request.Context()))
}

// TriggerRecovery runs one on-demand recovery pass and reports the
// cumulative scanner statistics.
func (h *CoordinatorHandler) TriggerRecovery(ctx *gin.Context) {
	if h.scanner == nil {
		ctx.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "recovery scanner is not running"})
		return
	}
	if err := h.scanner.Scan(ctx.Request.Context()); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, h.scanner.Stats())
}

// GetParticipant looks up one participant by its recovery id.
func (h *CoordinatorHandler) GetParticipant(ctx *gin.Context) {
	info, err := h.coordinator.GetParticipant(ctx.Request.Context(), ctx.Param("recoveryID"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, info)
}

// ReplaceRequest carries the participant's replacement callback endpoints.
type ReplaceRequest struct {
	Complete   string `json:"complete"`
	Compensate string `json:"compensate"`
	Status     string `json:"status"`
	Forget     string `json:"forget"`
	After      string `json:"after"`
}

// ReplaceParticipant swaps a participant's callback endpoints, keyed by its
// recovery id. A restarted participant uses this to re-register under new
// addresses before recovery redrives it.
func (h *CoordinatorHandler) ReplaceParticipant(ctx *gin.Context) {
	var req ReplaceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	callbacks := lra.CallbackURIs{
		Complete:   req.Complete,
		Compensate: req.Compensate,
		Status:     req.Status,
		Forget:     req.Forget,
		After:      req.After,
	}
	if err := h.coordinator.ReplaceParticipant(ctx.Request.Context(), ctx.Param("recoveryID"), callbacks); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusOK)
}
