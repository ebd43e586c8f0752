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
	"time"

	"github.com/gin-gonic/gin"

	"github.com/innovationmech/lracoord/pkg/lra"
)

// JoinRequest carries a participant's callback endpoints and options.
type JoinRequest struct {
	Complete   string `json:"complete"`
	Compensate string `json:"compensate"`
	Status     string `json:"status"`
	Forget     string `json:"forget"`
	After      string `json:"after"`
	// TimeLimitMillis bounds the participant's work; it never shortens the
	// LRA's own deadline.
	TimeLimitMillis int64 `json:"timeLimit"`
	// Data is opaque compensator state returned with the participant on
	// recovery listings.
	Data []byte `json:"data,omitempty"`
}

// JoinResponse returns the recovery id assigned to the participant.
type JoinResponse struct {
	RecoveryID string `json:"recoveryId"`
}

// Join enlists a participant in the LRA identified by the path.
//
// Enlistment in an LRA that has begun terminating is rejected with 412; a
// syntactically valid id the coordinator does not know is 410 Gone, since
// the LRA may have finished and been forgotten.
func (h *CoordinatorHandler) Join(ctx *gin.Context) {
	var req JoinRequest
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
	timeLimit := time.Duration(req.TimeLimitMillis) * time.Millisecond

	id := h.actionID(ctx.Param("lraID"))
	recoveryID, err := h.coordinator.Join(ctx.Request.Context(), id, callbacks, timeLimit, req.Data)
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.Header("Long-Running-Action-Recovery", recoveryID)
	ctx.JSON(http.StatusOK, JoinResponse{RecoveryID: recoveryID})
}

// LeaveRequest identifies the participant to remove, by recovery id or by
// its compensate endpoint.
type LeaveRequest struct {
	Participant string `json:"participant" binding:"required"`
}

// Leave removes a participant from an Active LRA. Leaving after
// termination has started is rejected with 412.
func (h *CoordinatorHandler) Leave(ctx *gin.Context) {
	var req LeaveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	id := h.actionID(ctx.Param("lraID"))
	if err := h.coordinator.Leave(ctx.Request.Context(), id, req.Participant); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusOK)
}

// Renew extends the LRA's deadline to TimeLimit milliseconds from now. A
// renewal that would shorten the current deadline leaves it unchanged.
func (h *CoordinatorHandler) Renew(ctx *gin.Context) {
	raw := ctx.Query("TimeLimit")
	millis, err := parseMillis(raw)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid TimeLimit: " + raw})
		return
	}

	id := h.actionID(ctx.Param("lraID"))
	if err := h.coordinator.Renew(ctx.Request.Context(), id, time.Duration(millis)*time.Millisecond); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusOK)
}
