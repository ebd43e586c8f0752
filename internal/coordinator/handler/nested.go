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
)

// Nested endpoints let a parent coordinator drive a nested LRA hosted here
// exactly as if it were a remote participant, reporting in the
// participant-status vocabulary (Completing/Completed/Compensating/...).

// NestedComplete closes the nested LRA identified by the path.
func (h *CoordinatorHandler) NestedComplete(ctx *gin.Context) {
	status, err := h.coordinator.NestedComplete(ctx.Request.Context(), h.actionID(ctx.Param("nestedID")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeStatusName(ctx, http.StatusOK, status.String())
}

// NestedCompensate cancels the nested LRA identified by the path.
func (h *CoordinatorHandler) NestedCompensate(ctx *gin.Context) {
	status, err := h.coordinator.NestedCompensate(ctx.Request.Context(), h.actionID(ctx.Param("nestedID")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeStatusName(ctx, http.StatusOK, status.String())
}

// NestedStatus reports the nested LRA's state as a participant status.
func (h *CoordinatorHandler) NestedStatus(ctx *gin.Context) {
	status, err := h.coordinator.NestedStatus(ctx.Request.Context(), h.actionID(ctx.Param("nestedID")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeStatusName(ctx, http.StatusOK, status.String())
}

// NestedForget releases the nested LRA's log record once the enclosing
// parent no longer needs its outcome.
func (h *CoordinatorHandler) NestedForget(ctx *gin.Context) {
	if err := h.coordinator.NestedForget(ctx.Request.Context(), h.actionID(ctx.Param("nestedID"))); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusOK)
}
