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

// Status returns the LRA's current status name. text/plain by default,
// {"status": name} when the client accepts JSON. A forgotten LRA is 404.
func (h *CoordinatorHandler) Status(ctx *gin.Context) {
	status, err := h.coordinator.GetStatus(ctx.Request.Context(), h.actionID(ctx.Param("lraID")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeStatusName(ctx, http.StatusOK, status.String())
}

// Info returns the full snapshot of one LRA: status, timing, participants
// and nested children.
func (h *CoordinatorHandler) Info(ctx *gin.Context) {
	info, err := h.coordinator.GetInfo(ctx.Request.Context(), h.actionID(ctx.Param("lraID")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, info)
}

// List returns snapshots of all live LRAs, optionally filtered by the
// Status query parameter. An unparseable filter is 400.
func (h *CoordinatorHandler) List(ctx *gin.Context) {
	infos, err := h.coordinator.GetAllLRAs(ctx.Request.Context(), ctx.Query("Status"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, infos)
}
