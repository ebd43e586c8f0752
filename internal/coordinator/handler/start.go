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
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/innovationmech/lracoord/pkg/lra"
)

// Start begins a new LRA and returns its id.
//
// Query parameters: ClientID names the starter, TimeLimit is the deadline in
// milliseconds (0 means none), ParentLRA nests the new LRA under an existing
// one. The new id is returned in the body, the Location header and the
// Long-Running-Action header.
func (h *CoordinatorHandler) Start(ctx *gin.Context) {
	clientID := ctx.Query("ClientID")

	var timeLimit time.Duration
	if raw := ctx.Query("TimeLimit"); raw != "" {
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid TimeLimit: " + raw})
			return
		}
		timeLimit = time.Duration(millis) * time.Millisecond
	}

	parentID := lra.ActionID(ctx.Query("ParentLRA"))

	id, err := h.coordinator.StartLRA(ctx.Request.Context(), parentID, clientID, timeLimit)
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.Header("Location", string(id))
	ctx.Header(lra.ContextHeader, string(id))
	ctx.String(http.StatusCreated, string(id))
}
