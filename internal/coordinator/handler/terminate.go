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

// Close confirms the LRA: every participant's complete callback is invoked
// in reverse enlistment order. The response carries the resulting status
// name; 202 is returned while participants are still finishing.
func (h *CoordinatorHandler) Close(ctx *gin.Context) {
	status, err := h.coordinator.Close(ctx.Request.Context(), h.actionID(ctx.Param("lraID")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeStatusName(ctx, terminationCode(status.IsTerminal()), status.String())
}

// Cancel compensates the LRA: every participant's compensate callback is
// invoked in reverse enlistment order.
func (h *CoordinatorHandler) Cancel(ctx *gin.Context) {
	status, err := h.coordinator.Cancel(ctx.Request.Context(), h.actionID(ctx.Param("lraID")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeStatusName(ctx, terminationCode(status.IsTerminal()), status.String())
}

func terminationCode(terminal bool) int {
	if terminal {
		return http.StatusOK
	}
	return http.StatusAccepted
}
