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

// Package handler exposes the LRA coordinator over HTTP. The handlers are a
// thin adapter: parameter parsing, error-to-status mapping and content
// negotiation live here, every protocol decision lives in pkg/lra.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/innovationmech/lracoord/pkg/lra"
)

// CoordinatorHandler bundles the gin handlers for the coordinator API.
type CoordinatorHandler struct {
	coordinator *lra.Coordinator
	scanner     *lra.RecoveryScanner
}

// NewCoordinatorHandler creates the handler set over a coordinator and its
// recovery scanner. The scanner may be nil; the recovery scan endpoint then
// reports 503.
func NewCoordinatorHandler(c *lra.Coordinator, s *lra.RecoveryScanner) *CoordinatorHandler {
	return &CoordinatorHandler{coordinator: c, scanner: s}
}

// ErrorResponse is the JSON error body for all failed requests.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// actionID rebuilds the full routable LRA id from the path parameter. Ids
// are minted as <base-uri>/<uid>, so the path carries only the uid.
func (h *CoordinatorHandler) actionID(uid string) lra.ActionID {
	return lra.ActionID(h.coordinator.BaseURI() + "/" + uid)
}

// writeError maps coordinator errors onto HTTP status codes.
func writeError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case lra.IsNotFound(err):
		status = http.StatusNotFound
	case lra.IsGone(err):
		status = http.StatusGone
	case lra.IsPreconditionFailed(err):
		status = http.StatusPreconditionFailed
	case lra.IsBadRequest(err):
		status = http.StatusBadRequest
	case lra.IsStoreFailed(err):
		status = http.StatusServiceUnavailable
	}

	resp := ErrorResponse{Error: err.Error()}
	var coded *lra.Error
	if errors.As(err, &coded) {
		resp.Code = coded.Code
		resp.Diagnostic = coded.Diagnostic
	}
	ctx.JSON(status, resp)
}

// wantsJSON reports whether the client asked for a JSON rendering of a
// status value. The default for status endpoints is text/plain, matching
// what participant libraries expect.
func wantsJSON(ctx *gin.Context) bool {
	accept := ctx.GetHeader("Accept")
	return strings.Contains(accept, "application/json")
}

// parseMillis parses a millisecond duration query parameter.
func parseMillis(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("value is required")
	}
	return strconv.ParseInt(raw, 10, 64)
}

// writeStatusName renders a status name as text/plain, or as
// {"status": name} when the client asked for JSON.
func writeStatusName(ctx *gin.Context, httpStatus int, name string) {
	if wantsJSON(ctx) {
		ctx.JSON(httpStatus, gin.H{"status": name})
		return
	}
	ctx.String(httpStatus, name)
}
