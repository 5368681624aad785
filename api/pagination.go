// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/jgualp/eleccions-a-delegat/database/models"
)

const (
	DefaultPaginationCount = 100
	MaxPaginationCount     = 100
	DefaultPaginationPage  = 1
)

// parseReceiptFilter reads the count, page, status, caller and function
// query parameters of a receipt listing
func parseReceiptFilter(r *http.Request) (models.ReceiptFilter, error) {
	query := r.URL.Query()
	count := DefaultPaginationCount
	page := DefaultPaginationPage
	if countParam := query.Get("count"); countParam != "" {
		v, err := strconv.Atoi(countParam)
		if err != nil {
			return models.ReceiptFilter{}, badRequest("invalid count %q", countParam)
		}
		count = v
	}
	if pageParam := query.Get("page"); pageParam != "" {
		v, err := strconv.Atoi(pageParam)
		if err != nil {
			return models.ReceiptFilter{}, badRequest("invalid page %q", pageParam)
		}
		page = v
	}
	// Bounds clamping
	count = max(1, min(count, MaxPaginationCount))
	page = max(1, min(page, math.MaxInt/MaxPaginationCount))
	filter := models.ReceiptFilter{
		Limit:    count,
		Offset:   (page - 1) * count,
		Function: query.Get("function"),
	}
	if caller := query.Get("caller"); caller != "" {
		addr, err := parseAddress("caller", caller)
		if err != nil {
			return models.ReceiptFilter{}, err
		}
		filter.Caller = addr.Hex()
	}
	switch status := query.Get("status"); status {
	case "":
	case "success":
		filter.OnlySuccessful = true
	case "failed":
		filter.OnlyFailed = true
	default:
		return models.ReceiptFilter{}, badRequest("invalid status %q", status)
	}
	return filter, nil
}
